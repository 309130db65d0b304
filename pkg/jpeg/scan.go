package jpeg

import (
	"fmt"

	"github.com/andresmejia3/stegocodec/pkg/bitstream"
	"github.com/andresmejia3/stegocodec/pkg/codec"
)

// extend maps size raw bits to the signed value they encode.
func extend(v uint32, size int) int {
	if size == 0 {
		return 0
	}
	if v < 1<<uint(size-1) {
		return int(v) - (1 << uint(size)) + 1
	}
	return int(v)
}

// reverseExtend returns the size category of x and its raw bits.
func reverseExtend(x int) (int, uint32) {
	a, b := x, x
	if x < 0 {
		a, b = -x, x-1
	}
	size := 0
	for a > 0 {
		size++
		a >>= 1
	}
	return size, uint32(b) & (1<<uint(size) - 1)
}

// unitComponents lists the frame component index of each data unit of one
// MCU, in scan order.
func (img *Image) unitComponents() []int {
	if len(img.scan) == 1 {
		return []int{img.scan[0]}
	}
	var out []int
	for _, idx := range img.scan {
		c := img.Components[idx]
		for i := 0; i < c.H*c.V; i++ {
			out = append(out, idx)
		}
	}
	return out
}

// intervalMCUs is the number of MCUs in each restart interval.
func (img *Image) intervalMCUs() int {
	if img.RestartInterval == 0 {
		return img.MCUs
	}
	return img.RestartInterval
}

func (img *Image) decodeScan(intervals [][]byte) error {
	per := img.intervalMCUs()
	want := (img.MCUs + per - 1) / per
	if len(intervals) < want {
		return fmt.Errorf("%w: jpeg: %d restart intervals, want %d", codec.ErrUnsupportedFormat, len(intervals), want)
	}

	layout := img.unitComponents()
	img.Units = make([]DataUnit, img.MCUs*img.UnitsPerMCU)
	pred := make([]int, len(img.Components))
	mcu := 0
	for k := 0; k < want; k++ {
		s := bitstream.New(intervals[k])
		for i := range pred {
			pred[i] = 0
		}
		for n := 0; n < per && mcu < img.MCUs; n++ {
			for u, ci := range layout {
				du := &img.Units[mcu*img.UnitsPerMCU+u]
				du.Component = ci
				if err := img.decodeUnit(s, ci, &pred[ci], du); err != nil {
					return fmt.Errorf("jpeg: MCU %d unit %d: %w", mcu, u, err)
				}
			}
			mcu++
		}
	}
	return nil
}

func (img *Image) decodeUnit(s *bitstream.Stream, ci int, pred *int, du *DataUnit) error {
	c := img.Components[ci]
	dc, ac := img.Table(ClassDC, c.DCTable), img.Table(ClassAC, c.ACTable)

	t, err := dc.Decode(s)
	if err != nil {
		return err
	}
	if t > 11 {
		return fmt.Errorf("%w: DC size %d", codec.ErrUnsupportedFormat, t)
	}
	diff := 0
	if t > 0 {
		v, err := s.ReadBits(int(t))
		if err != nil {
			return err
		}
		diff = extend(v, int(t))
	}
	*pred += diff
	du.DC = *pred

	for k := 0; k < 63; {
		rs, err := ac.Decode(s)
		if err != nil {
			return err
		}
		run, size := int(rs>>4), int(rs&0x0F)
		if size == 0 {
			switch run {
			case 0:
				return nil
			case 15:
				k += 16
				if k > 63 {
					return fmt.Errorf("%w: zero run past end of block", codec.ErrUnsupportedFormat)
				}
				continue
			default:
				return fmt.Errorf("%w: AC symbol %#02x", codec.ErrUnsupportedFormat, rs)
			}
		}
		k += run
		if k >= 63 || size > 10 {
			return fmt.Errorf("%w: AC symbol %#02x at %d", codec.ErrUnsupportedFormat, rs, k)
		}
		v, err := s.ReadBits(size)
		if err != nil {
			return err
		}
		du.AC[k] = extend(v, size)
		k++
	}
	return nil
}

// encodeUnit appends the Huffman coding of du to s, growing the tables when
// a symbol is missing.
func (img *Image) encodeUnit(s *bitstream.Stream, pred *int, du *DataUnit) error {
	c := img.Components[du.Component]
	dc, ac := img.Table(ClassDC, c.DCTable), img.Table(ClassAC, c.ACTable)

	size, bits := reverseExtend(du.DC - *pred)
	*pred = du.DC
	if err := emit(s, dc, byte(size)); err != nil {
		return err
	}
	if size > 0 {
		s.AddBits(bits, size)
	}

	run := 0
	for k := 0; k < 63; k++ {
		if du.AC[k] == 0 {
			run++
			continue
		}
		for run > 15 {
			if err := emit(s, ac, 0xF0); err != nil {
				return err
			}
			run -= 16
		}
		size, bits := reverseExtend(du.AC[k])
		if size > 10 {
			return fmt.Errorf("jpeg: AC value %d out of range", du.AC[k])
		}
		if err := emit(s, ac, byte(run<<4|size)); err != nil {
			return err
		}
		s.AddBits(bits, size)
		run = 0
	}
	if run > 0 {
		return emit(s, ac, 0x00)
	}
	return nil
}

func emit(s *bitstream.Stream, t *Table, sym byte) error {
	code, n, err := t.AddSymbol(sym)
	if err != nil {
		return err
	}
	s.AddBits(code, n)
	return nil
}
