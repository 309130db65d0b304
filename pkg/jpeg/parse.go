// Package jpeg is a structural codec for baseline JPEG files. It decodes the
// entropy-coded scan into quantized DCT coefficients, lets callers modify
// them, and writes the file back with every other byte preserved.
//
// Only single-scan, 8-bit, Huffman-coded baseline and extended sequential
// files are accepted. Progressive, lossless, arithmetic and 12-bit files
// are rejected with codec.ErrUnsupportedFormat.
package jpeg

import (
	"encoding/binary"
	"fmt"

	"github.com/andresmejia3/stegocodec/pkg/codec"
	"github.com/rs/zerolog/log"
)

const (
	markerSOF0 = 0xC0
	markerSOF1 = 0xC1
	markerDHT  = 0xC4
	markerRST0 = 0xD0
	markerRST7 = 0xD7
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerDRI  = 0xDD
	markerTEM  = 0x01
)

type tableKey struct {
	class, id uint8
}

// Component is a frame component with the table selectors its scan uses.
type Component struct {
	ID      byte
	H, V    int
	Tq      byte
	DCTable uint8
	ACTable uint8
}

// DataUnit is one 8x8 block: the absolute DC value and the 63 AC values in
// zig-zag order.
type DataUnit struct {
	Component int
	DC        int
	AC        [63]int
}

type segment struct {
	marker byte
	body   []byte // without marker and length
	tables []tableKey
}

// Image is the parsed model of a JPEG file.
type Image struct {
	Width, Height   int
	Components      []*Component
	Hmax, Vmax      int
	RestartInterval int
	tables          map[tableKey]*Table

	// Units holds every data unit in scan order, UnitsPerMCU at a time.
	Units       []DataUnit
	UnitsPerMCU int
	MCUs        int

	scan       []int // frame component index per scan component
	segments   []segment
	sosIndex   int
	tableOwner map[tableKey]int
	trailer    []byte
}

// Table returns the Huffman table of the given class and id, or nil.
func (img *Image) Table(class, id uint8) *Table {
	return img.tables[tableKey{class, id}]
}

// MCU returns the data units of MCU i.
func (img *Image) MCU(i int) []DataUnit {
	return img.Units[i*img.UnitsPerMCU : (i+1)*img.UnitsPerMCU]
}

func unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: jpeg: %s", codec.ErrUnsupportedFormat, fmt.Sprintf(format, args...))
}

// Parse walks the marker segments of data and decodes its scan.
func Parse(data []byte) (*Image, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, unsupported("missing SOI")
	}
	img := &Image{
		tables:     make(map[tableKey]*Table),
		tableOwner: make(map[tableKey]int),
		sosIndex:   -1,
	}
	frameSeen := false
	pos := 2
	for {
		if pos >= len(data) || data[pos] != 0xFF {
			return nil, unsupported("expected marker at offset %d", pos)
		}
		for pos < len(data) && data[pos] == 0xFF {
			pos++
		}
		if pos >= len(data) {
			return nil, unsupported("truncated marker")
		}
		m := data[pos]
		pos++

		switch {
		case m == markerEOI:
			img.trailer = append([]byte(nil), data[pos:]...)
			if img.sosIndex < 0 {
				return nil, unsupported("no scan")
			}
			log.Debug().Int("width", img.Width).Int("height", img.Height).Int("units", len(img.Units)).Int("trailer", len(img.trailer)).Msg("Parsed JPEG")
			return img, nil
		case m == markerTEM || (m >= markerRST0 && m <= markerRST7) || m == markerSOI:
			return nil, unsupported("stray marker %#02x", m)
		}

		if pos+2 > len(data) {
			return nil, unsupported("truncated segment length")
		}
		n := int(binary.BigEndian.Uint16(data[pos:]))
		if n < 2 || pos+n > len(data) {
			return nil, unsupported("segment %#02x length %d out of range", m, n)
		}
		body := data[pos+2 : pos+n]
		pos += n

		seg := segment{marker: m, body: body}
		switch {
		case m == markerSOF0 || m == markerSOF1:
			if frameSeen {
				return nil, unsupported("second frame header")
			}
			if err := img.parseFrame(body); err != nil {
				return nil, err
			}
			frameSeen = true
		case isOtherSOF(m):
			return nil, unsupported("frame type %#02x", m)
		case m == markerDHT:
			keys, err := img.parseDHT(body, len(img.segments))
			if err != nil {
				return nil, err
			}
			seg.tables = keys
		case m == markerDRI:
			if len(body) != 2 {
				return nil, unsupported("bad DRI length")
			}
			img.RestartInterval = int(binary.BigEndian.Uint16(body))
		case m == markerSOS:
			if img.sosIndex >= 0 {
				return nil, unsupported("multi-scan files")
			}
			if !frameSeen {
				return nil, unsupported("scan before frame header")
			}
			if err := img.parseScanHeader(body); err != nil {
				return nil, err
			}
			intervals, end, err := splitEntropy(data, pos)
			if err != nil {
				return nil, err
			}
			if err := img.decodeScan(intervals); err != nil {
				return nil, err
			}
			img.sosIndex = len(img.segments)
			pos = end
		}
		img.segments = append(img.segments, seg)
	}
}

func isOtherSOF(m byte) bool {
	switch m {
	case 0xC2, 0xC3, 0xC5, 0xC6, 0xC7, 0xC9, 0xCA, 0xCB, 0xCD, 0xCE, 0xCF:
		return true
	}
	return false
}

func (img *Image) parseFrame(b []byte) error {
	if len(b) < 6 {
		return unsupported("short frame header")
	}
	if b[0] != 8 {
		return unsupported("%d-bit precision", b[0])
	}
	img.Height = int(binary.BigEndian.Uint16(b[1:]))
	img.Width = int(binary.BigEndian.Uint16(b[3:]))
	nc := int(b[5])
	if img.Height == 0 || img.Width == 0 {
		return unsupported("zero image dimension")
	}
	if nc == 0 || len(b) != 6+3*nc {
		return unsupported("bad component count %d", nc)
	}
	for i := 0; i < nc; i++ {
		c := &Component{ID: b[6+3*i], H: int(b[7+3*i] >> 4), V: int(b[7+3*i] & 0x0F), Tq: b[8+3*i]}
		if c.H < 1 || c.H > 4 || c.V < 1 || c.V > 4 {
			return unsupported("bad sampling factors %dx%d", c.H, c.V)
		}
		img.Hmax = max(img.Hmax, c.H)
		img.Vmax = max(img.Vmax, c.V)
		img.Components = append(img.Components, c)
	}
	return nil
}

// parseDHT reads every table of a DHT segment. A table defined again later
// replaces the earlier definition and moves its ownership to the new segment.
func (img *Image) parseDHT(b []byte, segIndex int) ([]tableKey, error) {
	var keys []tableKey
	for len(b) > 0 {
		if len(b) < 17 {
			return nil, unsupported("short DHT")
		}
		class, id := b[0]>>4, b[0]&0x0F
		if class > 1 || id > 3 {
			return nil, unsupported("bad table header %#02x", b[0])
		}
		var counts [16]int
		total := 0
		for i := range counts {
			counts[i] = int(b[1+i])
			total += counts[i]
		}
		if len(b) < 17+total {
			return nil, unsupported("DHT symbols truncated")
		}
		t, err := NewTable(class, id, counts, b[17:17+total])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", codec.ErrUnsupportedFormat, err)
		}
		key := tableKey{class, id}
		img.tables[key] = t
		img.tableOwner[key] = segIndex
		keys = append(keys, key)
		b = b[17+total:]
	}
	return keys, nil
}

func (img *Image) parseScanHeader(b []byte) error {
	if len(b) < 1 {
		return unsupported("short scan header")
	}
	ns := int(b[0])
	if ns < 1 || ns > 4 || len(b) != 1+2*ns+3 {
		return unsupported("bad scan component count %d", ns)
	}
	for i := 0; i < ns; i++ {
		id := b[1+2*i]
		idx := -1
		for j, c := range img.Components {
			if c.ID == id {
				idx = j
			}
		}
		if idx < 0 {
			return unsupported("scan references unknown component %d", id)
		}
		c := img.Components[idx]
		c.DCTable, c.ACTable = b[2+2*i]>>4, b[2+2*i]&0x0F
		if img.Table(ClassDC, c.DCTable) == nil || img.Table(ClassAC, c.ACTable) == nil {
			return unsupported("scan uses undefined Huffman table")
		}
		img.scan = append(img.scan, idx)
	}
	ss, se, a := b[1+2*ns], b[2+2*ns], b[3+2*ns]
	if ss != 0 || se != 63 || a != 0 {
		return unsupported("spectral selection %d..%d, approximation %#02x", ss, se, a)
	}

	if ns == 1 {
		c := img.Components[img.scan[0]]
		w := (img.Width*c.H + img.Hmax - 1) / img.Hmax
		h := (img.Height*c.V + img.Vmax - 1) / img.Vmax
		img.MCUs = ((w + 7) / 8) * ((h + 7) / 8)
		img.UnitsPerMCU = 1
		return nil
	}
	mx := (img.Width + 8*img.Hmax - 1) / (8 * img.Hmax)
	my := (img.Height + 8*img.Vmax - 1) / (8 * img.Vmax)
	img.MCUs = mx * my
	for _, idx := range img.scan {
		c := img.Components[idx]
		img.UnitsPerMCU += c.H * c.V
	}
	if img.UnitsPerMCU > 10 {
		return unsupported("%d data units per MCU", img.UnitsPerMCU)
	}
	return nil
}

// splitEntropy returns the unstuffed entropy-coded data starting at pos,
// split at RSTn markers, and the offset of the marker that ends the scan.
func splitEntropy(data []byte, pos int) ([][]byte, int, error) {
	var intervals [][]byte
	cur := []byte{}
	for pos < len(data) {
		b := data[pos]
		if b != 0xFF {
			cur = append(cur, b)
			pos++
			continue
		}
		if pos+1 >= len(data) {
			break
		}
		next := data[pos+1]
		switch {
		case next == 0x00:
			cur = append(cur, 0xFF)
			pos += 2
		case next >= markerRST0 && next <= markerRST7:
			intervals = append(intervals, cur)
			cur = []byte{}
			pos += 2
		case next == 0xFF:
			// fill byte before a marker
			pos++
		default:
			return append(intervals, cur), pos, nil
		}
	}
	return nil, 0, unsupported("scan data runs to end of file")
}
