package mp3

import (
	"fmt"

	"github.com/andresmejia3/stegocodec/pkg/bitstream"
	"github.com/andresmejia3/stegocodec/pkg/codec"
)

// Granule is the per-channel side information of one granule.
type Granule struct {
	Part23Length      int
	BigValues         int
	GlobalGain        int
	ScalefacCompress  int
	WindowSwitching   bool
	BlockType         int
	MixedBlock        bool
	TableSelect       [3]int
	SubblockGain      [3]int
	Region0Count      int
	Region1Count      int
	Preflag           bool
	ScalefacScale     bool
	Count1TableSelect bool
}

// SideInfo is the Layer III side information block. MPEG-1 frames carry two
// granules and scfsi bits; MPEG-2 and 2.5 frames carry one granule.
type SideInfo struct {
	MainDataBegin int
	PrivateBits   int
	Scfsi         [2][4]bool
	Granules      [2][2]Granule // [granule][channel]

	lsf      bool
	channels int
}

// SideInfoSize is the side information length in bytes.
func SideInfoSize(h Header) int {
	switch {
	case !h.LSF() && h.Channels() == 1:
		return 17
	case !h.LSF():
		return 32
	case h.Channels() == 1:
		return 9
	}
	return 17
}

// PrivateBitCount is the number of private side-info bits in a frame.
func PrivateBitCount(h Header) int {
	switch {
	case !h.LSF() && h.Channels() == 1:
		return 5
	case !h.LSF():
		return 3
	}
	return h.Channels()
}

func (si *SideInfo) granules() int {
	if si.lsf {
		return 1
	}
	return 2
}

func (si *SideInfo) mainDataBeginBits() int {
	if si.lsf {
		return 8
	}
	return 9
}

// ParseSideInfo decodes the side information that follows h (and its CRC).
func ParseSideInfo(h Header, b []byte) (SideInfo, error) {
	si := SideInfo{lsf: h.LSF(), channels: h.Channels()}
	if len(b) < SideInfoSize(h) {
		return si, fmt.Errorf("%w: mp3: short side info", codec.ErrUnsupportedFormat)
	}
	s := bitstream.New(b[:SideInfoSize(h)])
	read := func(n int) int {
		v, _ := s.ReadBits(n)
		return int(v)
	}

	si.MainDataBegin = read(si.mainDataBeginBits())
	si.PrivateBits = read(PrivateBitCount(h))
	if !si.lsf {
		for ch := 0; ch < si.channels; ch++ {
			for band := 0; band < 4; band++ {
				si.Scfsi[ch][band] = read(1) == 1
			}
		}
	}
	for gr := 0; gr < si.granules(); gr++ {
		for ch := 0; ch < si.channels; ch++ {
			g := &si.Granules[gr][ch]
			g.Part23Length = read(12)
			g.BigValues = read(9)
			g.GlobalGain = read(8)
			if si.lsf {
				g.ScalefacCompress = read(9)
			} else {
				g.ScalefacCompress = read(4)
			}
			g.WindowSwitching = read(1) == 1
			if g.WindowSwitching {
				g.BlockType = read(2)
				g.MixedBlock = read(1) == 1
				for i := 0; i < 2; i++ {
					g.TableSelect[i] = read(5)
				}
				for i := 0; i < 3; i++ {
					g.SubblockGain[i] = read(3)
				}
			} else {
				for i := 0; i < 3; i++ {
					g.TableSelect[i] = read(5)
				}
				g.Region0Count = read(4)
				g.Region1Count = read(3)
			}
			if !si.lsf {
				g.Preflag = read(1) == 1
			}
			g.ScalefacScale = read(1) == 1
			g.Count1TableSelect = read(1) == 1
		}
	}
	return si, nil
}

// Marshal serializes the side information bit for bit.
func (si *SideInfo) Marshal() []byte {
	s := bitstream.New(nil)
	s.AddBits(uint32(si.MainDataBegin), si.mainDataBeginBits())
	switch {
	case !si.lsf && si.channels == 1:
		s.AddBits(uint32(si.PrivateBits), 5)
	case !si.lsf:
		s.AddBits(uint32(si.PrivateBits), 3)
	default:
		s.AddBits(uint32(si.PrivateBits), si.channels)
	}
	if !si.lsf {
		for ch := 0; ch < si.channels; ch++ {
			for band := 0; band < 4; band++ {
				s.AddBits(bit(si.Scfsi[ch][band]), 1)
			}
		}
	}
	for gr := 0; gr < si.granules(); gr++ {
		for ch := 0; ch < si.channels; ch++ {
			g := &si.Granules[gr][ch]
			s.AddBits(uint32(g.Part23Length), 12)
			s.AddBits(uint32(g.BigValues), 9)
			s.AddBits(uint32(g.GlobalGain), 8)
			if si.lsf {
				s.AddBits(uint32(g.ScalefacCompress), 9)
			} else {
				s.AddBits(uint32(g.ScalefacCompress), 4)
			}
			s.AddBits(bit(g.WindowSwitching), 1)
			if g.WindowSwitching {
				s.AddBits(uint32(g.BlockType), 2)
				s.AddBits(bit(g.MixedBlock), 1)
				for i := 0; i < 2; i++ {
					s.AddBits(uint32(g.TableSelect[i]), 5)
				}
				for i := 0; i < 3; i++ {
					s.AddBits(uint32(g.SubblockGain[i]), 3)
				}
			} else {
				for i := 0; i < 3; i++ {
					s.AddBits(uint32(g.TableSelect[i]), 5)
				}
				s.AddBits(uint32(g.Region0Count), 4)
				s.AddBits(uint32(g.Region1Count), 3)
			}
			if !si.lsf {
				s.AddBits(bit(g.Preflag), 1)
			}
			s.AddBits(bit(g.ScalefacScale), 1)
			s.AddBits(bit(g.Count1TableSelect), 1)
		}
	}
	return s.Bytes()
}

// MainDataBits is the total part2_3_length of the frame.
func (si *SideInfo) MainDataBits() int {
	n := 0
	for gr := 0; gr < si.granules(); gr++ {
		for ch := 0; ch < si.channels; ch++ {
			n += si.Granules[gr][ch].Part23Length
		}
	}
	return n
}

// NewSideInfo returns an empty side information block laid out for h.
func NewSideInfo(h Header) SideInfo {
	return SideInfo{lsf: h.LSF(), channels: h.Channels()}
}
