package mp3

import (
	"fmt"
	"time"

	"github.com/andresmejia3/stegocodec/pkg/bitstream"
	"github.com/andresmejia3/stegocodec/pkg/codec"
)

// Raw values of the 2-bit version field.
const (
	MPEG25 = 0
	MPEG2  = 2
	MPEG1  = 3
)

// Raw values of the 2-bit layer field.
const (
	Layer3 = 1
	Layer2 = 2
	Layer1 = 3
)

// ChannelModeMono is the raw channel mode of a single-channel stream.
const ChannelModeMono = 3

// HeaderSize is the size of a frame header in bytes.
const HeaderSize = 4

var bitrates = [2][3][16]int{
	// MPEG-1: layer I, II, III
	{
		{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448, -1},
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, -1},
		{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, -1},
	},
	// MPEG-2 and 2.5
	{
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256, -1},
		{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, -1},
		{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, -1},
	},
}

var sampleRates = map[uint8][3]int{
	MPEG1:  {44100, 48000, 32000},
	MPEG2:  {22050, 24000, 16000},
	MPEG25: {11025, 12000, 8000},
}

// Header is a decoded 4-byte MPEG audio frame header. Fields hold the raw
// bit-field values so Marshal reproduces the original bytes.
type Header struct {
	Version         uint8
	Layer           uint8
	Protected       bool // a CRC-16 follows the header
	BitrateIndex    uint8
	SampleRateIndex uint8
	Padding         bool
	Private         bool
	ChannelMode     uint8
	ModeExtension   uint8
	Copyright       bool
	Original        bool
	Emphasis        uint8
}

func flag(v uint32) bool { return v != 0 }

func bit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// ParseHeader decodes the header at the start of b and checks that every
// field indexes a valid table entry. Free-format streams are not supported.
func ParseHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < HeaderSize {
		return h, fmt.Errorf("%w: mp3: short header", codec.ErrUnsupportedFormat)
	}
	s := bitstream.New(b[:HeaderSize])
	if sync, _ := s.ReadBits(11); sync != 0x7FF {
		return h, fmt.Errorf("%w: mp3: no frame sync", codec.ErrUnsupportedFormat)
	}
	read := func(n int) uint32 {
		v, _ := s.ReadBits(n)
		return v
	}
	h.Version = uint8(read(2))
	h.Layer = uint8(read(2))
	h.Protected = read(1) == 0
	h.BitrateIndex = uint8(read(4))
	h.SampleRateIndex = uint8(read(2))
	h.Padding = flag(read(1))
	h.Private = flag(read(1))
	h.ChannelMode = uint8(read(2))
	h.ModeExtension = uint8(read(2))
	h.Copyright = flag(read(1))
	h.Original = flag(read(1))
	h.Emphasis = uint8(read(2))

	switch {
	case h.Version == 1:
		return h, fmt.Errorf("%w: mp3: reserved version", codec.ErrUnsupportedFormat)
	case h.Layer == 0:
		return h, fmt.Errorf("%w: mp3: reserved layer", codec.ErrUnsupportedFormat)
	case h.BitrateIndex == 0 || h.BitrateIndex == 15:
		return h, fmt.Errorf("%w: mp3: bitrate index %d", codec.ErrUnsupportedFormat, h.BitrateIndex)
	case h.SampleRateIndex == 3:
		return h, fmt.Errorf("%w: mp3: reserved sample rate", codec.ErrUnsupportedFormat)
	case h.Emphasis == 2:
		return h, fmt.Errorf("%w: mp3: reserved emphasis", codec.ErrUnsupportedFormat)
	}
	return h, nil
}

// Marshal re-emits the 4 header bytes.
func (h Header) Marshal() []byte {
	s := bitstream.New(make([]byte, 0, HeaderSize))
	s.AddBits(0x7FF, 11)
	s.AddBits(uint32(h.Version), 2)
	s.AddBits(uint32(h.Layer), 2)
	s.AddBits(bit(!h.Protected), 1)
	s.AddBits(uint32(h.BitrateIndex), 4)
	s.AddBits(uint32(h.SampleRateIndex), 2)
	s.AddBits(bit(h.Padding), 1)
	s.AddBits(bit(h.Private), 1)
	s.AddBits(uint32(h.ChannelMode), 2)
	s.AddBits(uint32(h.ModeExtension), 2)
	s.AddBits(bit(h.Copyright), 1)
	s.AddBits(bit(h.Original), 1)
	s.AddBits(uint32(h.Emphasis), 2)
	return s.Bytes()
}

// LSF reports whether the header belongs to an MPEG-2 or MPEG-2.5 stream.
func (h Header) LSF() bool {
	return h.Version != MPEG1
}

// LayerNumber returns 1, 2 or 3.
func (h Header) LayerNumber() int {
	return 4 - int(h.Layer)
}

// Bitrate in kbit/s.
func (h Header) Bitrate() int {
	v := 0
	if h.LSF() {
		v = 1
	}
	return bitrates[v][h.LayerNumber()-1][h.BitrateIndex]
}

// SampleRate in Hz.
func (h Header) SampleRate() int {
	return sampleRates[h.Version][h.SampleRateIndex]
}

func (h Header) Channels() int {
	if h.ChannelMode == ChannelModeMono {
		return 1
	}
	return 2
}

func (h Header) SamplesPerFrame() int {
	switch {
	case h.Layer == Layer1:
		return 384
	case h.Layer == Layer3 && h.LSF():
		return 576
	}
	return 1152
}

// FrameSize is the total frame length in bytes, header included.
func (h Header) FrameSize() int {
	br, sr := h.Bitrate()*1000, h.SampleRate()
	if h.Layer == Layer1 {
		n := 12 * br / sr
		if h.Padding {
			n++
		}
		return n * 4
	}
	n := h.SamplesPerFrame() / 8 * br / sr
	if h.Padding {
		n++
	}
	return n
}

// Duration is the playing time of one frame.
func (h Header) Duration() time.Duration {
	return time.Duration(h.SamplesPerFrame()) * time.Second / time.Duration(h.SampleRate())
}

func (h Header) String() string {
	version := map[uint8]string{MPEG1: "MPEG-1", MPEG2: "MPEG-2", MPEG25: "MPEG-2.5"}[h.Version]
	return fmt.Sprintf("%s Layer %d, %d kbit/s, %d Hz, %d ch", version, h.LayerNumber(), h.Bitrate(), h.SampleRate(), h.Channels())
}
