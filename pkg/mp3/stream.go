// Package mp3 is a structural codec for MPEG-1/2/2.5 Layer III streams. It
// splits a file into frames, decodes headers and side information, keeps the
// main data in one shared bit reservoir and writes the file back byte for
// byte. Audio samples are never decoded.
package mp3

import (
	"bytes"
	"fmt"
	"time"

	"github.com/andresmejia3/stegocodec/pkg/bitstream"
	"github.com/andresmejia3/stegocodec/pkg/codec"
	"github.com/rs/zerolog/log"
)

// Frame is one parsed audio frame.
type Frame struct {
	Header Header
	CRC    uint16
	Side   SideInfo
	Offset int // position in the original file

	sideRaw    []byte
	mainOffset int // first byte of this frame's slots in the reservoir
	mainLen    int
}

// Stream is the parsed model of an MP3 file.
type Stream struct {
	Prefix  []byte // ID3v2 tag and any junk before the first frame
	Frames  []*Frame
	Trailer []byte // ID3v1 tag, truncated frame or other bytes after the last frame

	reservoir *bitstream.Stream
}

// id3v2Size returns the length of an ID3v2 tag at the start of data, or 0.
func id3v2Size(data []byte) int {
	if len(data) < 10 || !bytes.HasPrefix(data, []byte("ID3")) {
		return 0
	}
	n := 10
	for _, b := range data[6:10] {
		if b&0x80 != 0 {
			return 0
		}
	}
	n += int(data[6])<<21 | int(data[7])<<14 | int(data[8])<<7 | int(data[9])
	if data[5]&0x10 != 0 {
		n += 10
	}
	return min(n, len(data))
}

// frameAt returns the header of a complete frame starting at pos.
func frameAt(data []byte, pos int) (Header, bool) {
	if pos+HeaderSize > len(data) || data[pos] != 0xFF || data[pos+1]&0xE0 != 0xE0 {
		return Header{}, false
	}
	h, err := ParseHeader(data[pos:])
	if err != nil || pos+h.FrameSize() > len(data) {
		return Header{}, false
	}
	return h, true
}

func syncAt(data []byte, pos int) bool {
	return pos+1 < len(data) && data[pos] == 0xFF && data[pos+1]&0xE0 == 0xE0
}

// firstFrame finds the first valid header that is followed by another sync
// or by the end of data.
func firstFrame(data []byte, from int) (int, bool) {
	for i := from; i+HeaderSize <= len(data); i++ {
		h, ok := frameAt(data, i)
		if !ok {
			continue
		}
		next := i + h.FrameSize()
		if next == len(data) || syncAt(data, next) {
			return i, true
		}
	}
	return 0, false
}

// Parse splits data into prefix, frames and trailer and fills the bit
// reservoir. Only Layer III streams are accepted.
func Parse(data []byte) (*Stream, error) {
	start, ok := firstFrame(data, id3v2Size(data))
	if !ok {
		return nil, fmt.Errorf("%w: mp3: no MPEG audio frames", codec.ErrUnsupportedFormat)
	}
	st := &Stream{
		Prefix:    append([]byte(nil), data[:start]...),
		reservoir: bitstream.New(nil),
	}

	pos := start
	for pos < len(data) {
		h, ok := frameAt(data, pos)
		if !ok {
			break
		}
		if h.Layer != Layer3 {
			return nil, fmt.Errorf("%w: mp3: layer %d frame at %d", codec.ErrUnsupportedFormat, h.LayerNumber(), pos)
		}
		f, err := st.parseFrame(h, data[pos:pos+h.FrameSize()], pos)
		if err != nil {
			return nil, err
		}
		if f == nil {
			break
		}
		st.Frames = append(st.Frames, f)
		pos += h.FrameSize()
	}
	st.Trailer = append([]byte(nil), data[pos:]...)

	log.Debug().Int("frames", len(st.Frames)).Int("prefix", len(st.Prefix)).Int("trailer", len(st.Trailer)).Int("reservoir", st.reservoir.Len()).Msg("Parsed MP3")
	return st, nil
}

// parseFrame decodes one frame and appends its slots to the reservoir. A
// frame too short for its side information returns nil so the caller can
// treat it as trailer.
func (st *Stream) parseFrame(h Header, raw []byte, offset int) (*Frame, error) {
	f := &Frame{Header: h, Offset: offset}
	pos := HeaderSize
	if h.Protected {
		if len(raw) < pos+2 {
			return nil, nil
		}
		f.CRC = uint16(raw[pos])<<8 | uint16(raw[pos+1])
		pos += 2
	}
	n := SideInfoSize(h)
	if len(raw) < pos+n {
		return nil, nil
	}
	side, err := ParseSideInfo(h, raw[pos:pos+n])
	if err != nil {
		return nil, err
	}
	f.Side = side
	f.sideRaw = append([]byte(nil), raw[pos:pos+n]...)
	pos += n

	if f.Side.MainDataBegin > st.reservoir.Len() {
		return nil, fmt.Errorf("%w: mp3: frame at %d reaches %d bytes back, reservoir holds %d", codec.ErrUnsupportedFormat, offset, f.Side.MainDataBegin, st.reservoir.Len())
	}
	f.mainOffset = st.reservoir.Len()
	f.mainLen = len(raw) - pos
	st.reservoir.AddBytes(raw[pos:])
	return f, nil
}

// MainData returns the granule data of frame i: part2_3_length bits starting
// main_data_begin bytes before the frame's own slots.
func (st *Stream) MainData(i int) (*bitstream.Stream, error) {
	if i < 0 || i >= len(st.Frames) {
		return nil, fmt.Errorf("mp3: frame %d out of range", i)
	}
	f := st.Frames[i]
	start := (f.mainOffset - f.Side.MainDataBegin) * 8
	n := f.Side.MainDataBits()
	if start+n > (f.mainOffset+f.mainLen)*8 {
		return nil, fmt.Errorf("%w: mp3: frame %d main data overruns its slots", codec.ErrEndOfStream, i)
	}
	out := bitstream.New(make([]byte, 0, (n+7)/8))
	for k := 0; k < n; {
		c := min(32, n-k)
		v, err := st.reservoir.PeekBits(start+k, c)
		if err != nil {
			return nil, err
		}
		out.AddBits(v, c)
		k += c
	}
	return out, nil
}

// Bytes writes the stream back: prefix, frames and trailer. Protected frames
// whose side information changed get a fresh CRC.
func (st *Stream) Bytes() []byte {
	out := append([]byte(nil), st.Prefix...)
	for _, f := range st.Frames {
		header := f.Header.Marshal()
		side := f.Side.Marshal()
		out = append(out, header...)
		if f.Header.Protected {
			crc := f.CRC
			if !bytes.Equal(side, f.sideRaw) {
				crc = CRC16(header[2:4], side)
			}
			out = append(out, byte(crc>>8), byte(crc))
		}
		out = append(out, side...)
		slots, _ := st.reservoir.Slice(f.mainOffset, f.mainOffset+f.mainLen)
		out = append(out, slots...)
	}
	return append(out, st.Trailer...)
}

// Duration is the total playing time of all frames.
func (st *Stream) Duration() time.Duration {
	var d time.Duration
	for _, f := range st.Frames {
		d += f.Header.Duration()
	}
	return d
}
