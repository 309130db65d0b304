package stego

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/andresmejia3/stegocodec/pkg/codec"
	"github.com/go-audio/wav"
)

// pcm locates the sample bytes of a WAV cover. Every byte of the data chunk
// is a carrier; headers and trailing chunks are kept verbatim.
type pcm struct {
	offset     int
	length     int
	channels   int
	bitDepth   int
	sampleRate int
	duration   time.Duration
}

func locatePCM(data []byte) (*pcm, error) {
	r := bytes.NewReader(data)
	d := wav.NewDecoder(r)
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: wav: %v", codec.ErrUnsupportedFormat, err)
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: wav: %v", codec.ErrUnsupportedFormat, err)
	}
	if d.PCMLen() == 0 {
		return nil, fmt.Errorf("%w: wav: empty data chunk", codec.ErrUnsupportedFormat)
	}

	off, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	if off < 8 || off > int64(len(data)) || string(data[off-8:off-4]) != "data" {
		if off = findChunk(data, "data"); off < 0 {
			return nil, fmt.Errorf("%w: wav: data chunk not found", codec.ErrUnsupportedFormat)
		}
	}
	p := &pcm{
		offset:     int(off),
		length:     int(binary.LittleEndian.Uint32(data[off-4:])),
		channels:   int(d.NumChans),
		bitDepth:   int(d.BitDepth),
		sampleRate: int(d.SampleRate),
	}
	if p.offset+p.length > len(data) {
		p.length = len(data) - p.offset
	}
	if frame := p.channels * p.bitDepth / 8; frame > 0 && p.sampleRate > 0 {
		p.duration = time.Duration(p.length/frame) * time.Second / time.Duration(p.sampleRate)
	}
	return p, nil
}

// findChunk walks the RIFF chunk list and returns the body offset of the
// first chunk with the given id, or -1.
func findChunk(data []byte, id string) int64 {
	pos := 12
	for pos+8 <= len(data) {
		size := int(binary.LittleEndian.Uint32(data[pos+4:]))
		if string(data[pos:pos+4]) == id {
			return int64(pos + 8)
		}
		pos += 8 + size + size&1
	}
	return -1
}

func (p *pcm) samples(data []byte) []byte {
	return append([]byte(nil), data[p.offset:p.offset+p.length]...)
}

func (p *pcm) withSamples(data, samples []byte) ([]byte, error) {
	if len(samples) != p.length {
		return nil, fmt.Errorf("wav: %d samples for a %d byte data chunk", len(samples), p.length)
	}
	out := append([]byte(nil), data...)
	copy(out[p.offset:], samples)
	return out, nil
}
