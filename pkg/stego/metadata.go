package stego

import (
	"bytes"
	"time"

	"github.com/bogem/id3v2"
	"github.com/rs/zerolog/log"
	"lukechampine.com/jsteg"
)

// CapacityRow is the capacity of a cover at one degradation value.
type CapacityRow struct {
	Degradation int
	Envelope    int // bytes available to the envelope
	Message     int // largest uncompressed message without error correction
	MessageECC  int // largest uncompressed message with error correction
}

// ID3 summarizes an ID3v2 tag.
type ID3 struct {
	Version byte
	Title   string
	Artist  string
	Album   string
	Year    string
}

// Info contains what can be learned about a container without a passphrase.
type Info struct {
	Name   string
	Format Format
	Type   Type
	Size   int

	Width, Height int

	Channels   int
	BitDepth   int
	SampleRate int
	Duration   time.Duration

	Frames      int
	FrameFormat string // first MP3 frame, e.g. "MPEG-1 Layer 3, 128 kbit/s, 44100 Hz, 2 ch"
	ID3         *ID3

	Components      int
	RestartInterval int

	DefaultDegradation int
	Capacities         []CapacityRow

	// Degradation recorded in the cover: the LSB marker or the JPEG header
	// block. Zero when none is present, which is also the case for MP3.
	StoredDegradation int

	// JstegBytes is the size of a payload found by the jsteg decoder, a
	// different JPEG LSB scheme. -1 when nothing decodes.
	JstegBytes int
}

// Capacities lists the capacity at every degradation the format accepts.
func (c *Container) Capacities() []CapacityRow {
	var rows []CapacityRow
	for _, d := range c.Degradations() {
		space, err := c.Capacity(d)
		if err != nil {
			continue
		}
		rows = append(rows, CapacityRow{
			Degradation: d,
			Envelope:    space,
			Message:     MaxMessage(space, false),
			MessageECC:  MaxMessage(space, true),
		})
	}
	return rows
}

// Inspect describes c.
func (c *Container) Inspect() *Info {
	info := &Info{
		Name:               c.Name,
		Format:             c.Format,
		Type:               c.Type(),
		Size:               len(c.Data),
		DefaultDegradation: c.DefaultDegradation(),
		Capacities:         c.Capacities(),
		JstegBytes:         -1,
	}
	info.Width, info.Height, _ = c.Dimensions()
	info.Duration, _ = c.Duration()
	if d, err := c.StoredDegradation(); err == nil {
		info.StoredDegradation = d
	}

	switch c.Format {
	case FormatWAV:
		info.Channels = c.pcm.channels
		info.BitDepth = c.pcm.bitDepth
		info.SampleRate = c.pcm.sampleRate
	case FormatMP3:
		info.Frames = len(c.mp3.Frames)
		if len(c.mp3.Frames) > 0 {
			h := c.mp3.Frames[0].Header
			info.FrameFormat = h.String()
			info.Channels = h.Channels()
			info.SampleRate = h.SampleRate()
		}
		info.ID3 = readID3(c.Data)
	case FormatJPEG:
		info.Components = len(c.jpeg.Components)
		info.RestartInterval = c.jpeg.RestartInterval
		info.JstegBytes = probeJsteg(c.Data)
	case FormatPNG, FormatBMP:
		info.Channels = 3
		info.BitDepth = 8
	}
	return info
}

func readID3(data []byte) *ID3 {
	if !bytes.HasPrefix(data, []byte("ID3")) {
		return nil
	}
	tag, err := id3v2.ParseReader(bytes.NewReader(data), id3v2.Options{Parse: true})
	if err != nil {
		log.Debug().Err(err).Msg("Unreadable ID3v2 tag")
		return nil
	}
	return &ID3{
		Version: tag.Version(),
		Title:   tag.Title(),
		Artist:  tag.Artist(),
		Album:   tag.Album(),
		Year:    tag.Year(),
	}
}

// probeJsteg runs the jsteg decoder over data. It recovers from panics
// because jsteg trusts the length it reads from the coefficients.
func probeJsteg(data []byte) (n int) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Interface("panic", r).Msg("jsteg probe failed")
			n = -1
		}
	}()
	hidden, err := jsteg.Reveal(bytes.NewReader(data))
	if err != nil {
		return -1
	}
	return len(hidden)
}

// GetInfo loads the file at path and describes it.
func GetInfo(path string) (*Info, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	return c.Inspect(), nil
}
