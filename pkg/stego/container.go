package stego

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andresmejia3/stegocodec/pkg/codec"
	"github.com/andresmejia3/stegocodec/pkg/guard"
	"github.com/andresmejia3/stegocodec/pkg/jpeg"
	"github.com/andresmejia3/stegocodec/pkg/lsb"
	"github.com/andresmejia3/stegocodec/pkg/mp3"
	"github.com/rs/zerolog/log"
)

// Type is the broad kind of a cover.
type Type int

const (
	TypeImage Type = iota
	TypeAudio
)

func (t Type) String() string {
	if t == TypeAudio {
		return "audio"
	}
	return "image"
}

// Format is a supported container format.
type Format int

const (
	FormatUnknown Format = iota
	FormatPNG
	FormatBMP
	FormatJPEG
	FormatWAV
	FormatMP3
)

var formatNames = map[Format]string{
	FormatUnknown: "unknown",
	FormatPNG:     "PNG",
	FormatBMP:     "BMP",
	FormatJPEG:    "JPEG",
	FormatWAV:     "WAV",
	FormatMP3:     "MP3",
}

func (f Format) String() string { return formatNames[f] }

func (f Format) Type() Type {
	if f == FormatWAV || f == FormatMP3 {
		return TypeAudio
	}
	return TypeImage
}

var extensions = map[string]Format{
	".png":  FormatPNG,
	".bmp":  FormatBMP,
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".wav":  FormatWAV,
	".mp3":  FormatMP3,
}

// sniff identifies data by its magic bytes.
func sniff(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG
	case bytes.HasPrefix(data, []byte("BM")):
		return FormatBMP
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return FormatJPEG
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case bytes.HasPrefix(data, []byte("ID3")),
		len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	}
	return FormatUnknown
}

// DetectFormat picks the format from the file extension and checks it
// against the magic bytes. An unknown extension falls back to the magic
// bytes alone. MP3 files may start with junk, so an unrecognised prefix does
// not contradict a .mp3 extension.
func DetectFormat(name string, data []byte) (Format, error) {
	magic := sniff(data)
	ext := strings.ToLower(filepath.Ext(name))
	byExt, known := extensions[ext]
	switch {
	case !known && magic == FormatUnknown:
		return FormatUnknown, fmt.Errorf("%w: %q", codec.ErrUnsupportedFormat, name)
	case !known:
		return magic, nil
	case magic == byExt, byExt == FormatMP3 && magic == FormatUnknown:
		return byExt, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %q has a %s extension but %s content", codec.ErrUnsupportedFormat, name, byExt, magic)
}

// Container is a cover file together with its parsed model. The model is
// only read; Encode works on a fresh parse so a Container can be reused.
type Container struct {
	Name   string
	Data   []byte
	Format Format

	raster *raster
	pcm    *pcm
	jpeg   *jpeg.Image
	mp3    *mp3.Stream
}

// NewContainer detects the format of data and parses it.
func NewContainer(name string, data []byte) (*Container, error) {
	format, err := DetectFormat(name, data)
	if err != nil {
		return nil, err
	}
	c := &Container{Name: name, Data: data, Format: format}
	switch format {
	case FormatPNG, FormatBMP:
		c.raster, err = decodeRaster(data, format)
	case FormatWAV:
		c.pcm, err = locatePCM(data)
	case FormatJPEG:
		c.jpeg, err = jpeg.Parse(data)
	case FormatMP3:
		c.mp3, err = mp3.Parse(data)
	}
	if err != nil {
		return nil, err
	}
	log.Debug().Str("name", name).Str("format", format.String()).Int("bytes", len(data)).Msg("Loaded container")
	return c, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewContainer(filepath.Base(path), data)
}

func (c *Container) Type() Type { return c.Format.Type() }

// Degradations lists the degradation values the format accepts. MP3 has a
// single fixed channel, reported as 0.
func (c *Container) Degradations() []int {
	switch c.Format {
	case FormatJPEG:
		out := make([]int, jpeg.MaxDegradation)
		for i := range out {
			out[i] = i + 1
		}
		return out
	case FormatMP3:
		return []int{0}
	}
	return []int{1, 2, 4, 8}
}

// DefaultDegradation is used when the caller does not choose one.
func (c *Container) DefaultDegradation() int {
	switch c.Format {
	case FormatJPEG:
		return 4
	case FormatMP3:
		return 0
	}
	return 1
}

func (c *Container) checkDegradation(d int) error {
	switch c.Format {
	case FormatJPEG:
		if d < 1 || d > jpeg.MaxDegradation {
			return fmt.Errorf("%w: %d coefficients per block", codec.ErrInvalidDegradation, d)
		}
	case FormatMP3:
	default:
		if !lsb.ValidDegradation(d) {
			return fmt.Errorf("%w: %d bits per byte", codec.ErrInvalidDegradation, d)
		}
	}
	return nil
}

// Capacity is the largest envelope in bytes that Encode accepts at
// degradation d. JPEG and MP3 payloads are encrypted before embedding, so
// their capacity leaves room for the cipher padding.
func (c *Container) Capacity(d int) (int, error) {
	if err := c.checkDegradation(d); err != nil {
		return 0, err
	}
	switch c.Format {
	case FormatJPEG:
		return guard.MaxPlainLen(c.jpeg.Capacity(d)), nil
	case FormatMP3:
		return guard.MaxPlainLen(c.mp3.Capacity()), nil
	}
	samples, err := c.Samples()
	if err != nil {
		return 0, err
	}
	return lsb.Capacity(len(samples), d), nil
}

// Samples returns the bytes a detector should look at: RGB bytes for
// rasters, PCM bytes for WAV and the low byte of every AC coefficient for
// JPEG. MP3 has no sample plane.
func (c *Container) Samples() ([]byte, error) {
	switch c.Format {
	case FormatPNG, FormatBMP:
		return c.raster.samples(), nil
	case FormatWAV:
		return c.pcm.samples(c.Data), nil
	case FormatJPEG:
		out := make([]byte, 0, len(c.jpeg.Units)*63)
		for _, du := range c.jpeg.Units {
			for _, v := range du.AC {
				out = append(out, byte(v))
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s has no sample plane", codec.ErrUnsupportedFormat, c.Format)
}

// Encode hides payload and returns the new container bytes. The receiver
// is not modified.
func (c *Container) Encode(payload []byte, opts codec.Options) ([]byte, error) {
	if err := c.checkDegradation(opts.Degradation); err != nil {
		return nil, err
	}
	capacity, _ := c.Capacity(opts.Degradation)
	if len(payload) > capacity {
		return nil, fmt.Errorf("%w: %d bytes, capacity %d", codec.ErrMessageTooLarge, len(payload), capacity)
	}
	log.Debug().Str("format", c.Format.String()).Int("degradation", opts.Degradation).Int("payload", len(payload)).Int("capacity", capacity).Msg("Encoding")

	switch c.Format {
	case FormatPNG, FormatBMP:
		samples, err := lsb.Encode(c.raster.samples(), payload, opts.Degradation, opts.Password, opts.Progress)
		if err != nil {
			return nil, err
		}
		return c.raster.withSamples(samples)
	case FormatWAV:
		samples, err := lsb.Encode(c.pcm.samples(c.Data), payload, opts.Degradation, opts.Password, opts.Progress)
		if err != nil {
			return nil, err
		}
		return c.pcm.withSamples(c.Data, samples)
	}

	sealed, err := guard.Encrypt(opts.Password, payload)
	if err != nil {
		return nil, err
	}
	tr := codec.NewTracker(opts.Progress, 3)
	defer tr.Done()

	if c.Format == FormatJPEG {
		img, err := jpeg.Parse(c.Data)
		if err != nil {
			return nil, err
		}
		tr.Add(1)
		if err := img.Embed(sealed, opts.Degradation); err != nil {
			return nil, err
		}
		tr.Add(1)
		return img.Regenerate()
	}

	st, err := mp3.Parse(c.Data)
	if err != nil {
		return nil, err
	}
	tr.Add(1)
	if err := st.Embed(sealed); err != nil {
		return nil, err
	}
	tr.Add(1)
	return st.Bytes(), nil
}

// Decode recovers a payload hidden by Encode. The degradation is read from
// the container itself; opts.Degradation is ignored.
func (c *Container) Decode(opts codec.Options) ([]byte, error) {
	switch c.Format {
	case FormatPNG, FormatBMP:
		return lsb.Decode(c.raster.samples(), opts.Password, opts.Progress)
	case FormatWAV:
		return lsb.Decode(c.pcm.samples(c.Data), opts.Password, opts.Progress)
	}

	var (
		sealed []byte
		err    error
	)
	if c.Format == FormatJPEG {
		sealed, err = c.jpeg.Extract()
	} else {
		sealed, err = c.mp3.Extract()
	}
	if err != nil {
		return nil, err
	}
	tr := codec.NewTracker(opts.Progress, 1)
	defer tr.Done()
	return guard.Decrypt(opts.Password, sealed)
}

// Dimensions returns the pixel size of an image cover.
func (c *Container) Dimensions() (width, height int, ok bool) {
	switch c.Format {
	case FormatPNG, FormatBMP:
		return c.raster.width(), c.raster.height(), true
	case FormatJPEG:
		return c.jpeg.Width, c.jpeg.Height, true
	}
	return 0, 0, false
}

// Duration returns the playing time of an audio cover.
func (c *Container) Duration() (time.Duration, bool) {
	switch c.Format {
	case FormatWAV:
		return c.pcm.duration, true
	case FormatMP3:
		return c.mp3.Duration(), true
	}
	return 0, false
}
