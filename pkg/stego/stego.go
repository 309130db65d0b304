package stego

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/stegocodec/pkg/codec"
	"github.com/andresmejia3/stegocodec/pkg/lsb"
	"github.com/rs/zerolog/log"
)

type ConcealArgs struct {
	CoverPath   *string
	Passphrase  *string
	Message     *string
	File        *string // "-" reads Stdin
	Output      *string
	Degradation *int // 0 or nil selects the format default
	Compress    *bool
	ECC         *bool
	DryRun      *bool
	Stdin       io.Reader
	Progress    codec.ProgressFunc
}

type RevealArgs struct {
	StegoPath  *string
	Passphrase *string
	Writer     io.Writer
	Progress   codec.ProgressFunc
}

// Report describes what a conceal or reveal did.
type Report struct {
	Format      Format
	Degradation int
	Capacity    int // envelope bytes the cover can hold
	Envelope    int // envelope bytes written or read
	MessageSize int
	Flags       byte
	Output      string
}

// ConcealOptions controls ConcealBytes.
type ConcealOptions struct {
	codec.Options
	Compress bool
	ECC      bool
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func boolean(p *bool) bool {
	return p != nil && *p
}

// DefaultOutput derives an output path that keeps the cover's extension.
func DefaultOutput(cover string) string {
	ext := filepath.Ext(cover)
	return strings.TrimSuffix(cover, ext) + ".out" + ext
}

func readMessage(args *ConcealArgs) ([]byte, error) {
	switch file := str(args.File); file {
	case "":
		return []byte(str(args.Message)), nil
	case "-":
		in := args.Stdin
		if in == nil {
			in = os.Stdin
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	default:
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		return data, nil
	}
}

// prepare seals message and fills in the report for c.
func prepare(c *Container, message []byte, opts *ConcealOptions) ([]byte, *Report, error) {
	if opts.Degradation == 0 {
		opts.Degradation = c.DefaultDegradation()
	}
	capacity, err := c.Capacity(opts.Degradation)
	if err != nil {
		return nil, nil, err
	}
	envelope, err := Seal(message, opts.Compress, opts.ECC)
	if err != nil {
		return nil, nil, err
	}
	return envelope, &Report{
		Format:      c.Format,
		Degradation: opts.Degradation,
		Capacity:    capacity,
		Envelope:    len(envelope),
		MessageSize: len(message),
		Flags:       envelope[0],
	}, nil
}

// ConcealBytes seals message in an envelope and hides it in c.
func ConcealBytes(c *Container, message []byte, opts ConcealOptions) ([]byte, *Report, error) {
	envelope, report, err := prepare(c, message, &opts)
	if err != nil {
		return nil, nil, err
	}
	out, err := c.Encode(envelope, opts.Options)
	if err != nil {
		return nil, report, err
	}
	return out, report, nil
}

// RevealBytes recovers and opens the envelope hidden in c.
func RevealBytes(c *Container, password string, progress codec.ProgressFunc) ([]byte, *Report, error) {
	envelope, err := c.Decode(codec.Options{Password: password, Progress: progress})
	if err != nil {
		return nil, nil, err
	}
	message, flags, err := Open(envelope)
	if err != nil {
		return nil, nil, err
	}
	report := &Report{
		Format:      c.Format,
		Envelope:    len(envelope),
		MessageSize: len(message),
		Flags:       flags,
	}
	if d, err := c.StoredDegradation(); err == nil {
		report.Degradation = d
		report.Capacity, _ = c.Capacity(d)
	}
	return message, report, nil
}

// StoredDegradation reads the degradation recorded in a stego container.
func (c *Container) StoredDegradation() (int, error) {
	switch c.Format {
	case FormatJPEG:
		return c.jpeg.Degradation()
	case FormatMP3:
		return 0, nil
	}
	samples, err := c.Samples()
	if err != nil {
		return 0, err
	}
	return lsb.ReadMarker(samples)
}

// Conceal hides the message or file named by args in the cover and writes
// the result to args.Output. With DryRun set it only checks the fit.
func Conceal(args *ConcealArgs) (*Report, error) {
	cover := str(args.CoverPath)
	c, err := Load(cover)
	if err != nil {
		return nil, err
	}
	message, err := readMessage(args)
	if err != nil {
		return nil, err
	}

	opts := ConcealOptions{
		Options: codec.Options{
			Password: str(args.Passphrase),
			Progress: args.Progress,
		},
		Compress: boolean(args.Compress),
		ECC:      boolean(args.ECC),
	}
	if args.Degradation != nil {
		opts.Degradation = *args.Degradation
	}

	if boolean(args.DryRun) {
		return dryRun(c, message, opts)
	}

	out, report, err := ConcealBytes(c, message, opts)
	if err != nil {
		return report, err
	}
	output := str(args.Output)
	if output == "" {
		output = DefaultOutput(cover)
	}
	if err := os.WriteFile(output, out, 0644); err != nil {
		return report, err
	}
	report.Output = output
	log.Debug().Str("output", output).Int("envelope", report.Envelope).Int("capacity", report.Capacity).Msg("Concealed message")
	return report, nil
}

func dryRun(c *Container, message []byte, opts ConcealOptions) (*Report, error) {
	_, report, err := prepare(c, message, &opts)
	if err != nil {
		return nil, err
	}
	if report.Envelope > report.Capacity {
		return report, fmt.Errorf("%w: %d bytes, capacity %d", codec.ErrMessageTooLarge, report.Envelope, report.Capacity)
	}
	return report, nil
}

// Reveal extracts the hidden message and writes it to args.Writer
// (stdout when nil).
func Reveal(args *RevealArgs) (*Report, error) {
	c, err := Load(str(args.StegoPath))
	if err != nil {
		return nil, err
	}
	message, report, err := RevealBytes(c, str(args.Passphrase), args.Progress)
	if err != nil {
		return nil, err
	}
	w := args.Writer
	if w == nil {
		w = os.Stdout
	}
	if _, err := w.Write(message); err != nil {
		return report, err
	}
	return report, nil
}

// Verify checks that the container holds a message the passphrase opens,
// without writing the message anywhere.
func Verify(args *RevealArgs) (*Report, error) {
	c, err := Load(str(args.StegoPath))
	if err != nil {
		return nil, err
	}
	_, report, err := RevealBytes(c, str(args.Passphrase), args.Progress)
	if errors.Is(err, codec.ErrDecryptionFailure) {
		return nil, fmt.Errorf("no message recoverable with this passphrase: %w", err)
	}
	return report, err
}

// FlagNames renders envelope flags for display.
func FlagNames(flags byte) string {
	var names []string
	if flags&FlagCompressed != 0 {
		names = append(names, "zstd")
	}
	if flags&FlagECC != 0 {
		names = append(names, "reed-solomon")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
