package stego

import (
	"fmt"
	"math"

	"github.com/andresmejia3/stegocodec/pkg/chisquare"
	"github.com/andresmejia3/stegocodec/pkg/codec"
	"github.com/rs/zerolog/log"
)

type AnalyzeArgs struct {
	StegoPath    *string
	OriginalPath *string // optional; enables MSE and PSNR
	Progress     codec.ProgressFunc
}

// AnalysisResult holds the detector verdict and, when an original was
// given, the distortion between the two sample planes.
type AnalysisResult struct {
	Format    Format
	Samples   int
	ChiSquare chisquare.Result

	Compared bool
	MSE      float64 // Mean Squared Error
	PSNR     float64 // Peak Signal-to-Noise Ratio (dB), +Inf when identical
	Changed  int     // samples that differ
}

// Compare returns the MSE and PSNR between two equally sized sample planes.
func Compare(original, stego []byte, progress codec.ProgressFunc) (mse, psnr float64, changed int, err error) {
	if len(original) != len(stego) {
		return 0, 0, 0, fmt.Errorf("sample planes do not match: %d vs %d bytes", len(original), len(stego))
	}
	if len(original) == 0 {
		return 0, math.Inf(1), 0, nil
	}
	tr := codec.NewTracker(progress, len(original))
	var sumSquaredError float64
	for i := range original {
		diff := float64(original[i]) - float64(stego[i])
		sumSquaredError += diff * diff
		if diff != 0 {
			changed++
		}
		tr.Add(1)
	}
	mse = sumSquaredError / float64(len(original))
	if mse == 0 {
		return 0, math.Inf(1), 0, nil
	}
	psnr = 10 * math.Log10((255*255)/mse)
	return mse, psnr, changed, nil
}

// AnalyzeContainer runs the chi-square detector over c and compares it with
// original when that is not nil.
func AnalyzeContainer(c, original *Container, progress codec.ProgressFunc) (*AnalysisResult, error) {
	samples, err := c.Samples()
	if err != nil {
		return nil, err
	}
	res := &AnalysisResult{
		Format:    c.Format,
		Samples:   len(samples),
		ChiSquare: chisquare.Analyze(samples),
	}
	log.Debug().Int("samples", len(samples)).Float64("average", res.ChiSquare.Average).Bool("suspicious", res.ChiSquare.Suspicious).Msg("Chi-square analysis")

	if original == nil {
		return res, nil
	}
	if original.Format != c.Format {
		return nil, fmt.Errorf("cannot compare %s with %s", original.Format, c.Format)
	}
	base, err := original.Samples()
	if err != nil {
		return nil, err
	}
	res.MSE, res.PSNR, res.Changed, err = Compare(base, samples, progress)
	if err != nil {
		return nil, err
	}
	res.Compared = true
	return res, nil
}

// Analyze loads the files named by args and analyzes them.
func Analyze(args *AnalyzeArgs) (*AnalysisResult, error) {
	c, err := Load(str(args.StegoPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load stego file: %w", err)
	}
	var original *Container
	if path := str(args.OriginalPath); path != "" {
		original, err = Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load original: %w", err)
		}
	}
	return AnalyzeContainer(c, original, args.Progress)
}
