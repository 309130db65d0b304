// Package chisquare implements the pairs-of-values chi-square attack on LSB
// embedding. Sequential LSB replacement equalizes the counts of each value
// pair (2k, 2k+1); the test measures how close a byte stream is to that
// equalized state.
package chisquare

import (
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// ChunkSize is the number of bytes tested at a time.
	ChunkSize = 128

	// Threshold is the average p-value above which a stream is suspicious.
	Threshold = 0.2

	// chunks with a p-value above this count towards the size estimate
	estimateThreshold = 0.8
	pairs             = 128
)

// Result is the outcome of Analyze.
type Result struct {
	PValues       []float64 // per chunk, histogram accumulated up to that chunk
	LSBAverages   []float64 // fraction of set LSBs per chunk
	Average       float64
	Suspicious    bool
	EstimatedSize int // bytes
}

// Analyze runs the attack over samples in ChunkSize chunks. A trailing
// partial chunk is ignored.
func Analyze(samples []byte) Result {
	chunks := len(samples) / ChunkSize
	res := Result{
		PValues:     make([]float64, 0, chunks),
		LSBAverages: make([]float64, 0, chunks),
	}

	var hist [256]float64
	for i := range hist {
		hist[i] = 1
	}
	dist := distuv.ChiSquared{K: pairs - 1}
	observed := make([]float64, pairs)
	expected := make([]float64, pairs)

	for c := 0; c < chunks; c++ {
		ones := 0
		for _, b := range samples[c*ChunkSize : (c+1)*ChunkSize] {
			hist[b]++
			ones += int(b & 1)
		}

		var sumObs, sumExp float64
		for k := 0; k < pairs; k++ {
			observed[k] = hist[2*k+1]
			expected[k] = (hist[2*k] + hist[2*k+1]) / 2
			sumObs += observed[k]
			sumExp += expected[k]
		}
		ratio := sumObs / sumExp
		for k := range expected {
			expected[k] *= ratio
		}

		p := dist.Survival(stat.ChiSquare(observed, expected))
		res.PValues = append(res.PValues, p)
		res.LSBAverages = append(res.LSBAverages, float64(ones)/ChunkSize)
		res.Average += p
		if p > estimateThreshold {
			res.EstimatedSize += ChunkSize
		}
	}
	if chunks > 0 {
		res.Average /= float64(chunks)
	}
	res.Suspicious = res.Average > Threshold
	return res
}
