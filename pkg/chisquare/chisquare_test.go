package chisquare

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/andresmejia3/stegocodec/pkg/lsb"
	"github.com/rs/zerolog/log"
)

func init() {
	log.Logger = log.Output(io.Discard)
}

// pairBiasedCover draws values whose pairs are strongly unbalanced: even
// pairs favour the odd value, odd pairs favour the even value.
func pairBiasedCover(n int) []byte {
	r := rand.New(rand.NewSource(42))
	out := make([]byte, n)
	for i := range out {
		k := r.Intn(128)
		odd := 0
		pOdd := 0.1
		if k%2 == 0 {
			pOdd = 0.9
		}
		if r.Float64() < pOdd {
			odd = 1
		}
		out[i] = byte(2*k + odd)
	}
	return out
}

func TestChunking(t *testing.T) {
	tests := []struct {
		n, chunks int
	}{
		{0, 0}, {127, 0}, {128, 1}, {300, 2}, {1280, 10},
	}
	for _, tt := range tests {
		res := Analyze(make([]byte, tt.n))
		if len(res.PValues) != tt.chunks || len(res.LSBAverages) != tt.chunks {
			t.Errorf("n=%d: got %d chunks, want %d", tt.n, len(res.PValues), tt.chunks)
		}
	}
	if res := Analyze(nil); res.Suspicious || res.Average != 0 {
		t.Errorf("Empty input gave %+v", res)
	}
}

func TestRepeatedOddValue(t *testing.T) {
	res := Analyze(bytes.Repeat([]byte{0x55}, 1280))
	for i, p := range res.PValues {
		if p <= 0.999 {
			t.Errorf("Chunk %d: got p=%f, want > 0.999", i, p)
		}
	}
	for i, avg := range res.LSBAverages {
		if avg != 1 {
			t.Errorf("Chunk %d: got LSB average %f, want 1", i, avg)
		}
	}
	if !res.Suspicious || res.EstimatedSize != 1280 {
		t.Errorf("Got suspicious=%v size=%d, want true and 1280", res.Suspicious, res.EstimatedSize)
	}
}

func TestPairBiasedCoverIsClean(t *testing.T) {
	cover := pairBiasedCover(256 * 256 * 3)
	res := Analyze(cover)
	if res.Suspicious {
		t.Errorf("Clean cover flagged with average p=%f", res.Average)
	}
	if res.EstimatedSize > len(cover)/10 {
		t.Errorf("Estimated %d hidden bytes in a clean cover", res.EstimatedSize)
	}
}

func TestLSBEmbeddingIsFlagged(t *testing.T) {
	cover := pairBiasedCover(256 * 256 * 3)
	payload := bytes.Repeat([]byte("x"), lsb.Capacity(len(cover), 1))
	stego, err := lsb.Encode(cover, payload, 1, "pw", nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	res := Analyze(stego)
	if !res.Suspicious {
		t.Errorf("Stego cover not flagged, average p=%f", res.Average)
	}
	if res.EstimatedSize < len(stego)/2 {
		t.Errorf("Estimated only %d of %d bytes", res.EstimatedSize, len(stego))
	}
	mean := 0.0
	for _, a := range res.LSBAverages {
		mean += a
	}
	mean /= float64(len(res.LSBAverages))
	if mean < 0.45 || mean > 0.55 {
		t.Errorf("Got mean LSB average %f, want about 0.5", mean)
	}
}
