package lsb

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"testing"

	"github.com/andresmejia3/stegocodec/pkg/codec"
	"github.com/rs/zerolog/log"
)

func init() {
	log.Logger = log.Output(io.Discard)
}

func randomCover(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	out := make([]byte, n)
	r.Read(out)
	return out
}

func TestEncodeDecode(t *testing.T) {
	cover := randomCover(64*64*3, 1)
	for _, b := range []int{1, 2, 4, 8} {
		t.Run(fmt.Sprintf("%dbpb", b), func(t *testing.T) {
			msg := []byte("HELLOWORLD")
			out, err := Encode(cover, msg, b, "pw", nil)
			if err != nil {
				t.Fatalf("Encode at %d bpb failed: %v", b, err)
			}
			if len(out) != len(cover) {
				t.Fatalf("Got %d bytes, want %d", len(out), len(cover))
			}
			got, err := Decode(out, "pw", nil)
			if err != nil {
				t.Fatalf("Decode at %d bpb failed: %v", b, err)
			}
			if !bytes.Equal(got, msg) {
				t.Errorf("Got %q, want %q", got, msg)
			}
		})
	}
}

func TestEncodeLeavesCoverUntouched(t *testing.T) {
	cover := randomCover(4096, 2)
	orig := append([]byte(nil), cover...)
	if _, err := Encode(cover, []byte("x"), 2, "pw", nil); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(cover, orig) {
		t.Error("Encode modified its input")
	}
}

func TestOnlyLowBitsChange(t *testing.T) {
	cover := randomCover(8192, 3)
	for _, b := range []int{1, 2, 4} {
		out, err := Encode(cover, []byte("bits"), b, "pw", nil)
		if err != nil {
			t.Fatal(err)
		}
		mask := byte(0xFF << uint(b))
		for i := range cover {
			if cover[i]&mask != out[i]&mask {
				t.Fatalf("bpb %d: byte %d changed above the low bits (%08b -> %08b)", b, i, cover[i], out[i])
			}
		}
	}
}

func TestCapacity(t *testing.T) {
	tests := []struct {
		n, b, want int
	}{
		{64 * 64 * 3, 1, 1500},
		{2 * 2 * 3, 1, 0},
		{8, 1, 0},
		{8 + 32*8, 1, 12},
		{8 + 32*8, 8, 236},
		{1000, 3, 0},
	}
	for _, tt := range tests {
		if got := Capacity(tt.n, tt.b); got != tt.want {
			t.Errorf("Capacity(%d, %d): got %d, want %d", tt.n, tt.b, got, tt.want)
		}
	}

	prev := -1
	for n := 0; n < 3000; n += 37 {
		c := Capacity(n, 1)
		if c < prev {
			t.Fatalf("Capacity shrank from %d to %d at n=%d", prev, c, n)
		}
		prev = c
	}
	for n := 100; n < 2000; n += 101 {
		if Capacity(n, 1) > Capacity(n, 2) || Capacity(n, 2) > Capacity(n, 4) || Capacity(n, 4) > Capacity(n, 8) {
			t.Fatalf("Capacity not monotone in bits per byte at n=%d", n)
		}
	}
}

func TestMessageTooLargeBoundary(t *testing.T) {
	cover := randomCover(64*64*3, 4)
	limit := Capacity(len(cover), 1)

	msg := bytes.Repeat([]byte{'A'}, limit)
	out, err := Encode(cover, msg, 1, "pw", nil)
	if err != nil {
		t.Fatalf("Encoding exactly capacity failed: %v", err)
	}
	got, err := Decode(out, "pw", nil)
	if err != nil || !bytes.Equal(got, msg) {
		t.Fatalf("Full-capacity round trip failed: %v", err)
	}

	_, err = Encode(cover, append(msg, 'B'), 1, "pw", nil)
	if !errors.Is(err, codec.ErrMessageTooLarge) {
		t.Errorf("Got %v, want ErrMessageTooLarge", err)
	}

	_, err = Encode(randomCover(12, 5), []byte{}, 1, "pw", nil)
	if !errors.Is(err, codec.ErrMessageTooLarge) {
		t.Errorf("Tiny cover: got %v, want ErrMessageTooLarge", err)
	}
}

func TestInvalidDegradation(t *testing.T) {
	for _, b := range []int{0, 3, 5, 7, 9, 16} {
		if _, err := Encode(randomCover(1024, 6), []byte("x"), b, "pw", nil); !errors.Is(err, codec.ErrInvalidDegradation) {
			t.Errorf("bpb %d: got %v, want ErrInvalidDegradation", b, err)
		}
	}
}

func TestDecodeFailures(t *testing.T) {
	cover := randomCover(4096, 7)
	out, err := Encode(cover, []byte("secret"), 1, "right", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(out, "wrong", nil); !errors.Is(err, codec.ErrDecryptionFailure) {
		t.Errorf("Wrong password: got %v, want ErrDecryptionFailure", err)
	}

	blank := make([]byte, 4096)
	if _, err := Decode(blank, "right", nil); !errors.Is(err, codec.ErrDecryptionFailure) {
		t.Errorf("Blank cover: got %v, want ErrDecryptionFailure", err)
	}
	if _, err := Decode([]byte{1, 2, 3}, "right", nil); !errors.Is(err, codec.ErrDecryptionFailure) {
		t.Errorf("Short cover: got %v, want ErrDecryptionFailure", err)
	}
}

func TestMarker(t *testing.T) {
	s := make([]byte, 8)
	for i := range s {
		s[i] = 0xFE
	}
	WriteMarker(s, 4)
	want := []byte{0xFE, 0xFE, 0xFE, 0xFE, 0xFE, 0xFF, 0xFE, 0xFE}
	if !bytes.Equal(s, want) {
		t.Errorf("Got %x, want %x", s, want)
	}
	b, err := ReadMarker(s)
	if err != nil || b != 4 {
		t.Errorf("Got %d, %v, want 4", b, err)
	}
}

func TestEmbedExtractProgress(t *testing.T) {
	var seen []int
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	s := make([]byte, 32)
	Embed(s, 0, data, 1, codec.NewTracker(func(p int) { seen = append(seen, p) }, len(data)))
	if seen[len(seen)-1] != 100 {
		t.Errorf("Progress ended at %d, want 100", seen[len(seen)-1])
	}
	if got := Extract(s, 0, 4, 1, nil); !bytes.Equal(got, data) {
		t.Errorf("Got %x, want %x", got, data)
	}
	if s[0] != 1 || s[1] != 1 || s[2] != 0 {
		t.Errorf("Bits not written MSB first: %v", s[:8])
	}
}
