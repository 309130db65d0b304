package stego

import (
	"bytes"
	"errors"
	stdjpeg "image/jpeg"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andresmejia3/stegocodec/pkg/codec"
)

func TestEndToEndHelloWorld(t *testing.T) {
	tmpDir := t.TempDir()
	inputPath := filepath.Join(tmpDir, "cover.bmp")
	outputPath := filepath.Join(tmpDir, "stego.bmp")
	if err := os.WriteFile(inputPath, bmpFixture(t, 64, 64), 0644); err != nil {
		t.Fatalf("Failed to write cover: %v", err)
	}

	message := "HELLOWORLD"
	passphrase := "correct-horse-battery-staple"
	degradation := 1

	var percents []int
	cArgs := &ConcealArgs{
		CoverPath:   &inputPath,
		Passphrase:  &passphrase,
		Message:     &message,
		Output:      &outputPath,
		Degradation: &degradation,
		Progress:    func(p int) { percents = append(percents, p) },
	}
	report, err := Conceal(cArgs)
	if err != nil {
		t.Fatalf("Conceal failed: %v", err)
	}
	if report.Capacity != 1500 {
		t.Errorf("Got capacity %d, want 1500", report.Capacity)
	}
	if report.Envelope != len(message)+1 {
		t.Errorf("Got envelope of %d bytes, want %d", report.Envelope, len(message)+1)
	}
	if len(percents) == 0 || percents[len(percents)-1] != 100 {
		t.Errorf("Got progress %v, want it to end at 100", percents)
	}

	var out bytes.Buffer
	rArgs := &RevealArgs{
		StegoPath:  &outputPath,
		Passphrase: &passphrase,
		Writer:     &out,
	}
	revealed, err := Reveal(rArgs)
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if out.String() != message {
		t.Errorf("Got %q, want %q", out.String(), message)
	}
	if revealed.Degradation != 1 || revealed.Format != FormatBMP {
		t.Errorf("Got %+v, want a 1 bit BMP report", revealed)
	}

	wrong := "wrong-passphrase"
	rArgs.Passphrase = &wrong
	out.Reset()
	if _, err := Reveal(rArgs); err == nil && out.String() == message {
		t.Errorf("Wrong passphrase revealed the message")
	}
}

func TestConcealDefaultOutputAndFile(t *testing.T) {
	tmpDir := t.TempDir()
	cover := filepath.Join(tmpDir, "cover.png")
	secret := filepath.Join(tmpDir, "secret.txt")
	os.WriteFile(cover, pngFixture(t, 48, 48, false), 0644)
	os.WriteFile(secret, []byte("from a file"), 0644)

	pass := "pw"
	report, err := Conceal(&ConcealArgs{CoverPath: &cover, Passphrase: &pass, File: &secret})
	if err != nil {
		t.Fatalf("Conceal failed: %v", err)
	}
	want := filepath.Join(tmpDir, "cover.out.png")
	if report.Output != want {
		t.Errorf("Got output %q, want %q", report.Output, want)
	}

	var out bytes.Buffer
	if _, err := Reveal(&RevealArgs{StegoPath: &want, Passphrase: &pass, Writer: &out}); err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if out.String() != "from a file" {
		t.Errorf("Got %q, want %q", out.String(), "from a file")
	}
}

func TestConcealStdin(t *testing.T) {
	tmpDir := t.TempDir()
	cover := filepath.Join(tmpDir, "cover.wav")
	output := filepath.Join(tmpDir, "stego.wav")
	os.WriteFile(cover, wavFixture(t, 4000), 0644)

	pass, dash := "pw", "-"
	_, err := Conceal(&ConcealArgs{
		CoverPath:  &cover,
		Passphrase: &pass,
		File:       &dash,
		Output:     &output,
		Stdin:      strings.NewReader("piped in"),
	})
	if err != nil {
		t.Fatalf("Conceal failed: %v", err)
	}
	var out bytes.Buffer
	if _, err := Reveal(&RevealArgs{StegoPath: &output, Passphrase: &pass, Writer: &out}); err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if out.String() != "piped in" {
		t.Errorf("Got %q, want %q", out.String(), "piped in")
	}
}

func TestRoundTripAllFormats(t *testing.T) {
	message := []byte("Meet me at the usual place at nine.")

	tests := []struct {
		name string
		file string
		data []byte
		d    int
	}{
		{"png", "cover.png", pngFixture(t, 40, 40, true), 1},
		{"png 8 bits", "cover.png", pngFixture(t, 40, 40, false), 8},
		{"bmp", "cover.bmp", bmpFixture(t, 40, 40), 2},
		{"wav", "cover.wav", wavFixture(t, 4000), 4},
		{"jpeg", "cover.jpg", jpegFixture(t, 64, 64), 8},
		{"jpeg default", "cover.jpeg", jpegFixture(t, 96, 96), 0},
		{"mp3", "cover.mp3", mp3Fixture(t, 200, true), 0},
	}
	for _, tt := range tests {
		for _, env := range []struct{ compress, ecc bool }{{false, false}, {true, false}, {false, true}} {
			name := tt.name
			if env.compress {
				name += " zstd"
			}
			if env.ecc {
				name += " ecc"
			}
			t.Run(name, func(t *testing.T) {
				c, err := NewContainer(tt.file, tt.data)
				if err != nil {
					t.Fatalf("NewContainer failed: %v", err)
				}
				opts := ConcealOptions{
					Options:  codec.Options{Degradation: tt.d, Password: "secret"},
					Compress: env.compress,
					ECC:      env.ecc,
				}
				out, report, err := ConcealBytes(c, message, opts)
				if err != nil {
					t.Fatalf("ConcealBytes failed: %v", err)
				}

				stego, err := NewContainer(tt.file, out)
				if err != nil {
					t.Fatalf("Output does not parse: %v", err)
				}
				got, revealed, err := RevealBytes(stego, "secret", nil)
				if err != nil {
					t.Fatalf("RevealBytes failed: %v", err)
				}
				if !bytes.Equal(got, message) {
					t.Errorf("Got %q, want %q", got, message)
				}
				if revealed.Flags != report.Flags {
					t.Errorf("Got flags %#02x, want %#02x", revealed.Flags, report.Flags)
				}
				if revealed.Degradation != report.Degradation {
					t.Errorf("Got degradation %d, want %d", revealed.Degradation, report.Degradation)
				}

				if _, _, err := RevealBytes(stego, "not the secret", nil); err == nil {
					t.Errorf("Wrong password opened the envelope")
				}
			})
		}
	}
}

func TestConcealedJPEGStillDecodes(t *testing.T) {
	c, err := NewContainer("photo.jpg", jpegFixture(t, 64, 64))
	if err != nil {
		t.Fatalf("NewContainer failed: %v", err)
	}
	out, _, err := ConcealBytes(c, []byte("still a jpeg"), ConcealOptions{Options: codec.Options{Degradation: 4, Password: "pw"}})
	if err != nil {
		t.Fatalf("ConcealBytes failed: %v", err)
	}
	img, err := stdjpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Output is not a JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Errorf("Got %v, want 64x64", b)
	}
}

func TestMessageTooLargeBoundary(t *testing.T) {
	covers := []struct {
		file string
		data []byte
		d    int
	}{
		{"cover.bmp", bmpFixture(t, 64, 64), 1},
		{"cover.jpg", jpegFixture(t, 64, 64), 4},
		{"cover.mp3", mp3Fixture(t, 200, false), 0},
	}
	for _, cv := range covers {
		t.Run(cv.file, func(t *testing.T) {
			c, err := NewContainer(cv.file, cv.data)
			if err != nil {
				t.Fatalf("NewContainer failed: %v", err)
			}
			space, err := c.Capacity(cv.d)
			if err != nil {
				t.Fatalf("Capacity failed: %v", err)
			}
			n := MaxMessage(space, false)
			opts := ConcealOptions{Options: codec.Options{Degradation: cv.d, Password: "pw"}}

			if _, _, err := ConcealBytes(c, bytes.Repeat([]byte{'x'}, n), opts); err != nil {
				t.Errorf("%d bytes should fit: %v", n, err)
			}
			if _, _, err := ConcealBytes(c, bytes.Repeat([]byte{'x'}, n+1), opts); !errors.Is(err, codec.ErrMessageTooLarge) {
				t.Errorf("Got %v, want ErrMessageTooLarge", err)
			}
		})
	}
}

func TestDryRun(t *testing.T) {
	tmpDir := t.TempDir()
	cover := filepath.Join(tmpDir, "cover.bmp")
	output := filepath.Join(tmpDir, "never.bmp")
	os.WriteFile(cover, bmpFixture(t, 16, 16), 0644)

	pass, dry := "pw", true
	small, large := "fits", strings.Repeat("y", 500)

	report, err := Conceal(&ConcealArgs{CoverPath: &cover, Passphrase: &pass, Message: &small, Output: &output, DryRun: &dry})
	if err != nil {
		t.Fatalf("Dry run failed: %v", err)
	}
	if report.Envelope != 5 {
		t.Errorf("Got envelope %d, want 5", report.Envelope)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Errorf("Dry run wrote %s", output)
	}

	if _, err := Conceal(&ConcealArgs{CoverPath: &cover, Passphrase: &pass, Message: &large, DryRun: &dry}); !errors.Is(err, codec.ErrMessageTooLarge) {
		t.Errorf("Got %v, want ErrMessageTooLarge", err)
	}
}

func TestVerify(t *testing.T) {
	tmpDir := t.TempDir()
	cover := filepath.Join(tmpDir, "cover.mp3")
	output := filepath.Join(tmpDir, "stego.mp3")
	os.WriteFile(cover, mp3Fixture(t, 200, true), 0644)

	pass, msg, ecc := "pw", "verify me", true
	if _, err := Conceal(&ConcealArgs{CoverPath: &cover, Passphrase: &pass, Message: &msg, Output: &output, ECC: &ecc}); err != nil {
		t.Fatalf("Conceal failed: %v", err)
	}

	report, err := Verify(&RevealArgs{StegoPath: &output, Passphrase: &pass})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if report.MessageSize != len(msg) || report.Flags != FlagECC {
		t.Errorf("Got %+v, want %d bytes with reed-solomon", report, len(msg))
	}
	if got := FlagNames(report.Flags); got != "reed-solomon" {
		t.Errorf("Got %q, want %q", got, "reed-solomon")
	}

	wrong := "nope"
	if _, err := Verify(&RevealArgs{StegoPath: &output, Passphrase: &wrong}); err == nil {
		t.Errorf("Verify accepted a wrong passphrase")
	}
	if _, err := Verify(&RevealArgs{StegoPath: &cover, Passphrase: &pass}); !errors.Is(err, codec.ErrDecryptionFailure) {
		t.Errorf("Got %v, want ErrDecryptionFailure for a clean cover", err)
	}
}

func TestGetInfo(t *testing.T) {
	tmpDir := t.TempDir()
	write := func(name string, data []byte) string {
		p := filepath.Join(tmpDir, name)
		os.WriteFile(p, data, 0644)
		return p
	}

	t.Run("bmp", func(t *testing.T) {
		info, err := GetInfo(write("cover.bmp", bmpFixture(t, 64, 64)))
		if err != nil {
			t.Fatalf("GetInfo failed: %v", err)
		}
		if info.Width != 64 || info.Height != 64 || info.Type != TypeImage {
			t.Errorf("Got %+v, want a 64x64 image", info)
		}
		if len(info.Capacities) != 4 || info.Capacities[0].Envelope != 1500 || info.Capacities[0].Message != 1499 {
			t.Errorf("Got capacities %+v", info.Capacities)
		}
	})

	t.Run("wav", func(t *testing.T) {
		info, err := GetInfo(write("tone.wav", wavFixture(t, 44100)))
		if err != nil {
			t.Fatalf("GetInfo failed: %v", err)
		}
		if info.Channels != 1 || info.BitDepth != 16 || info.SampleRate != 44100 {
			t.Errorf("Got %+v, want 16-bit mono at 44100 Hz", info)
		}
		if info.Duration.Seconds() != 1 {
			t.Errorf("Got duration %v, want 1s", info.Duration)
		}
	})

	t.Run("mp3", func(t *testing.T) {
		info, err := GetInfo(write("song.mp3", mp3Fixture(t, 100, true)))
		if err != nil {
			t.Fatalf("GetInfo failed: %v", err)
		}
		if info.Frames != 100 || info.SampleRate != 44100 || info.Channels != 1 {
			t.Errorf("Got %+v, want 100 mono frames at 44100 Hz", info)
		}
		if info.ID3 == nil || info.ID3.Title != "Cover Song" || info.ID3.Artist != "Nobody" {
			t.Errorf("Got ID3 %+v, want the fixture tag", info.ID3)
		}
		if len(info.Capacities) != 1 || info.Capacities[0].Degradation != 0 {
			t.Errorf("Got capacities %+v", info.Capacities)
		}
	})

	t.Run("jpeg", func(t *testing.T) {
		info, err := GetInfo(write("photo.jpg", jpegFixture(t, 64, 48)))
		if err != nil {
			t.Fatalf("GetInfo failed: %v", err)
		}
		if info.Width != 64 || info.Height != 48 || info.Components != 3 {
			t.Errorf("Got %+v, want a 64x48 colour JPEG", info)
		}
		if len(info.Capacities) != 54 {
			t.Errorf("Got %d capacity rows, want 54", len(info.Capacities))
		}
	})
}

func TestAnalyze(t *testing.T) {
	tmpDir := t.TempDir()
	cover := filepath.Join(tmpDir, "cover.png")
	output := filepath.Join(tmpDir, "stego.png")
	os.WriteFile(cover, pngFixture(t, 64, 64, false), 0644)

	pass, msg, d := "pw", strings.Repeat("z", 1000), 1
	if _, err := Conceal(&ConcealArgs{CoverPath: &cover, Passphrase: &pass, Message: &msg, Output: &output, Degradation: &d}); err != nil {
		t.Fatalf("Conceal failed: %v", err)
	}

	res, err := Analyze(&AnalyzeArgs{StegoPath: &output, OriginalPath: &cover})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Samples != 64*64*3 || len(res.ChiSquare.PValues) != 64*64*3/128 {
		t.Errorf("Got %d samples and %d chunks", res.Samples, len(res.ChiSquare.PValues))
	}
	if !res.Compared || res.Changed == 0 {
		t.Fatalf("Got %+v, want a comparison with changes", res)
	}
	if res.MSE > 1 || res.PSNR < 48 {
		t.Errorf("Got MSE %.4f PSNR %.2f, want at most one level per sample", res.MSE, res.PSNR)
	}

	same, err := Analyze(&AnalyzeArgs{StegoPath: &cover, OriginalPath: &cover})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !math.IsInf(same.PSNR, 1) || same.MSE != 0 {
		t.Errorf("Got MSE %.4f PSNR %.2f for identical files", same.MSE, same.PSNR)
	}

	mp3Path := filepath.Join(tmpDir, "song.mp3")
	os.WriteFile(mp3Path, mp3Fixture(t, 10, false), 0644)
	if _, err := Analyze(&AnalyzeArgs{StegoPath: &mp3Path}); !errors.Is(err, codec.ErrUnsupportedFormat) {
		t.Errorf("Got %v, want ErrUnsupportedFormat", err)
	}
}

func TestCompare(t *testing.T) {
	mse, psnr, changed, err := Compare([]byte{10, 20, 30, 40}, []byte{10, 22, 30, 40}, nil)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if mse != 1 || changed != 1 {
		t.Errorf("Got MSE %v and %d changes, want 1 and 1", mse, changed)
	}
	if want := 10 * math.Log10(255*255); math.Abs(psnr-want) > 1e-9 {
		t.Errorf("Got PSNR %v, want %v", psnr, want)
	}
	if _, _, _, err := Compare([]byte{1}, []byte{1, 2}, nil); err == nil {
		t.Errorf("Compare accepted planes of different sizes")
	}
}
