package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func init() {
	log.Logger = log.Output(io.Discard)
	gin.SetMode(gin.TestMode)
}

func coverPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 48, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 5), uint8(y * 5), uint8(x ^ y), 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

type upload struct {
	field, name string
	data        []byte
}

func post(t *testing.T, router http.Handler, path string, fields map[string]string, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		part.Write(f.data)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	router := NewRouter(Config{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Got status %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("Got status %v, want healthy", body["status"])
	}
}

func TestCapacity(t *testing.T) {
	router := NewRouter(Config{})
	rec := post(t, router, "/api/v1/capacity", nil, upload{"file", "cover.png", coverPNG(t)})
	if rec.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", rec.Code, rec.Body)
	}
	var resp CapacityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if resp.Format != "PNG" || resp.Type != "image" || len(resp.Capacities) != 4 {
		t.Errorf("Got %+v", resp)
	}
	for i := 1; i < len(resp.Capacities); i++ {
		if resp.Capacities[i].Envelope < resp.Capacities[i-1].Envelope {
			t.Errorf("Capacity dropped at %d bits", resp.Capacities[i].Degradation)
		}
	}
}

func TestConcealReveal(t *testing.T) {
	router := NewRouter(Config{AllowOrigins: []string{"http://localhost:3000"}})
	cover := coverPNG(t)

	rec := post(t, router, "/api/v1/conceal",
		map[string]string{"password": "pw", "message": "over http", "degradation": "2", "compress": "true"},
		upload{"cover", "cover.png", cover})
	if rec.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Got content type %q, want image/png", ct)
	}
	if got := rec.Header().Get(HeaderDegradation); got != "2" {
		t.Errorf("Got degradation %q, want 2", got)
	}
	if got := rec.Header().Get(HeaderFlags); got != "zstd" {
		t.Errorf("Got flags %q, want zstd", got)
	}
	psnr, err := strconv.ParseFloat(rec.Header().Get(HeaderPSNR), 64)
	if err != nil || psnr < 40 {
		t.Errorf("Got PSNR header %q, want above 40 dB", rec.Header().Get(HeaderPSNR))
	}
	stegoFile := rec.Body.Bytes()

	rec = post(t, router, "/api/v1/reveal", map[string]string{"password": "pw"}, upload{"file", "cover_stego.png", stegoFile})
	if rec.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", rec.Code, rec.Body)
	}
	if rec.Body.String() != "over http" {
		t.Errorf("Got %q, want %q", rec.Body.String(), "over http")
	}

	rec = post(t, router, "/api/v1/reveal", map[string]string{"password": "pw"}, upload{"file", "cover.png", cover})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Got status %d for a clean cover, want 422", rec.Code)
	}
}

func TestConcealSecretFile(t *testing.T) {
	router := NewRouter(Config{})
	secret := []byte{0, 1, 2, 3, 254, 255}
	rec := post(t, router, "/api/v1/conceal", map[string]string{"password": "pw", "ecc": "true"},
		upload{"cover", "cover.png", coverPNG(t)}, upload{"secret", "blob.bin", secret})
	if rec.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", rec.Code, rec.Body)
	}
	rec = post(t, router, "/api/v1/reveal", map[string]string{"password": "pw"}, upload{"file", "x.png", rec.Body.Bytes()})
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), secret) {
		t.Errorf("Got status %d body %x, want %x", rec.Code, rec.Body.Bytes(), secret)
	}
}

func TestConcealErrors(t *testing.T) {
	router := NewRouter(Config{})
	cover := coverPNG(t)
	huge := string(bytes.Repeat([]byte("a"), 4000))

	tests := []struct {
		name   string
		fields map[string]string
		files  []upload
		want   int
	}{
		{"missing password", map[string]string{"message": "x"}, []upload{{"cover", "c.png", cover}}, http.StatusBadRequest},
		{"missing cover", map[string]string{"password": "pw"}, nil, http.StatusBadRequest},
		{"bad degradation", map[string]string{"password": "pw", "degradation": "3"}, []upload{{"cover", "c.png", cover}}, http.StatusBadRequest},
		{"not a number", map[string]string{"password": "pw", "degradation": "lots"}, []upload{{"cover", "c.png", cover}}, http.StatusBadRequest},
		{"too large", map[string]string{"password": "pw", "message": huge}, []upload{{"cover", "c.png", cover}}, http.StatusRequestEntityTooLarge},
		{"unsupported", map[string]string{"password": "pw"}, []upload{{"cover", "c.txt", []byte("plain text")}}, http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, router, "/api/v1/conceal", tt.fields, tt.files...)
			if rec.Code != tt.want {
				t.Errorf("Got status %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Success || resp.Message == "" {
				t.Errorf("Got body %s, want an error response", rec.Body)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	router := NewRouter(Config{})
	cover := coverPNG(t)
	rec := post(t, router, "/api/v1/conceal", map[string]string{"password": "pw", "message": "analyze me"},
		upload{"cover", "cover.png", cover})
	if rec.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", rec.Code, rec.Body)
	}

	rec = post(t, router, "/api/v1/analyze", nil,
		upload{"file", "stego.png", rec.Body.Bytes()}, upload{"original", "cover.png", cover})
	if rec.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", rec.Code, rec.Body)
	}
	var resp AnalyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if resp.Samples != 48*48*3 || len(resp.PValues) != 48*48*3/128 {
		t.Errorf("Got %d samples and %d p-values", resp.Samples, len(resp.PValues))
	}
	if resp.MSE == nil || resp.PSNR == nil || *resp.PSNR < 40 {
		t.Errorf("Got MSE %v PSNR %v, want a comparison", resp.MSE, resp.PSNR)
	}
}
