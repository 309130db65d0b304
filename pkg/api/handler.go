package api

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andresmejia3/stegocodec/pkg/codec"
	"github.com/andresmejia3/stegocodec/pkg/stego"
	"github.com/gin-gonic/gin"
)

// Response headers describing a conceal or reveal.
const (
	HeaderCapacity    = "X-Stego-Capacity"
	HeaderDegradation = "X-Stego-Degradation"
	HeaderEnvelope    = "X-Stego-Envelope"
	HeaderFlags       = "X-Stego-Flags"
	HeaderFormat      = "X-Stego-Format"
	HeaderPSNR        = "X-Stego-PSNR"
)

var contentTypes = map[stego.Format]string{
	stego.FormatPNG:  "image/png",
	stego.FormatBMP:  "image/bmp",
	stego.FormatJPEG: "image/jpeg",
	stego.FormatWAV:  "audio/wav",
	stego.FormatMP3:  "audio/mpeg",
}

type Handler struct {
	maxUpload int64
}

func NewHandler(maxUpload int64) *Handler {
	return &Handler{maxUpload: maxUpload}
}

// statusFor maps core error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, codec.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, codec.ErrInvalidDegradation):
		return http.StatusBadRequest
	case errors.Is(err, codec.ErrMessageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, codec.ErrDecryptionFailure):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, status int, err error) {
	c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Message: err.Error()})
}

// upload reads a multipart file field into memory.
func (h *Handler) upload(c *gin.Context, field string) (string, []byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("%s file is required", field)
	}
	if fh.Size > h.maxUpload {
		return "", nil, fmt.Errorf("%s is %d bytes, limit is %d", field, fh.Size, h.maxUpload)
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload))
	if err != nil {
		return "", nil, err
	}
	return fh.Filename, data, nil
}

func (h *Handler) container(c *gin.Context, field string) (*stego.Container, bool) {
	name, data, err := h.upload(c, field)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return nil, false
	}
	cont, err := stego.NewContainer(name, data)
	if err != nil {
		fail(c, statusFor(err), err)
		return nil, false
	}
	return cont, true
}

func formBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.PostForm(key))
	return v
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "stegocodec API is running",
		"formats": []string{"png", "bmp", "jpeg", "wav", "mp3"},
	})
}

// Capacity reports the capacity table of the uploaded "file".
func (h *Handler) Capacity(c *gin.Context) {
	cont, ok := h.container(c, "file")
	if !ok {
		return
	}
	resp := CapacityResponse{
		Success:            true,
		Filename:           cont.Name,
		Format:             cont.Format.String(),
		Type:               cont.Type().String(),
		DefaultDegradation: cont.DefaultDegradation(),
	}
	for _, row := range cont.Capacities() {
		resp.Capacities = append(resp.Capacities, CapacityRow(row))
	}
	c.JSON(http.StatusOK, resp)
}

// Conceal hides the "message" field, or the "secret" file, in the "cover"
// file and streams the stego file back.
func (h *Handler) Conceal(c *gin.Context) {
	password := c.PostForm("password")
	if password == "" {
		fail(c, http.StatusBadRequest, errors.New("password is required"))
		return
	}
	cover, ok := h.container(c, "cover")
	if !ok {
		return
	}

	message := []byte(c.PostForm("message"))
	if _, err := c.FormFile("secret"); err == nil {
		_, secret, err := h.upload(c, "secret")
		if err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
		message = secret
	}

	opts := stego.ConcealOptions{
		Options:  codec.Options{Password: password},
		Compress: formBool(c, "compress"),
		ECC:      formBool(c, "ecc"),
	}
	if v := c.PostForm("degradation"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			fail(c, http.StatusBadRequest, fmt.Errorf("%w: %q", codec.ErrInvalidDegradation, v))
			return
		}
		opts.Degradation = d
	}

	out, report, err := stego.ConcealBytes(cover, message, opts)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}

	if psnr, ok := samplePSNR(cover, out); ok {
		c.Header(HeaderPSNR, strconv.FormatFloat(psnr, 'f', 2, 64))
	}
	ext := filepath.Ext(cover.Name)
	filename := strings.TrimSuffix(cover.Name, ext) + "_stego" + ext
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header(HeaderFormat, report.Format.String())
	c.Header(HeaderCapacity, strconv.Itoa(report.Capacity))
	c.Header(HeaderEnvelope, strconv.Itoa(report.Envelope))
	c.Header(HeaderDegradation, strconv.Itoa(report.Degradation))
	c.Header(HeaderFlags, stego.FlagNames(report.Flags))
	c.Data(http.StatusOK, contentTypes[cover.Format], out)
}

// samplePSNR compares the sample planes of raw LSB covers. Identical planes
// report no PSNR.
func samplePSNR(cover *stego.Container, out []byte) (float64, bool) {
	switch cover.Format {
	case stego.FormatPNG, stego.FormatBMP, stego.FormatWAV:
	default:
		return 0, false
	}
	result, err := stego.NewContainer(cover.Name, out)
	if err != nil {
		return 0, false
	}
	before, err1 := cover.Samples()
	after, err2 := result.Samples()
	if err1 != nil || err2 != nil {
		return 0, false
	}
	_, psnr, _, err := stego.Compare(before, after, nil)
	if err != nil || math.IsInf(psnr, 1) {
		return 0, false
	}
	return psnr, true
}

// Reveal extracts the message hidden in the uploaded "file".
func (h *Handler) Reveal(c *gin.Context) {
	password := c.PostForm("password")
	if password == "" {
		fail(c, http.StatusBadRequest, errors.New("password is required"))
		return
	}
	cont, ok := h.container(c, "file")
	if !ok {
		return
	}
	message, report, err := stego.RevealBytes(cont, password, nil)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=secret.bin")
	c.Header(HeaderFormat, report.Format.String())
	c.Header(HeaderDegradation, strconv.Itoa(report.Degradation))
	c.Header(HeaderFlags, stego.FlagNames(report.Flags))
	c.Data(http.StatusOK, "application/octet-stream", message)
}

// Analyze runs the chi-square detector on "file" and, when an "original"
// file is uploaded too, measures the distortion between them.
func (h *Handler) Analyze(c *gin.Context) {
	cont, ok := h.container(c, "file")
	if !ok {
		return
	}
	var original *stego.Container
	if _, err := c.FormFile("original"); err == nil {
		if original, ok = h.container(c, "original"); !ok {
			return
		}
	}
	res, err := stego.AnalyzeContainer(cont, original, nil)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError && original != nil {
			status = http.StatusBadRequest
		}
		fail(c, status, err)
		return
	}
	resp := AnalyzeResponse{
		Success:       true,
		Format:        res.Format.String(),
		Samples:       res.Samples,
		Average:       res.ChiSquare.Average,
		Suspicious:    res.ChiSquare.Suspicious,
		EstimatedSize: res.ChiSquare.EstimatedSize,
		PValues:       res.ChiSquare.PValues,
	}
	if res.Compared {
		resp.MSE = &res.MSE
		if !math.IsInf(res.PSNR, 1) {
			resp.PSNR = &res.PSNR
		}
	}
	c.JSON(http.StatusOK, resp)
}
