package stego

import (
	"fmt"
	"io"
	"time"

	"github.com/andresmejia3/stegocodec/pkg/codec"
	"github.com/schollz/progressbar/v3"
)

// NewProgressBar renders percent updates as a progress bar on w.
func NewProgressBar(w io.Writer, description string) codec.ProgressFunc {
	bar := progressbar.NewOptions(
		100,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
	return func(percent int) {
		bar.Set(percent)
	}
}
