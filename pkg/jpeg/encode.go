package jpeg

import (
	"encoding/binary"
	"fmt"

	"github.com/andresmejia3/stegocodec/pkg/bitstream"
	"github.com/rs/zerolog/log"
)

// Regenerate re-encodes the scan from Units and writes the file. DHT segments
// are rebuilt from the current tables, which may have grown; every other
// segment and the bytes after EOI are copied unchanged.
func (img *Image) Regenerate() ([]byte, error) {
	entropy, err := img.encodeScan()
	if err != nil {
		return nil, err
	}

	out := []byte{0xFF, markerSOI}
	for i, seg := range img.segments {
		body := seg.body
		if seg.marker == markerDHT {
			body = nil
			for _, key := range seg.tables {
				if img.tableOwner[key] == i {
					body = append(body, img.tables[key].Marshal()...)
				}
			}
			if len(body) == 0 {
				continue
			}
		}
		out = appendSegment(out, seg.marker, body)
		if i == img.sosIndex {
			out = append(out, entropy...)
		}
	}
	out = append(out, 0xFF, markerEOI)
	out = append(out, img.trailer...)

	log.Debug().Int("scanBytes", len(entropy)).Int("total", len(out)).Msg("Regenerated JPEG")
	return out, nil
}

func appendSegment(out []byte, marker byte, body []byte) []byte {
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(body)+2))
	out = append(out, 0xFF, marker)
	out = append(out, n[:]...)
	return append(out, body...)
}

// encodeScan produces the stuffed entropy-coded segment, RST markers
// included.
func (img *Image) encodeScan() ([]byte, error) {
	per := img.intervalMCUs()
	pred := make([]int, len(img.Components))
	var out []byte
	for start, k := 0, 0; start < img.MCUs; start, k = start+per, k+1 {
		if k > 0 {
			out = append(out, 0xFF, markerRST0+byte((k-1)%8))
		}
		for i := range pred {
			pred[i] = 0
		}
		s := bitstream.New(nil)
		end := min(start+per, img.MCUs)
		for m := start; m < end; m++ {
			units := img.MCU(m)
			for u := range units {
				du := &units[u]
				if err := img.encodeUnit(s, &pred[du.Component], du); err != nil {
					return nil, fmt.Errorf("jpeg: MCU %d unit %d: %w", m, u, err)
				}
			}
		}
		s.AlignWithOnes()
		for _, b := range s.Bytes() {
			out = append(out, b)
			if b == 0xFF {
				out = append(out, 0x00)
			}
		}
	}
	return out, nil
}
