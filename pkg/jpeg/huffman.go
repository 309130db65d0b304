package jpeg

import (
	"fmt"

	"github.com/andresmejia3/stegocodec/pkg/bitstream"
	"github.com/andresmejia3/stegocodec/pkg/codec"
)

const maxCodeLength = 16

// Table classes as stored in the high nibble of a DHT table header.
const (
	ClassDC = 0
	ClassAC = 1
)

// Table is a canonical JPEG Huffman table. Codes are assigned shortest
// length first and, within a length, in symbol insertion order, so the
// (symbol, length) list alone determines every code.
type Table struct {
	Class uint8
	ID    uint8

	counts  [maxCodeLength + 1]int
	symbols []byte

	firstCode  [maxCodeLength + 1]int
	firstIndex [maxCodeLength + 1]int
	code       map[byte]uint32
	length     map[byte]int
}

// NewTable builds a table from DHT counts (codes per length 1..16) and
// symbols in canonical order.
func NewTable(class, id uint8, counts [16]int, symbols []byte) (*Table, error) {
	t := &Table{Class: class, ID: id}
	total := 0
	for i, c := range counts {
		t.counts[i+1] = c
		total += c
	}
	if total != len(symbols) {
		return nil, fmt.Errorf("huffman table %d/%d: %d counts, %d symbols", class, id, total, len(symbols))
	}
	t.symbols = append([]byte(nil), symbols...)
	if err := t.build(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) build() error {
	t.code = make(map[byte]uint32, len(t.symbols))
	t.length = make(map[byte]int, len(t.symbols))
	code, k := 0, 0
	for l := 1; l <= maxCodeLength; l++ {
		t.firstCode[l] = code
		t.firstIndex[l] = k
		for i := 0; i < t.counts[l]; i++ {
			sym := t.symbols[k]
			if _, dup := t.code[sym]; dup {
				return fmt.Errorf("huffman table %d/%d: duplicate symbol %#02x", t.Class, t.ID, sym)
			}
			t.code[sym] = uint32(code)
			t.length[sym] = l
			code++
			k++
		}
		if code > 1<<uint(l) {
			return fmt.Errorf("huffman table %d/%d: code space overflow at length %d", t.Class, t.ID, l)
		}
		code <<= 1
	}
	return nil
}

// Code returns the code and its bit length for sym.
func (t *Table) Code(sym byte) (uint32, int, error) {
	l, ok := t.length[sym]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %#02x in table %d/%d", codec.ErrSymbolNotFound, sym, t.Class, t.ID)
	}
	return t.code[sym], l, nil
}

// Decode reads one code from s and returns its symbol.
func (t *Table) Decode(s *bitstream.Stream) (byte, error) {
	code := 0
	for l := 1; l <= maxCodeLength; l++ {
		bit, err := s.ReadBit()
		if err != nil {
			return 0, err
		}
		code = code<<1 | int(bit)
		if n := code - t.firstCode[l]; n >= 0 && n < t.counts[l] {
			return t.symbols[t.firstIndex[l]+n], nil
		}
	}
	return 0, fmt.Errorf("%w: no code matches in table %d/%d", codec.ErrSymbolNotFound, t.Class, t.ID)
}

func (t *Table) maxLength() int {
	for l := maxCodeLength; l > 0; l-- {
		if t.counts[l] > 0 {
			return l
		}
	}
	return 0
}

// AddSymbol returns the code for sym, assigning one if the table lacks it.
// New symbols go at the smallest length not below the current maximum whose
// next canonical code is not the all-ones code. Existing codes never change,
// so bits already written with this table stay valid.
func (t *Table) AddSymbol(sym byte) (uint32, int, error) {
	if c, l, err := t.Code(sym); err == nil {
		return c, l, nil
	}
	maxLen := t.maxLength()
	next, start := 0, 1
	if maxLen > 0 {
		next = t.firstCode[maxLen] + t.counts[maxLen]
		start = maxLen
	}
	for l := start; l <= maxCodeLength; l++ {
		if l > start {
			next <<= 1
		}
		if next < 1<<uint(l)-1 {
			t.counts[l]++
			t.symbols = append(t.symbols, sym)
			if err := t.build(); err != nil {
				return 0, 0, err
			}
			return t.Code(sym)
		}
	}
	return 0, 0, fmt.Errorf("%w: table %d/%d is full", codec.ErrSymbolNotFound, t.Class, t.ID)
}

// Marshal returns the table as it appears inside a DHT segment.
func (t *Table) Marshal() []byte {
	out := make([]byte, 0, 17+len(t.symbols))
	out = append(out, t.Class<<4|t.ID)
	for l := 1; l <= maxCodeLength; l++ {
		out = append(out, byte(t.counts[l]))
	}
	return append(out, t.symbols...)
}
