package codec

// ProgressFunc receives percent-complete updates in the range 0..100.
type ProgressFunc func(percent int)

// Tracker converts units of work into percent updates. It only calls the
// underlying ProgressFunc when the integer percentage changes. A nil Tracker
// and a Tracker over a nil ProgressFunc are both no-ops.
type Tracker struct {
	fn    ProgressFunc
	total int
	done  int
	last  int
	base  int
	span  int
}

// NewTracker reports total units of work over the full 0..100 range.
func NewTracker(fn ProgressFunc, total int) *Tracker {
	return NewPhase(fn, total, 0, 100)
}

// NewPhase reports total units of work over the percent range [from, to], so
// a multi-pass operation can give each pass its own slice of the bar.
func NewPhase(fn ProgressFunc, total, from, to int) *Tracker {
	if total < 1 {
		total = 1
	}
	return &Tracker{fn: fn, total: total, last: -1, base: from, span: to - from}
}

func (t *Tracker) Add(n int) {
	if t == nil || t.fn == nil {
		return
	}
	t.done += n
	if t.done > t.total {
		t.done = t.total
	}
	p := t.base + t.done*t.span/t.total
	if p != t.last {
		t.last = p
		t.fn(p)
	}
}

// Done jumps to the end of the tracker's range.
func (t *Tracker) Done() {
	if t == nil {
		return
	}
	t.Add(t.total - t.done)
}
