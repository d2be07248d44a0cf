package audiocache

// Range is a half-open byte range [Start, End). End is nil when the range
// is unbounded (read to EOF) — the idiomatic Go equivalent of spec.md's
// Range{start, end: Option<u64>}.
type Range struct {
	Start int64
	End   *int64
}

// Full is the zero-value range: from the beginning, unbounded.
var Full = Range{}

// NewRange builds a bounded range [start, end).
func NewRange(start, end int64) Range {
	return Range{Start: start, End: &end}
}

// Bounded reports whether the range has a known end.
func (r Range) Bounded() bool {
	return r.End != nil
}

// Length returns end-start and true if the range is bounded, or (0, false)
// if it is open-ended.
func (r Range) Length() (int64, bool) {
	if r.End == nil {
		return 0, false
	}
	return *r.End - r.Start, true
}

// IsFull reports whether this is exactly the {0, unbounded} range.
func (r Range) IsFull() bool {
	return r.Start == 0 && r.End == nil
}
