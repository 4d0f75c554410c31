package scheduling

import (
	"cmp"
	"slices"
	"time"
)

// span is a half-open interval [start, end).
type span[T cmp.Ordered] struct {
	start, end T
}

func (s span[T]) empty() bool { return s.start >= s.end }

func (s span[T]) overlaps(o span[T]) bool {
	return s.start < o.end && o.start < s.end
}

// union merges overlapping and touching spans and returns them sorted.
func union[T cmp.Ordered](in []span[T]) []span[T] {
	spans := make([]span[T], 0, len(in))
	for _, s := range in {
		if !s.empty() {
			spans = append(spans, s)
		}
	}
	slices.SortFunc(spans, func(a, b span[T]) int { return cmp.Compare(a.start, b.start) })

	var out []span[T]
	for _, s := range spans {
		if n := len(out); n > 0 && s.start <= out[n-1].end {
			out[n-1].end = max(out[n-1].end, s.end)
			continue
		}
		out = append(out, s)
	}
	return out
}

// subtract removes every cut from base. Both inputs may be unsorted; the
// result is sorted and disjoint.
func subtract[T cmp.Ordered](base, cuts []span[T]) []span[T] {
	out := union(base)
	for _, cut := range union(cuts) {
		next := out[:0:0]
		for _, s := range out {
			if !s.overlaps(cut) {
				next = append(next, s)
				continue
			}
			if s.start < cut.start {
				next = append(next, span[T]{s.start, cut.start})
			}
			if cut.end < s.end {
				next = append(next, span[T]{cut.end, s.end})
			}
		}
		out = next
	}
	return out
}

// instant spans use Unix milliseconds so the generic helpers apply.
type instant = span[int64]

func instantOf(start, end time.Time) instant {
	return instant{start.UnixMilli(), end.UnixMilli()}
}

func fromMillis(ms int64, loc *time.Location) time.Time {
	return time.UnixMilli(ms).In(loc)
}
