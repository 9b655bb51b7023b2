package condition

import (
	"sort"
	"time"
)

// Interval is a span of time with End >= Start.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the interval.
func (iv Interval) Duration() time.Duration { return iv.End.Sub(iv.Start) }

// Merge collapses a list of intervals into the minimal sorted set of
// non-overlapping intervals covering the same time. Intervals that touch
// (next.Start == current.End) are merged. Merging an already merged list is
// a no-op. Zero-length intervals must be filtered out by the caller.
func Merge(spans []Interval) []Interval {
	if len(spans) <= 1 {
		return spans
	}

	sorted := make([]Interval, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := make([]Interval, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if !next.Start.After(current.End) {
			if next.End.After(current.End) {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}
