package condition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(0, 0).UTC()

func iv(start, end int64) Interval {
	return Interval{Start: epoch.Add(time.Duration(start) * time.Second), End: epoch.Add(time.Duration(end) * time.Second)}
}

func TestMergeEmptyAndSingle(t *testing.T) {
	require.Empty(t, Merge(nil))
	require.Equal(t, []Interval{iv(3, 7)}, Merge([]Interval{iv(3, 7)}))
}

func TestMergeOverlapping(t *testing.T) {
	got := Merge([]Interval{iv(0, 10), iv(5, 15), iv(20, 25)})
	require.Equal(t, []Interval{iv(0, 15), iv(20, 25)}, got)
}

func TestMergeTouchingBoundary(t *testing.T) {
	// next.Start == current.End counts as mergeable.
	got := Merge([]Interval{iv(0, 10), iv(10, 20)})
	require.Equal(t, []Interval{iv(0, 20)}, got)
}

func TestMergeContained(t *testing.T) {
	got := Merge([]Interval{iv(0, 100), iv(10, 20), iv(30, 40)})
	require.Equal(t, []Interval{iv(0, 100)}, got)
}

func TestMergeUnsortedInput(t *testing.T) {
	got := Merge([]Interval{iv(20, 25), iv(0, 10), iv(5, 15)})
	require.Equal(t, []Interval{iv(0, 15), iv(20, 25)}, got)
}

func TestMergeIdempotent(t *testing.T) {
	cases := [][]Interval{
		nil,
		{iv(0, 10)},
		{iv(0, 10), iv(5, 15), iv(20, 25)},
		{iv(0, 10), iv(10, 20), iv(19, 30), iv(50, 60)},
	}
	for _, spans := range cases {
		once := Merge(spans)
		require.Equal(t, once, Merge(once))
	}
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	in := []Interval{iv(20, 25), iv(0, 10), iv(5, 15)}
	_ = Merge(in)
	require.Equal(t, []Interval{iv(20, 25), iv(0, 10), iv(5, 15)}, in)
}

func TestMergeDurationBounds(t *testing.T) {
	cases := [][]Interval{
		{iv(0, 10), iv(5, 15), iv(20, 25)},
		{iv(0, 1), iv(100, 300), iv(150, 200)},
		{iv(0, 50), iv(10, 20), iv(60, 70), iv(65, 90)},
	}
	for _, spans := range cases {
		var raw, longest time.Duration
		for _, s := range spans {
			raw += s.Duration()
			if d := s.Duration(); d > longest {
				longest = d
			}
		}
		var merged time.Duration
		for _, s := range Merge(spans) {
			merged += s.Duration()
		}
		require.LessOrEqual(t, merged, raw)
		require.GreaterOrEqual(t, merged, longest)
	}
}
