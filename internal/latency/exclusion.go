package latency

import "time"

// Interval is a span during which a revision was not awaiting review.
// A nil End means the interval is still open.
type Interval struct {
	Start time.Time
	End   *time.Time
}

// Open reports whether the interval has no recorded end.
func (i Interval) Open() bool {
	return i.End == nil
}

// Duration returns the closed interval's length, or zero for an open one.
func (i Interval) Duration() time.Duration {
	if i.End == nil {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Contains reports whether t falls inside the interval. The start is
// inclusive; the end is exclusive, and an open interval extends forever.
func (i Interval) Contains(t time.Time) bool {
	if t.Before(i.Start) {
		return false
	}
	return i.End == nil || t.Before(*i.End)
}

// ExclusionWindows resolves exclusion starts and ends into aggregate bounds.
// Starts and ends are not paired one to one: revision histories do not
// guarantee strict alternation, so only the earliest and latest of each side
// are exposed.
type ExclusionWindows struct {
	starts []time.Time
	ends   []time.Time
}

// EarliestStart returns the first exclusion start, or nil.
func (w ExclusionWindows) EarliestStart() *time.Time { return earliest(w.starts) }

// EarliestEnd returns the first exclusion end, or nil.
func (w ExclusionWindows) EarliestEnd() *time.Time { return earliest(w.ends) }

// LatestStart returns the last exclusion start, or nil.
func (w ExclusionWindows) LatestStart() *time.Time { return latest(w.starts) }

// LatestEnd returns the last exclusion end, or nil.
func (w ExclusionWindows) LatestEnd() *time.Time { return latest(w.ends) }

// First returns the interval bounded by the earliest start and earliest end.
// ok is false when there is no exclusion start.
func (w ExclusionWindows) First() (Interval, bool) {
	start := w.EarliestStart()
	if start == nil {
		return Interval{}, false
	}
	return Interval{Start: *start, End: w.EarliestEnd()}, true
}

// Last returns the interval opened by the latest start. Its End is the latest
// end only when that end does not precede the start; otherwise the interval
// is still open.
func (w ExclusionWindows) Last() (Interval, bool) {
	start := w.LatestStart()
	if start == nil {
		return Interval{}, false
	}
	end := w.LatestEnd()
	if end != nil && start.After(*end) {
		end = nil
	}
	return Interval{Start: *start, End: end}, true
}

// EndsBeforeStart reports whether the earliest end precedes the earliest start.
func (w ExclusionWindows) EndsBeforeStart() bool {
	start, end := w.EarliestStart(), w.EarliestEnd()
	return start != nil && end != nil && end.Before(*start)
}

// OpenAtEnd reports whether the latest start has no later end, i.e. the
// revision is still inside an exclusion window at the end of its history.
func (w ExclusionWindows) OpenAtEnd() bool {
	last, ok := w.Last()
	return ok && last.Open()
}
