package latency

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrMalformedTimeline is returned when a transaction log violates the
// extractor's contract, e.g. a revision with two create transactions.
var ErrMalformedTimeline = errors.New("malformed timeline")

// Timeline is the extractor's view of one revision's history. All slices are
// chronological. Created is nil when the log has no create transaction.
type Timeline struct {
	Created         *time.Time
	Reviews         []time.Time
	ExclusionStarts []time.Time
	ExclusionEnds   []time.Time

	// steps preserves the order in which the events above were recorded,
	// including the relative order of events sharing a timestamp.
	steps []step
}

type stepKind int

const (
	stepCreate stepKind = iota
	stepReview
	stepExclusionStart
	stepExclusionEnd
)

type step struct {
	kind stepKind
	at   time.Time
}

// Extract sorts a copy of txs by creation time and partitions it into the
// creation instant, review instants and exclusion boundaries. An exclusion end
// is only recorded once at least one exclusion start has been seen; earlier
// ends cannot close anything and are dropped. The input slice is not modified.
func Extract(txs []Transaction) (Timeline, error) {
	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DateCreated < sorted[j].DateCreated
	})

	var tl Timeline
	for _, tx := range sorted {
		at := tx.Created()

		switch {
		case tx.Type == TypeCreate:
			if tl.Created != nil {
				return Timeline{}, fmt.Errorf("%w: second create transaction at %s (first at %s)",
					ErrMalformedTimeline, at.Format(time.RFC3339), tl.Created.Format(time.RFC3339))
			}
			tl.Created = &at
			tl.steps = append(tl.steps, step{stepCreate, at})

		case isReview(tx.Type):
			tl.Reviews = append(tl.Reviews, at)
			tl.steps = append(tl.steps, step{stepReview, at})

		case isExclusionStart(tx.Type):
			tl.ExclusionStarts = append(tl.ExclusionStarts, at)
			tl.steps = append(tl.steps, step{stepExclusionStart, at})

		case isExclusionEnd(tx.Type):
			if len(tl.ExclusionStarts) == 0 {
				continue
			}
			tl.ExclusionEnds = append(tl.ExclusionEnds, at)
			tl.steps = append(tl.steps, step{stepExclusionEnd, at})
		}
	}

	return tl, nil
}

// FirstReview returns the earliest review instant, or nil if there is none.
func (tl Timeline) FirstReview() *time.Time {
	return earliest(tl.Reviews)
}

// Exclusions returns the resolver over this timeline's exclusion boundaries.
func (tl Timeline) Exclusions() ExclusionWindows {
	return ExclusionWindows{starts: tl.ExclusionStarts, ends: tl.ExclusionEnds}
}

func earliest(ts []time.Time) *time.Time {
	if len(ts) == 0 {
		return nil
	}
	m := ts[0]
	for _, t := range ts[1:] {
		if t.Before(m) {
			m = t
		}
	}
	return &m
}

func latest(ts []time.Time) *time.Time {
	if len(ts) == 0 {
		return nil
	}
	m := ts[0]
	for _, t := range ts[1:] {
		if t.After(m) {
			m = t
		}
	}
	return &m
}
