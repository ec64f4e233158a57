package latency

import (
	"errors"
	"time"
)

// Result is the per-revision output of Compute.
type Result struct {
	RevisionID         int
	FirstReviewLatency *time.Duration
	PendingLatency     *time.Duration
	State              State
	Diagnostics        []Diagnostic
}

// HasDiagnostic reports whether the result carries a diagnostic of the given kind.
func (r Result) HasDiagnostic(kind Kind) bool {
	for _, d := range r.Diagnostics {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

// Compute extracts rev's timeline once and runs both latency calculators
// against it. now is the instant pending latency is measured at.
//
// A malformed timeline fails only this revision: the returned Result carries a
// MalformedTimeline diagnostic, StateMalformed and no latencies, and the error wraps
// ErrMalformedTimeline.
func Compute(rev Revision, now time.Time) (Result, error) {
	res := Result{RevisionID: rev.ID}

	tl, err := Extract(rev.Transactions)
	if err != nil {
		if errors.Is(err, ErrMalformedTimeline) {
			res.State = StateMalformed
			res.Diagnostics = append(res.Diagnostics, newDiagnostic(KindMalformedTimeline, rev.ID,
				"Revision D%d: %v", rev.ID, err))
		}
		return res, err
	}

	res.State = tl.State()

	var diags []Diagnostic
	res.FirstReviewLatency, diags = FirstReviewLatency(rev.ID, tl)
	res.Diagnostics = appendUnique(res.Diagnostics, diags...)

	res.PendingLatency, diags = PendingLatency(rev.ID, tl, rev.NeedsReview, now)
	res.Diagnostics = appendUnique(res.Diagnostics, diags...)

	return res, nil
}

// appendUnique appends diagnostics not already present; both calculators
// report a missing creation date and it should only appear once.
func appendUnique(dst []Diagnostic, diags ...Diagnostic) []Diagnostic {
	for _, d := range diags {
		dup := false
		for _, existing := range dst {
			if existing == d {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, d)
		}
	}
	return dst
}
