package latency

import "time"

// PendingLatency returns how long a revision that needs review has been
// waiting at now: measured from the latest exclusion end if there is one,
// otherwise from creation. It is nil when the revision does not need review
// or has no creation date.
func PendingLatency(revisionID int, tl Timeline, needsReview bool, now time.Time) (*time.Duration, []Diagnostic) {
	if !needsReview {
		return nil, nil
	}

	var diags []Diagnostic

	if tl.Created == nil {
		diags = append(diags, newDiagnostic(KindMissingCreationDate, revisionID,
			"Revision D%d has no creation date.", revisionID))
		return nil, diags
	}

	windows := tl.Exclusions()
	if windows.OpenAtEnd() {
		diags = append(diags, newDiagnostic(KindInconsistentTimeline, revisionID,
			"Revision D%d was in an inconsistent state (needs review, but is in an exclusion timespan).", revisionID))
	}

	since := *tl.Created
	if lastEnd := windows.LatestEnd(); lastEnd != nil {
		since = *lastEnd
	}

	waiting := now.Sub(since)
	return &waiting, diags
}
