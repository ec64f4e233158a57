package latency

import "time"

// FirstReviewLatency returns the time from creation to the first review,
// excluding the first exclusion window when it closed before that review.
//
// The result is nil when the revision has no creation date (reported as
// MissingCreationDate) or has not been reviewed yet (no diagnostic).
func FirstReviewLatency(revisionID int, tl Timeline) (*time.Duration, []Diagnostic) {
	var diags []Diagnostic

	if tl.Created == nil {
		diags = append(diags, newDiagnostic(KindMissingCreationDate, revisionID,
			"Revision D%d has no creation date.", revisionID))
		return nil, diags
	}

	firstReview := tl.FirstReview()
	if firstReview == nil {
		return nil, nil
	}

	windows := tl.Exclusions()
	if windows.EndsBeforeStart() {
		diags = append(diags, newDiagnostic(KindInconsistentTimeline, revisionID,
			"Revision D%d was in an inconsistent state (exclusion ended before it started).", revisionID))
	}

	elapsed := firstReview.Sub(*tl.Created)

	first, ok := windows.First()
	switch {
	case !ok || !first.Start.Before(*firstReview):
		// Not excluded yet when the review landed; a review at the exact start
		// instant still counts as not excluded.
	case first.Contains(*firstReview):
		diags = append(diags, newDiagnostic(KindReviewedDuringExclusion, revisionID,
			"Revision D%d was reviewed while in 'planned changes' or 'closed' state.", revisionID))
	default:
		elapsed -= first.Duration()
	}

	return &elapsed, diags
}
