package latency

import "fmt"

// Kind classifies a Diagnostic.
type Kind string

const (
	// KindMalformedTimeline is a contract violation; the revision's computation fails.
	KindMalformedTimeline Kind = "MalformedTimeline"
	// KindMissingCreationDate means no create transaction was found.
	KindMissingCreationDate Kind = "MissingCreationDate"
	// KindInconsistentTimeline flags exclusion boundaries that contradict each other or the status.
	KindInconsistentTimeline Kind = "InconsistentTimeline"
	// KindReviewedDuringExclusion notes a review that landed inside an open exclusion window.
	KindReviewedDuringExclusion Kind = "ReviewedDuringExclusion"
)

// Kinds lists every diagnostic kind in a stable order.
var Kinds = []Kind{
	KindMalformedTimeline,
	KindMissingCreationDate,
	KindInconsistentTimeline,
	KindReviewedDuringExclusion,
}

// Diagnostic is a structured warning produced alongside a computation.
type Diagnostic struct {
	Kind       Kind   `json:"kind"`
	RevisionID int    `json:"revisionId"`
	Message    string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

func newDiagnostic(kind Kind, revisionID int, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Kind:       kind,
		RevisionID: revisionID,
		Message:    fmt.Sprintf(format, args...),
	}
}
