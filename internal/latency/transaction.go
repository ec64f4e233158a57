package latency

import "time"

// Transaction types the engine reacts to. Anything else in a revision's
// history is ignored.
const (
	TypeCreate         = "create"
	TypeAccept         = "accept"
	TypeRequestChanges = "request-changes"
	TypePlanChanges    = "plan-changes"
	TypeClose          = "close"
	TypeRequestReview  = "request-review"
	TypeUpdate         = "update"
	TypeReopen         = "reopen"
)

// Transaction is a single timestamped state change recorded against a revision.
// Timestamps are integer epoch seconds, the unit used by revision history records.
type Transaction struct {
	Type         string                 `json:"type"`
	DateCreated  int64                  `json:"dateCreated"`
	DateModified int64                  `json:"dateModified"`
	Fields       map[string]interface{} `json:"fields,omitempty"`
}

// Created returns the transaction's creation instant in UTC
func (t Transaction) Created() time.Time {
	return time.Unix(t.DateCreated, 0).UTC()
}

// Revision is the input for one latency computation. NeedsReview is supplied by
// the caller from the revision's current status; the engine never derives it.
type Revision struct {
	ID           int
	NeedsReview  bool
	Transactions []Transaction
}

func isReview(typ string) bool {
	return typ == TypeAccept || typ == TypeRequestChanges
}

func isExclusionStart(typ string) bool {
	return typ == TypePlanChanges || typ == TypeClose
}

func isExclusionEnd(typ string) bool {
	return typ == TypeRequestReview || typ == TypeUpdate || typ == TypeReopen
}
