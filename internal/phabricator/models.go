package phabricator

import (
	"bytes"
	"encoding/json"

	"github.com/reillywatson/reviewstats/internal/latency"
)

// Revision statuses as reported by differential.revision.search
const (
	StatusNeedsReview    = "needs-review"
	StatusNeedsRevision  = "needs-revision"
	StatusChangesPlanned = "changes-planned"
	StatusAccepted       = "accepted"
	StatusPublished      = "published"
	StatusAbandoned      = "abandoned"
	StatusDraft          = "draft"
)

// Revision is a Differential revision with its transaction log attached
type Revision struct {
	ID           int            `json:"id"`
	PHID         string         `json:"phid"`
	Fields       RevisionFields `json:"fields"`
	Attachments  Attachments    `json:"attachments"`
	Transactions []Transaction  `json:"transactions,omitempty"`
}

type RevisionFields struct {
	Title        string `json:"title"`
	AuthorPHID   string `json:"authorPHID"`
	Status       Status `json:"status"`
	DateCreated  int64  `json:"dateCreated"`
	DateModified int64  `json:"dateModified"`
	BugID        string `json:"bugzilla.bug-id,omitempty"`
}

type Status struct {
	Value  string `json:"value"`
	Name   string `json:"name"`
	Closed bool   `json:"closed"`
}

type Attachments struct {
	Projects  ProjectsAttachment  `json:"projects"`
	Reviewers ReviewersAttachment `json:"reviewers"`
}

type ProjectsAttachment struct {
	ProjectPHIDs []string `json:"projectPHIDs"`
}

type ReviewersAttachment struct {
	Reviewers []Reviewer `json:"reviewers"`
}

type Reviewer struct {
	ReviewerPHID string `json:"reviewerPHID"`
	Status       string `json:"status"`
	IsBlocking   bool   `json:"isBlocking"`
}

// Transaction is one entry returned by transaction.search. Fields is kept raw
// because Conduit encodes an empty object as an empty JSON array.
type Transaction struct {
	ID           int             `json:"id"`
	PHID         string          `json:"phid"`
	Type         string          `json:"type"`
	AuthorPHID   string          `json:"authorPHID"`
	DateCreated  int64           `json:"dateCreated"`
	DateModified int64           `json:"dateModified"`
	Fields       json.RawMessage `json:"fields,omitempty"`
}

// Latency converts the transaction to the engine's input form
func (t Transaction) Latency() latency.Transaction {
	tx := latency.Transaction{
		Type:         t.Type,
		DateCreated:  t.DateCreated,
		DateModified: t.DateModified,
	}
	if trimmed := bytes.TrimSpace(t.Fields); len(trimmed) > 0 && trimmed[0] == '{' {
		var fields map[string]interface{}
		if err := json.Unmarshal(trimmed, &fields); err == nil && len(fields) > 0 {
			tx.Fields = fields
		}
	}
	return tx
}

// NeedsReview reports whether the revision is currently waiting for reviewers
func (r Revision) NeedsReview() bool {
	return r.Fields.Status.Value == StatusNeedsReview
}

// Closed reports whether the revision is in a final state
func (r Revision) Closed() bool {
	switch r.Fields.Status.Value {
	case StatusPublished, StatusAbandoned:
		return true
	}
	return r.Fields.Status.Closed
}

// Input converts the revision to the engine's input form
func (r Revision) Input() latency.Revision {
	txs := make([]latency.Transaction, 0, len(r.Transactions))
	for _, t := range r.Transactions {
		txs = append(txs, t.Latency())
	}
	return latency.Revision{
		ID:           r.ID,
		NeedsReview:  r.NeedsReview(),
		Transactions: txs,
	}
}
