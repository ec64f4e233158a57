package phabricator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reillywatson/reviewstats/internal/latency"
)

func TestTransaction_LatencyFields(t *testing.T) {
	var txs []Transaction
	require.NoError(t, json.Unmarshal([]byte(`[
		{"type": "status", "dateCreated": 10, "dateModified": 11, "fields": {"old": "needs-review", "new": "accepted"}},
		{"type": "create", "dateCreated": 5, "fields": []}
	]`), &txs))

	first := txs[0].Latency()
	assert.Equal(t, int64(10), first.DateCreated)
	assert.Equal(t, int64(11), first.DateModified)
	assert.Equal(t, "accepted", first.Fields["new"])

	second := txs[1].Latency()
	assert.Equal(t, latency.TypeCreate, second.Type)
	assert.Nil(t, second.Fields)
}

func TestRevision_Input(t *testing.T) {
	rev := Revision{
		ID:     99,
		Fields: RevisionFields{Status: Status{Value: StatusNeedsReview}},
		Transactions: []Transaction{
			{Type: "create", DateCreated: 1},
			{Type: "update", DateCreated: 2},
		},
	}

	in := rev.Input()
	assert.Equal(t, 99, in.ID)
	assert.True(t, in.NeedsReview)
	assert.Len(t, in.Transactions, 2)
}

func TestTestingProject(t *testing.T) {
	rev := func(phids ...string) Revision {
		return Revision{Attachments: Attachments{Projects: ProjectsAttachment{ProjectPHIDs: phids}}}
	}

	tag, ambiguous := TestingProject(rev("PHID-PROJ-unrelated"))
	assert.Equal(t, "", tag)
	assert.False(t, ambiguous)

	tag, ambiguous = TestingProject(rev("PHID-PROJ-h7y4cs7m2o67iczw62pp"))
	assert.Equal(t, "testing-approved", tag)
	assert.False(t, ambiguous)

	tag, ambiguous = TestingProject(rev("PHID-PROJ-h7y4cs7m2o67iczw62pp", "PHID-PROJ-x", "PHID-PROJ-zjipshabawolpkllehvg"))
	assert.Equal(t, "testing-exception-ui", tag)
	assert.True(t, ambiguous)
}
