package latency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstReview(t *testing.T, txs ...Transaction) (*time.Duration, []Diagnostic) {
	t.Helper()
	tl, err := Extract(txs)
	require.NoError(t, err)
	return FirstReviewLatency(42, tl)
}

func TestFirstReviewLatency_NoExclusion(t *testing.T) {
	got, diags := firstReview(t, tx(TypeCreate, 0), tx(TypeAccept, 100))

	require.NotNil(t, got)
	assert.Equal(t, secs(100), *got)
	assert.Empty(t, diags)
}

func TestFirstReviewLatency_UsesEarliestReview(t *testing.T) {
	got, _ := firstReview(t,
		tx(TypeCreate, 0),
		tx(TypeAccept, 300),
		tx(TypeRequestChanges, 120),
	)

	require.NotNil(t, got)
	assert.Equal(t, secs(120), *got)
}

func TestFirstReviewLatency_SubtractsClosedExclusion(t *testing.T) {
	got, diags := firstReview(t,
		tx(TypeCreate, 0),
		tx(TypePlanChanges, 2),
		tx(TypeRequestReview, 5),
		tx(TypeAccept, 10),
	)

	require.NotNil(t, got)
	assert.Equal(t, secs(7), *got)
	assert.Empty(t, diags)
}

func TestFirstReviewLatency_OpenExclusionReviewedAnyway(t *testing.T) {
	got, diags := firstReview(t,
		tx(TypeCreate, 0),
		tx(TypePlanChanges, 2),
		tx(TypeAccept, 6),
	)

	require.NotNil(t, got)
	assert.Equal(t, secs(6), *got)
	require.Len(t, diags, 1)
	assert.Equal(t, KindReviewedDuringExclusion, diags[0].Kind)
	assert.Equal(t, 42, diags[0].RevisionID)
}

func TestFirstReviewLatency_ExclusionClosedAfterReview(t *testing.T) {
	got, diags := firstReview(t,
		tx(TypeCreate, 0),
		tx(TypeClose, 2),
		tx(TypeAccept, 6),
		tx(TypeReopen, 9),
	)

	require.NotNil(t, got)
	assert.Equal(t, secs(6), *got)
	require.Len(t, diags, 1)
	assert.Equal(t, KindReviewedDuringExclusion, diags[0].Kind)
}

func TestFirstReviewLatency_ExclusionAfterReview(t *testing.T) {
	got, diags := firstReview(t,
		tx(TypeCreate, 0),
		tx(TypeAccept, 4),
		tx(TypePlanChanges, 8),
		tx(TypeUpdate, 12),
	)

	require.NotNil(t, got)
	assert.Equal(t, secs(4), *got)
	assert.Empty(t, diags)
}

func TestFirstReviewLatency_ReviewAtExclusionStartIsNotExcluded(t *testing.T) {
	got, diags := firstReview(t,
		tx(TypeCreate, 0),
		tx(TypeAccept, 5),
		tx(TypePlanChanges, 5),
	)

	require.NotNil(t, got)
	assert.Equal(t, secs(5), *got)
	assert.Empty(t, diags)
}

func TestFirstReviewLatency_ExclusionEndingAtReview(t *testing.T) {
	got, diags := firstReview(t,
		tx(TypeCreate, 0),
		tx(TypePlanChanges, 2),
		tx(TypeUpdate, 6),
		tx(TypeAccept, 6),
	)

	require.NotNil(t, got)
	assert.Equal(t, secs(2), *got)
	assert.Empty(t, diags)
}

func TestFirstReviewLatency_OnlyFirstWindowSubtracted(t *testing.T) {
	got, _ := firstReview(t,
		tx(TypeCreate, 0),
		tx(TypePlanChanges, 10),
		tx(TypeUpdate, 20),
		tx(TypePlanChanges, 30),
		tx(TypeUpdate, 50),
		tx(TypeAccept, 100),
	)

	require.NotNil(t, got)
	assert.Equal(t, secs(90), *got)
}

func TestFirstReviewLatency_NoReview(t *testing.T) {
	got, diags := firstReview(t, tx(TypeCreate, 0), tx(TypePlanChanges, 4))

	assert.Nil(t, got)
	assert.Empty(t, diags)
}

func TestFirstReviewLatency_MissingCreation(t *testing.T) {
	got, diags := firstReview(t, tx(TypeAccept, 10))

	assert.Nil(t, got)
	require.Len(t, diags, 1)
	assert.Equal(t, KindMissingCreationDate, diags[0].Kind)
	assert.Contains(t, diags[0].Message, "D42")
}

func TestFirstReviewLatency_InconsistentWindows(t *testing.T) {
	// Extract never records an end before the first start, so build the
	// timeline by hand.
	created := at(0)
	tl := Timeline{
		Created:         &created,
		Reviews:         []time.Time{at(20)},
		ExclusionStarts: []time.Time{at(10)},
		ExclusionEnds:   []time.Time{at(4)},
	}

	got, diags := FirstReviewLatency(7, tl)

	require.NotNil(t, got)
	assert.Equal(t, secs(20)-(at(4).Sub(at(10))), *got)
	require.NotEmpty(t, diags)
	assert.Equal(t, KindInconsistentTimeline, diags[0].Kind)
}
