package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reillywatson/reviewstats/internal/phabricator"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "revisions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func revision(id int, modified int64) phabricator.Revision {
	return phabricator.Revision{
		ID:   id,
		PHID: "PHID-DREV-" + string(rune('a'+id%26)),
		Fields: phabricator.RevisionFields{
			Status:       phabricator.Status{Value: phabricator.StatusNeedsReview},
			DateModified: modified,
		},
		Transactions: []phabricator.Transaction{
			{Type: "create", DateCreated: modified - 100},
		},
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "revisions.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertRevisions(context.Background(), []phabricator.Revision{revision(1, 1000)}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	ids, err := s.RevisionIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids)
}

func TestUpsertRevisions_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertRevisions(ctx, []phabricator.Revision{revision(3, 3000), revision(1, 1000)}))

	revs, err := s.Revisions(ctx)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, 1, revs[0].ID)
	assert.Equal(t, 3, revs[1].ID)
	assert.Equal(t, phabricator.StatusNeedsReview, revs[0].Fields.Status.Value)
	require.Len(t, revs[0].Transactions, 1)
	assert.Equal(t, int64(900), revs[0].Transactions[0].DateCreated)
}

func TestUpsertRevisions_Replaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertRevisions(ctx, []phabricator.Revision{revision(1, 1000)}))

	updated := revision(1, 2000)
	updated.Fields.Status.Value = phabricator.StatusAccepted
	require.NoError(t, s.UpsertRevisions(ctx, []phabricator.Revision{updated}))

	revs, err := s.Revisions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, phabricator.StatusAccepted, revs[0].Fields.Status.Value)
	assert.Equal(t, int64(2000), revs[0].Fields.DateModified)
}

func TestRevisions_FiltersByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertRevisions(ctx, []phabricator.Revision{revision(1, 10), revision(2, 20), revision(3, 30)}))

	revs, err := s.Revisions(ctx, 3, 1, 99)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, 1, revs[0].ID)
	assert.Equal(t, 3, revs[1].ID)
}

func TestLastModified(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.LastModified(ctx)
	assert.ErrorIs(t, err, ErrLastModifiedNotAvailable)

	require.NoError(t, s.UpsertRevisions(ctx, []phabricator.Revision{revision(1, 5000), revision(2, 7000), revision(3, 6000)}))

	last, err := s.LastModified(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(7000, 0).UTC(), last)
}
