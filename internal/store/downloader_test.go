package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reillywatson/reviewstats/internal/logger"
	"github.com/reillywatson/reviewstats/internal/phabricator"
)

type fakeFetcher struct {
	revisions map[int]phabricator.Revision
	queries   []phabricator.Constraints
	err       error
}

func (f *fakeFetcher) SearchRevisions(ctx context.Context, q phabricator.Constraints) ([]phabricator.Revision, error) {
	return f.Fetch(ctx, q)
}

func (f *fakeFetcher) SearchTransactions(ctx context.Context, objectPHID string) ([]phabricator.Transaction, error) {
	return nil, nil
}

func (f *fakeFetcher) Fetch(_ context.Context, q phabricator.Constraints) ([]phabricator.Revision, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}

	var out []phabricator.Revision
	if len(q.IDs) > 0 {
		for _, id := range q.IDs {
			if rev, ok := f.revisions[id]; ok {
				out = append(out, rev)
			}
		}
		return out, nil
	}
	for _, rev := range f.revisions {
		if rev.Fields.DateModified >= q.ModifiedStart.Unix() {
			out = append(out, rev)
		}
	}
	return out, nil
}

func TestDownloadRevisions_SkipsStoredAndGroups(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertRevisions(ctx, []phabricator.Revision{revision(5, 500)}))

	fetcher := &fakeFetcher{revisions: map[int]phabricator.Revision{}}
	var ids []int
	for id := 1; id <= 250; id++ {
		fetcher.revisions[id] = revision(id, int64(id*10))
		ids = append(ids, id)
	}
	ids = append(ids, 7) // duplicates are fetched once

	d := NewDownloader(s, fetcher, logger.Nop())
	added, err := d.DownloadRevisions(ctx, ids)
	require.NoError(t, err)

	assert.Equal(t, 249, added)
	require.Len(t, fetcher.queries, 3)
	assert.Len(t, fetcher.queries[0].IDs, 100)
	assert.Len(t, fetcher.queries[1].IDs, 100)
	assert.Len(t, fetcher.queries[2].IDs, 49)
	assert.NotContains(t, fetcher.queries[0].IDs, 5)

	stored, err := s.RevisionIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 250)
}

func TestDownloadRevisions_NothingMissing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertRevisions(ctx, []phabricator.Revision{revision(1, 10)}))

	fetcher := &fakeFetcher{}
	added, err := NewDownloader(s, fetcher, logger.Nop()).DownloadRevisions(ctx, []int{1})
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Empty(t, fetcher.queries)
}

func TestDownloadRevisions_FetchError(t *testing.T) {
	s := openTestStore(t)
	fetcher := &fakeFetcher{err: errors.New("conduit down")}

	_, err := NewDownloader(s, fetcher, logger.Nop()).DownloadRevisions(context.Background(), []int{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "D1-D2")
}

func TestDownloadModified(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fetcher := &fakeFetcher{revisions: map[int]phabricator.Revision{}}
	d := NewDownloader(s, fetcher, logger.Nop())

	// Empty store: nothing to refresh and no request made
	n, err := d.DownloadModified(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, fetcher.queries)

	require.NoError(t, s.UpsertRevisions(ctx, []phabricator.Revision{revision(1, 1000), revision(2, 2000)}))

	updated := revision(2, 3000)
	updated.Fields.Status.Value = phabricator.StatusAccepted
	fetcher.revisions[2] = updated
	fetcher.revisions[3] = revision(3, 2500)

	n, err = d.DownloadModified(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, fetcher.queries, 1)
	assert.Equal(t, time.Unix(2000, 0).UTC(), fetcher.queries[0].ModifiedStart)

	revs, err := s.Revisions(ctx)
	require.NoError(t, err)
	require.Len(t, revs, 3)
	assert.Equal(t, phabricator.StatusAccepted, revs[1].Fields.Status.Value)
}
