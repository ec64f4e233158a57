package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/reillywatson/reviewstats/internal/phabricator"
)

// downloadGroupSize bounds how many revisions one search request asks for
const downloadGroupSize = 100

// Downloader fills a Store from Conduit
type Downloader struct {
	store   *Store
	fetcher phabricator.Fetcher
	log     zerolog.Logger
}

func NewDownloader(store *Store, fetcher phabricator.Fetcher, log zerolog.Logger) *Downloader {
	return &Downloader{store: store, fetcher: fetcher, log: log}
}

// DownloadRevisions fetches the given revisions that are not stored yet and
// returns how many were added
func (d *Downloader) DownloadRevisions(ctx context.Context, ids []int) (int, error) {
	stored, err := d.store.RevisionIDs(ctx)
	if err != nil {
		return 0, err
	}
	d.log.Info().Int("stored", len(stored)).Msg("loaded revisions")

	have := make(map[int]bool, len(stored))
	for _, id := range stored {
		have[id] = true
	}

	var missing []int
	for _, id := range ids {
		if !have[id] {
			missing = append(missing, id)
			have[id] = true
		}
	}
	sort.Ints(missing)
	d.log.Info().Int("missing", len(missing)).Msg("revisions left to download")

	added := 0
	for start := 0; start < len(missing); start += downloadGroupSize {
		end := min(start+downloadGroupSize, len(missing))
		group := missing[start:end]

		revs, err := d.fetcher.Fetch(ctx, phabricator.Constraints{IDs: group})
		if err != nil {
			return added, fmt.Errorf("failed to download revisions D%d-D%d: %w", group[0], group[len(group)-1], err)
		}
		if err := d.store.UpsertRevisions(ctx, revs); err != nil {
			return added, err
		}

		added += len(revs)
		d.log.Debug().Int("downloaded", added).Int("total", len(missing)).Msg("download progress")
	}

	return added, nil
}

// DownloadModified refetches every revision modified since the newest stored
// modification time and replaces the stored copies. An empty store has
// nothing to refresh.
func (d *Downloader) DownloadModified(ctx context.Context) (int, error) {
	since, err := d.store.LastModified(ctx)
	if errors.Is(err, ErrLastModifiedNotAvailable) {
		d.log.Info().Msg("store is empty, nothing to refresh")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	revs, err := d.fetcher.Fetch(ctx, phabricator.Constraints{ModifiedStart: since})
	if err != nil {
		return 0, fmt.Errorf("failed to download revisions modified since %s: %w", since.Format("2006-01-02T15:04:05Z"), err)
	}

	if err := d.store.UpsertRevisions(ctx, revs); err != nil {
		return 0, err
	}

	d.log.Info().Int("revisions", len(revs)).Time("since", since).Msg("refreshed modified revisions")
	return len(revs), nil
}
