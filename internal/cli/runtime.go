package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reillywatson/reviewstats/internal/cache"
	"github.com/reillywatson/reviewstats/internal/cloudlog"
	"github.com/reillywatson/reviewstats/internal/latency"
	"github.com/reillywatson/reviewstats/internal/logger"
	"github.com/reillywatson/reviewstats/internal/phabricator"
	"github.com/reillywatson/reviewstats/internal/report"
	"github.com/reillywatson/reviewstats/internal/store"
)

func noop() error { return nil }

// parseRevisionIDs accepts ids with or without the "D" prefix
func parseRevisionIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(arg), "D"))
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid revision id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseNow returns the --now override, or the current time
func (o *RootOptions) parseNow(value string) (time.Time, error) {
	if value == "" {
		return o.Clock().UTC(), nil
	}
	now, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now %q, expected RFC3339: %w", value, err)
	}
	return now.UTC(), nil
}

func (o *RootOptions) component(name string) zerolog.Logger {
	return logger.Component(o.Log, name)
}

func (o *RootOptions) openStore() (*store.Store, error) {
	return store.Open(o.Config.Store.Path)
}

// newConduit builds a Conduit client, caching transaction logs unless the
// cache is disabled. The returned func releases the cache.
func (o *RootOptions) newConduit(recorder phabricator.Recorder) (phabricator.Fetcher, func() error, error) {
	if o.Config.Phabricator.Token == "" {
		return nil, nil, fmt.Errorf("no Conduit API token: set PHABRICATOR_TOKEN or phabricator.token")
	}

	client := phabricator.NewClient(o.Config.Phabricator.URL, o.Config.Phabricator.Token, o.component("phabricator"), recorder)
	if o.Config.Cache.Disabled {
		return client, noop, nil
	}

	fileCache, err := cache.NewDefaultCache(o.Config.Cache.Dir)
	if err != nil {
		return nil, nil, err
	}
	cached := phabricator.NewCachedClient(client, fileCache)
	return cached, cached.Close, nil
}

// newSink opens the Cloud Logging sink when a project is configured
func (o *RootOptions) newSink(ctx context.Context) (report.DiagnosticSink, func() error, error) {
	if o.Config.Log.GCPProject == "" {
		return nil, noop, nil
	}
	sink, err := cloudlog.NewSink(ctx, o.Config.Log.GCPProject, cloudlog.DefaultLogID)
	if err != nil {
		return nil, nil, err
	}
	return sink, sink.Close, nil
}

// inputs converts revisions for the engine, keeping only those carrying
// testingTag when one is given
func inputs(revs []phabricator.Revision, testingTag string, log zerolog.Logger) []latency.Revision {
	out := make([]latency.Revision, 0, len(revs))
	for _, rev := range revs {
		tag, ambiguous := phabricator.TestingProject(rev)
		if ambiguous {
			log.Warn().Int("revision", rev.ID).Str("testing_tag", tag).Msg("revision has more than one testing tag")
		}
		if testingTag != "" && tag != testingTag {
			continue
		}
		out = append(out, rev.Input())
	}
	return out
}

func (o *RootOptions) writeBatch(w io.Writer, batch report.Batch) error {
	if o.Format == "json" {
		return report.WriteJSON(w, batch)
	}
	return report.WriteText(w, batch)
}
