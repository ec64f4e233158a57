// Package cloudlog ships latency diagnostics to Google Cloud Logging and
// reads them back.
package cloudlog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/logging"
	"cloud.google.com/go/logging/logadmin"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/reillywatson/reviewstats/internal/latency"
)

// DefaultLogID is the log diagnostics are written to
const DefaultLogID = "review-latency-diagnostics"

// entryLogger is the subset of *logging.Logger the sink writes through
type entryLogger interface {
	Log(e logging.Entry)
	Flush() error
}

// Sink writes diagnostics as structured log entries
type Sink struct {
	client    *logging.Client
	admin     *logadmin.Client
	logger    entryLogger
	projectID string
	logID     string
}

// NewSink creates a sink using Application Default Credentials
func NewSink(ctx context.Context, projectID, logID string) (*Sink, error) {
	if logID == "" {
		logID = DefaultLogID
	}

	client, err := logging.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create logging client: %w", err)
	}

	admin, err := logadmin.NewClient(ctx, projectID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create logging admin client: %w", err)
	}

	return &Sink{
		client:    client,
		admin:     admin,
		logger:    client.Logger(logID),
		projectID: projectID,
		logID:     logID,
	}, nil
}

// Severity maps a diagnostic kind to a log severity
func Severity(kind latency.Kind) logging.Severity {
	switch kind {
	case latency.KindMalformedTimeline:
		return logging.Error
	case latency.KindMissingCreationDate, latency.KindInconsistentTimeline:
		return logging.Warning
	case latency.KindReviewedDuringExclusion:
		return logging.Info
	default:
		return logging.Default
	}
}

func entry(d latency.Diagnostic) logging.Entry {
	return logging.Entry{
		Severity: Severity(d.Kind),
		Labels: map[string]string{
			"kind":        string(d.Kind),
			"revision_id": strconv.Itoa(d.RevisionID),
		},
		Payload: map[string]interface{}{
			"kind":        string(d.Kind),
			"revision_id": d.RevisionID,
			"message":     d.Message,
		},
	}
}

// Emit queues d for delivery. Entries are batched by the client; Close
// flushes them.
func (s *Sink) Emit(_ context.Context, d latency.Diagnostic) error {
	s.logger.Log(entry(d))
	return nil
}

// Recent returns up to limit diagnostics written since the given time,
// newest first
func (s *Sink) Recent(ctx context.Context, since time.Time, limit int) ([]latency.Diagnostic, error) {
	filter := fmt.Sprintf(`logName="projects/%s/logs/%s" AND timestamp>="%s"`,
		s.projectID, s.logID, since.UTC().Format(time.RFC3339))

	it := s.admin.Entries(ctx,
		logadmin.Filter(filter),
		logadmin.NewestFirst(),
	)

	var diags []latency.Diagnostic
	for limit <= 0 || len(diags) < limit {
		e, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error querying logs: %w", err)
		}
		diags = append(diags, diagnosticFromEntry(e))
	}

	return diags, nil
}

// diagnosticFromEntry rebuilds a diagnostic from a stored entry. Labels are
// authoritative for kind and revision; the message comes from the payload.
func diagnosticFromEntry(e *logging.Entry) latency.Diagnostic {
	d := latency.Diagnostic{Kind: latency.Kind(e.Labels["kind"])}
	if id, err := strconv.Atoi(e.Labels["revision_id"]); err == nil {
		d.RevisionID = id
	}

	switch p := e.Payload.(type) {
	case *structpb.Struct:
		d.Message = p.GetFields()["message"].GetStringValue()
	case map[string]interface{}:
		d.Message, _ = p["message"].(string)
	case string:
		d.Message = p
	}
	return d
}

// Close flushes pending entries and closes the clients
func (s *Sink) Close() error {
	var errs []error

	if err := s.logger.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush diagnostics: %w", err))
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.admin != nil {
		if err := s.admin.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
