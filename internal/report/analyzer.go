package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/reillywatson/reviewstats/internal/latency"
)

// DiagnosticSink receives every diagnostic produced during a batch
type DiagnosticSink interface {
	Emit(ctx context.Context, d latency.Diagnostic) error
}

// Recorder observes each computed result
type Recorder interface {
	RecordResult(res latency.Result, malformed bool)
}

// Batch is the outcome of one analysis run
type Batch struct {
	RunID string
	Now   time.Time
	// IDPrefix is prepended to revision ids in the text report ("D" for
	// Differential revisions, "#" for pull requests)
	IDPrefix  string
	Results   []latency.Result
	Malformed int
}

// Analyzer computes latencies for many revisions concurrently
type Analyzer struct {
	workers  int
	log      zerolog.Logger
	sink     DiagnosticSink
	recorder Recorder
}

type Option func(*Analyzer)

// WithSink forwards every diagnostic to sink
func WithSink(sink DiagnosticSink) Option {
	return func(a *Analyzer) { a.sink = sink }
}

// WithRecorder reports every result to r
func WithRecorder(r Recorder) Option {
	return func(a *Analyzer) { a.recorder = r }
}

func NewAnalyzer(workers int, log zerolog.Logger, opts ...Option) *Analyzer {
	if workers < 1 {
		workers = 1
	}
	a := &Analyzer{workers: workers, log: log}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze computes every revision independently at now. A malformed timeline
// is logged and counted but does not stop the batch; results keep the input
// order. Only cancellation of ctx fails the run.
func (a *Analyzer) Analyze(ctx context.Context, revs []latency.Revision, now time.Time) (Batch, error) {
	batch := a.newBatch("D", now, make([]latency.Result, len(revs)))
	log := a.log.With().Str("run_id", batch.RunID).Logger()
	log.Info().Int("revisions", len(revs)).Int("workers", a.workers).Msg("analyzing revisions")

	malformed := make([]bool, len(revs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i := range revs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, err := latency.Compute(revs[i], now)
			if err != nil {
				if !errors.Is(err, latency.ErrMalformedTimeline) {
					return fmt.Errorf("revision D%d: %w", revs[i].ID, err)
				}
				malformed[i] = true
			}
			batch.Results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch{}, err
	}

	// Reporting happens after the fan-out so sinks and logs see input order
	a.report(ctx, log, &batch, malformed)
	return batch, nil
}

// Collect reports results computed elsewhere, such as pull requests, the way
// Analyze reports its own. A result is malformed when it carries a
// MalformedTimeline diagnostic.
func (a *Analyzer) Collect(ctx context.Context, idPrefix string, results []latency.Result, now time.Time) Batch {
	batch := a.newBatch(idPrefix, now, results)
	log := a.log.With().Str("run_id", batch.RunID).Logger()

	malformed := make([]bool, len(results))
	for i, res := range results {
		malformed[i] = res.HasDiagnostic(latency.KindMalformedTimeline)
	}

	a.report(ctx, log, &batch, malformed)
	return batch
}

func (a *Analyzer) newBatch(idPrefix string, now time.Time, results []latency.Result) Batch {
	return Batch{
		RunID:    uuid.NewString(),
		Now:      now,
		IDPrefix: idPrefix,
		Results:  results,
	}
}

// report counts malformed results and hands every result and diagnostic to
// the recorder, the log and the sink, in order
func (a *Analyzer) report(ctx context.Context, log zerolog.Logger, batch *Batch, malformed []bool) {
	for i, res := range batch.Results {
		if malformed[i] {
			batch.Malformed++
		}
		if a.recorder != nil {
			a.recorder.RecordResult(res, malformed[i])
		}
		for _, d := range res.Diagnostics {
			log.Warn().Int("revision", d.RevisionID).Str("kind", string(d.Kind)).Msg(d.Message)
			if a.sink == nil {
				continue
			}
			if err := a.sink.Emit(ctx, d); err != nil {
				log.Error().Err(err).Int("revision", d.RevisionID).Msg("failed to emit diagnostic")
			}
		}
	}

	log.Info().Int("results", len(batch.Results)).Int("malformed", batch.Malformed).Msg("analysis complete")
}
