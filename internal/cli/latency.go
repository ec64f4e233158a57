package cli

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/reillywatson/reviewstats/internal/latency"
	"github.com/reillywatson/reviewstats/internal/metrics"
	"github.com/reillywatson/reviewstats/internal/phabricator"
	"github.com/reillywatson/reviewstats/internal/report"
)

// AnalysisOptions holds flags shared by the commands that run the engine.
type AnalysisOptions struct {
	*RootOptions
	Now         string
	Workers     int
	MetricsFile string
	TestingTag  string
}

func (o *AnalysisOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Now, "now", "", "measure pending latency at this RFC3339 time instead of now")
	cmd.Flags().IntVar(&o.Workers, "workers", 0, "number of concurrent workers (default from config)")
	cmd.Flags().StringVar(&o.MetricsFile, "metrics-file", "", "write prometheus metrics to this textfile")
}

func (o *AnalysisOptions) addTestingTagFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.TestingTag, "testing-tag", "", "only analyze revisions with this testing tag")
}

// LatencyOptions holds flags for the latency command.
type LatencyOptions struct {
	AnalysisOptions
	Live bool
}

// NewLatencyCommand creates the latency command.
func NewLatencyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LatencyOptions{AnalysisOptions: AnalysisOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "latency [ids...]",
		Short: "Compute review latency for stored revisions",
		Long: `Compute time to first review and pending latency.

Revisions are read from the local store (all of them when no ids are given).
With --live they are fetched from Conduit instead, which requires ids.

Examples:
  review-latency latency
  review-latency latency D1234 --format json
  review-latency latency --live D1234 --now 2024-03-01T12:00:00Z
  review-latency latency --metrics-file /var/lib/node_exporter/review_latency.prom`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLatency(opts, cmd, args)
		},
	}

	opts.addFlags(cmd)
	opts.addTestingTagFlag(cmd)
	cmd.Flags().BoolVar(&opts.Live, "live", false, "fetch revisions from Conduit instead of the store")

	return cmd
}

func runLatency(opts *LatencyOptions, cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ids, err := parseRevisionIDs(args)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad arguments", err)
	}
	now, err := opts.parseNow(opts.Now)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad arguments", err)
	}

	m := metrics.NewMetrics()

	var revs []phabricator.Revision
	if opts.Live {
		if len(ids) == 0 {
			return NewExitError(ExitCommandError, "--live requires revision ids")
		}
		fetcher, closeFetcher, err := opts.newConduit(m)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create Conduit client", err)
		}
		defer closeFetcher()

		revs, err = fetcher.Fetch(ctx, phabricator.Constraints{IDs: ids})
		if err != nil {
			return WrapExitError(ExitFailure, "failed to fetch revisions", err)
		}
	} else {
		st, err := opts.openStore()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open store", err)
		}
		defer st.Close()

		revs, err = st.Revisions(ctx, ids...)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read revisions", err)
		}
	}

	return opts.analyze(ctx, cmd.OutOrStdout(), inputs(revs, opts.TestingTag, opts.component("cli")), now, m)
}

// analyze runs the batch, writes the report and exports metrics
func (o *AnalysisOptions) analyze(ctx context.Context, w io.Writer, revs []latency.Revision, now time.Time, m *metrics.Metrics) error {
	return o.run(ctx, w, now, m, func(a *report.Analyzer) (report.Batch, error) {
		return a.Analyze(ctx, revs, now)
	})
}

// run builds an analyzer reporting to m and the configured sink, lets batchFn
// produce the results, then writes the report and the metrics textfile
func (o *AnalysisOptions) run(ctx context.Context, w io.Writer, now time.Time, m *metrics.Metrics, batchFn func(*report.Analyzer) (report.Batch, error)) error {
	workers := o.Config.Workers
	if o.Workers > 0 {
		workers = o.Workers
	}

	sink, closeSink, err := o.newSink(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create diagnostics sink", err)
	}
	defer func() {
		if err := closeSink(); err != nil {
			o.Log.Error().Err(err).Msg("failed to close diagnostics sink")
		}
	}()

	analyzerOpts := []report.Option{report.WithRecorder(m)}
	if sink != nil {
		analyzerOpts = append(analyzerOpts, report.WithSink(sink))
	}
	analyzer := report.NewAnalyzer(workers, o.component("report"), analyzerOpts...)

	batch, err := batchFn(analyzer)
	if err != nil {
		return WrapExitError(ExitFailure, "analysis failed", err)
	}

	if err := o.writeBatch(w, batch); err != nil {
		return WrapExitError(ExitFailure, "failed to write report", err)
	}

	metricsFile := o.Config.Metrics.Textfile
	if o.MetricsFile != "" {
		metricsFile = o.MetricsFile
	}
	if metricsFile != "" {
		m.MarkRun(now)
		if err := m.WriteTextfile(metricsFile); err != nil {
			return WrapExitError(ExitFailure, "failed to export metrics", err)
		}
	}

	return nil
}
