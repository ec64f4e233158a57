package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/reillywatson/reviewstats/internal/cloudlog"
)

// DiagnosticsOptions holds flags for the diagnostics command.
type DiagnosticsOptions struct {
	*RootOptions
	Since time.Duration
	Limit int
}

// NewDiagnosticsCommand creates the diagnostics command.
func NewDiagnosticsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiagnosticsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "List recent diagnostics from Cloud Logging",
		Long: `List diagnostics that earlier runs sent to Cloud Logging, newest first.

Requires log.gcp_project in the config file.

Examples:
  review-latency diagnostics --since 24h
  review-latency diagnostics --since 168h --limit 500 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnostics(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Since, "since", 24*time.Hour, "how far back to look")
	cmd.Flags().IntVar(&opts.Limit, "limit", 100, "maximum number of diagnostics to list (0 for all)")

	return cmd
}

func runDiagnostics(opts *DiagnosticsOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	project := opts.Config.Log.GCPProject
	if project == "" {
		return NewExitError(ExitCommandError, "log.gcp_project is not configured")
	}

	sink, err := cloudlog.NewSink(ctx, project, cloudlog.DefaultLogID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect to Cloud Logging", err)
	}
	defer sink.Close()

	diags, err := sink.Recent(ctx, opts.Clock().Add(-opts.Since), opts.Limit)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read diagnostics", err)
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(diags)
	}

	if len(diags) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No diagnostics found")
		return nil
	}
	for _, d := range diags {
		fmt.Fprintln(cmd.OutOrStdout(), d.String())
	}
	return nil
}
