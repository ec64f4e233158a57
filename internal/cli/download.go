package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reillywatson/reviewstats/internal/store"
)

// DownloadOptions holds flags for the download command.
type DownloadOptions struct {
	*RootOptions
	Modified bool
}

// NewDownloadCommand creates the download command.
func NewDownloadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DownloadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "download [ids...]",
		Short: "Download revisions into the local store",
		Long: `Download Differential revisions with their transaction logs into the
local SQLite store.

With ids, revisions not already stored are fetched in groups of 100. With
--modified, every revision changed since the newest stored modification
time is fetched again and replaces the stored copy.

Examples:
  review-latency download D1234 D1235
  review-latency download --modified`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(opts, cmd, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Modified, "modified", false, "refresh revisions modified since the last download")

	return cmd
}

func runDownload(opts *DownloadOptions, cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.Modified == (len(args) > 0) {
		return NewExitError(ExitCommandError, "give either revision ids or --modified")
	}
	ids, err := parseRevisionIDs(args)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad arguments", err)
	}

	fetcher, closeFetcher, err := opts.newConduit(nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create Conduit client", err)
	}
	defer closeFetcher()

	st, err := opts.openStore()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer st.Close()

	d := store.NewDownloader(st, fetcher, opts.component("store"))

	var n int
	if opts.Modified {
		n, err = d.DownloadModified(ctx)
	} else {
		n, err = d.DownloadRevisions(ctx, ids)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "download failed", err)
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]int{"downloaded": n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d revisions into %s\n", n, opts.Config.Store.Path)
	return nil
}
