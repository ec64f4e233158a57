package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reillywatson/reviewstats/internal/cache"
)

// NewCacheCommand creates the cache command.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the API response cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Remove expired and unreadable cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCachePurge(rootOpts, cmd)
		},
	})

	return cmd
}

func runCachePurge(opts *RootOptions, cmd *cobra.Command) error {
	fileCache, err := cache.NewDefaultCache(opts.Config.Cache.Dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open cache", err)
	}

	removed, err := fileCache.Purge()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to purge cache", err)
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
			"dir":     fileCache.Dir(),
			"removed": removed,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries from %s\n", removed, fileCache.Dir())
	return nil
}
