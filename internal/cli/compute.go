package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/reillywatson/reviewstats/internal/metrics"
	"github.com/reillywatson/reviewstats/internal/phabricator"
)

// NewComputeCommand creates the compute command.
func NewComputeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalysisOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compute <file>",
		Short: "Compute review latency from a file of revisions",
		Long: `Compute review latency offline from revisions with their transactions
attached, as returned by differential.revision.search plus transaction.search.

The file holds either a JSON array or one revision per line. Use - for stdin.

Examples:
  review-latency compute revisions.json
  review-latency compute - --now 2024-03-01T12:00:00Z < revisions.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompute(opts, cmd, args[0])
		},
	}

	opts.addFlags(cmd)
	opts.addTestingTagFlag(cmd)

	return cmd
}

func runCompute(opts *AnalysisOptions, cmd *cobra.Command, path string) error {
	now, err := opts.parseNow(opts.Now)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad arguments", err)
	}

	var data []byte
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read revisions", err)
	}

	revs, err := decodeRevisions(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to parse revisions", err)
	}

	return opts.analyze(cmd.Context(), cmd.OutOrStdout(), inputs(revs, opts.TestingTag, opts.component("cli")), now, metrics.NewMetrics())
}

// decodeRevisions reads a JSON array of revisions or JSON lines
func decodeRevisions(data []byte) ([]phabricator.Revision, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var revs []phabricator.Revision
		if err := json.Unmarshal(trimmed, &revs); err != nil {
			return nil, err
		}
		return revs, nil
	}

	var revs []phabricator.Revision
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var rev phabricator.Revision
		if err := json.Unmarshal(text, &rev); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		revs = append(revs, rev)
	}
	return revs, scanner.Err()
}
