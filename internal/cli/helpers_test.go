package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns what it wrote to stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeConfig writes a config file pointing the store and cache into a temp dir
func writeConfig(t *testing.T, extra string) (configPath, storePath string) {
	t.Helper()
	t.Setenv("PHABRICATOR_URL", "")
	t.Setenv("PHABRICATOR_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")

	dir := t.TempDir()
	storePath = filepath.Join(dir, "revisions.db")
	configPath = filepath.Join(dir, "config.yaml")

	content := fmt.Sprintf("store:\n  path: %s\ncache:\n  dir: %s\nlog:\n  level: error\n%s",
		storePath, filepath.Join(dir, "cache"), extra)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	return configPath, storePath
}

const revisionsJSONL = `{"id": 1, "phid": "PHID-DREV-1", "fields": {"status": {"value": "published", "closed": true}}, "transactions": [{"type": "create", "dateCreated": 1700000000}, {"type": "accept", "dateCreated": 1700003600}]}
{"id": 2, "phid": "PHID-DREV-2", "fields": {"status": {"value": "needs-review"}}, "transactions": [{"type": "create", "dateCreated": 1700000000, "fields": []}]}

{"id": 3, "phid": "PHID-DREV-3", "fields": {"status": {"value": "needs-review"}}, "transactions": [{"type": "create", "dateCreated": 1700000000}, {"type": "create", "dateCreated": 1700000100}]}
`

// asOf is two hours after the fixtures' creation time
const asOf = "2023-11-15T00:13:20Z"
