package cloudlog

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/reillywatson/reviewstats/internal/latency"
)

type fakeLogger struct {
	entries  []logging.Entry
	flushed  int
	flushErr error
}

func (f *fakeLogger) Log(e logging.Entry) { f.entries = append(f.entries, e) }

func (f *fakeLogger) Flush() error {
	f.flushed++
	return f.flushErr
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, logging.Error, Severity(latency.KindMalformedTimeline))
	assert.Equal(t, logging.Warning, Severity(latency.KindMissingCreationDate))
	assert.Equal(t, logging.Warning, Severity(latency.KindInconsistentTimeline))
	assert.Equal(t, logging.Info, Severity(latency.KindReviewedDuringExclusion))
	assert.Equal(t, logging.Default, Severity(latency.Kind("Unknown")))
}

func TestEmit(t *testing.T) {
	fake := &fakeLogger{}
	sink := &Sink{logger: fake}

	d := latency.Diagnostic{
		Kind:       latency.KindReviewedDuringExclusion,
		RevisionID: 42,
		Message:    "Revision D42 was reviewed while in 'planned changes' or 'closed' state.",
	}
	require.NoError(t, sink.Emit(context.Background(), d))

	require.Len(t, fake.entries, 1)
	e := fake.entries[0]
	assert.Equal(t, logging.Info, e.Severity)
	assert.Equal(t, "42", e.Labels["revision_id"])
	assert.Equal(t, "ReviewedDuringExclusion", e.Labels["kind"])
	assert.Equal(t, d, diagnosticFromEntry(&e))
}

func TestDiagnosticFromEntry_StructPayload(t *testing.T) {
	payload, err := structpb.NewStruct(map[string]interface{}{"message": "Revision D7 has no creation date."})
	require.NoError(t, err)

	d := diagnosticFromEntry(&logging.Entry{
		Labels:  map[string]string{"kind": "MissingCreationDate", "revision_id": "7"},
		Payload: payload,
	})

	assert.Equal(t, latency.Diagnostic{
		Kind:       latency.KindMissingCreationDate,
		RevisionID: 7,
		Message:    "Revision D7 has no creation date.",
	}, d)
}

func TestClose_ReportsFlushError(t *testing.T) {
	fake := &fakeLogger{flushErr: errors.New("unavailable")}
	sink := &Sink{logger: fake}

	err := sink.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
	assert.Equal(t, 1, fake.flushed)
}
