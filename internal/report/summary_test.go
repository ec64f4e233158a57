package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reillywatson/reviewstats/internal/latency"
)

func TestCalculateMedian(t *testing.T) {
	tests := []struct {
		name      string
		durations []time.Duration
		want      time.Duration
	}{
		{"empty", nil, 0},
		{"single", []time.Duration{time.Hour}, time.Hour},
		{"odd", []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour}, 2 * time.Hour},
		{"even", []time.Duration{4 * time.Hour, time.Hour, 2 * time.Hour, 3 * time.Hour}, 150 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateMedian(tt.durations))
		})
	}
}

func TestCalculateMedian_LeavesInputUnsorted(t *testing.T) {
	in := []time.Duration{3, 1, 2}
	calculateMedian(in)
	assert.Equal(t, []time.Duration{3, 1, 2}, in)
}

func TestSummarize(t *testing.T) {
	s := Summarize(fixtureBatch())

	assert.Equal(t, 4, s.Revisions)
	assert.Equal(t, 1, s.Malformed)
	assert.Equal(t, Stats{Count: 2, Mean: 4050 * time.Second, Median: 4050 * time.Second}, s.FirstReview)
	assert.Equal(t, Stats{Count: 2, Mean: 4365 * time.Second, Median: 4365 * time.Second}, s.Pending)
	assert.Equal(t, map[latency.Kind]int{
		latency.KindInconsistentTimeline: 1,
		latency.KindMalformedTimeline:    1,
	}, s.Diagnostics)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(Batch{})

	assert.Zero(t, s.Revisions)
	assert.Equal(t, Stats{}, s.FirstReview)
	assert.Equal(t, Stats{}, s.Pending)
	assert.Empty(t, s.Diagnostics)
}
