package report

import (
	"slices"
	"time"

	"github.com/reillywatson/reviewstats/internal/latency"
)

// Stats summarizes a set of latencies
type Stats struct {
	Count  int
	Mean   time.Duration
	Median time.Duration
}

// Summary aggregates a batch
type Summary struct {
	Revisions   int
	Malformed   int
	FirstReview Stats
	Pending     Stats
	Diagnostics map[latency.Kind]int
}

// Summarize computes count, mean and median of both latencies and counts
// diagnostics per kind
func Summarize(batch Batch) Summary {
	var firstReviewTimes, waitingTimes []time.Duration
	diagnostics := make(map[latency.Kind]int)

	for _, res := range batch.Results {
		if res.FirstReviewLatency != nil {
			firstReviewTimes = append(firstReviewTimes, *res.FirstReviewLatency)
		}
		if res.PendingLatency != nil {
			waitingTimes = append(waitingTimes, *res.PendingLatency)
		}
		for _, d := range res.Diagnostics {
			diagnostics[d.Kind]++
		}
	}

	return Summary{
		Revisions:   len(batch.Results),
		Malformed:   batch.Malformed,
		FirstReview: stats(firstReviewTimes),
		Pending:     stats(waitingTimes),
		Diagnostics: diagnostics,
	}
}

func stats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}

	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return Stats{
		Count:  len(durations),
		Mean:   total / time.Duration(len(durations)),
		Median: calculateMedian(durations),
	}
}

// calculateMedian calculates the median of a slice of time.Duration
func calculateMedian(durations []time.Duration) time.Duration {
	n := len(durations)
	if n == 0 {
		return 0
	}

	// Sort a copy so callers keep their order
	sorted := slices.Clone(durations)
	slices.Sort(sorted)

	// If odd, return the middle element
	if n%2 != 0 {
		return sorted[n/2]
	}

	// If even, return the average of the two middle elements
	mid1 := sorted[(n/2)-1]
	mid2 := sorted[n/2]
	return (mid1 + mid2) / 2
}
