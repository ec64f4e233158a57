package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/reillywatson/reviewstats/internal/latency"
)

// WriteText writes a human-readable report of the batch
func WriteText(w io.Writer, batch Batch) error {
	var buf bytes.Buffer
	summary := Summarize(batch)

	fmt.Fprintf(&buf, "Review Latency Report (run %s)\n", batch.RunID)
	fmt.Fprintf(&buf, "As of %s\n", batch.Now.UTC().Format(time.RFC3339))

	fmt.Fprintln(&buf, "\nReviewed Revisions:")
	fmt.Fprintln(&buf, "-------------------")
	reviewed := 0
	for _, res := range batch.Results {
		if res.FirstReviewLatency == nil {
			continue
		}
		reviewed++
		fmt.Fprintf(&buf, "%s%d: first review after %v (%s)\n",
			batch.IDPrefix, res.RevisionID, res.FirstReviewLatency.Truncate(time.Second), res.State)
	}
	if reviewed == 0 {
		fmt.Fprintln(&buf, "  None found")
	}

	fmt.Fprintln(&buf, "\nRevisions Awaiting Review:")
	fmt.Fprintln(&buf, "--------------------------")
	awaiting := 0
	for _, res := range batch.Results {
		if res.PendingLatency == nil {
			continue
		}
		awaiting++
		fmt.Fprintf(&buf, "%s%d: waiting for %v\n",
			batch.IDPrefix, res.RevisionID, res.PendingLatency.Truncate(time.Second))
	}
	if awaiting == 0 {
		fmt.Fprintln(&buf, "  None found")
	}

	fmt.Fprintln(&buf, "\nDiagnostics:")
	fmt.Fprintln(&buf, "------------")
	diagnostics := 0
	for _, res := range batch.Results {
		for _, d := range res.Diagnostics {
			diagnostics++
			fmt.Fprintln(&buf, d.String())
		}
	}
	if diagnostics == 0 {
		fmt.Fprintln(&buf, "  None found")
	}

	fmt.Fprintln(&buf, "\nSummary Statistics:")
	fmt.Fprintln(&buf, "-------------------")
	fmt.Fprintf(&buf, "Revisions: %d (%d malformed)\n", summary.Revisions, summary.Malformed)

	if summary.FirstReview.Count > 0 {
		fmt.Fprintf(&buf, "Time to First Review: %d\n", summary.FirstReview.Count)
		fmt.Fprintf(&buf, "  Mean: %v\n", summary.FirstReview.Mean.Truncate(time.Second))
		fmt.Fprintf(&buf, "  Median: %v\n", summary.FirstReview.Median.Truncate(time.Second))
	} else {
		fmt.Fprintln(&buf, "Time to First Review: No data")
	}

	if summary.Pending.Count > 0 {
		fmt.Fprintf(&buf, "Awaiting Review: %d\n", summary.Pending.Count)
		fmt.Fprintf(&buf, "  Mean wait time: %v\n", summary.Pending.Mean.Truncate(time.Second))
		fmt.Fprintf(&buf, "  Median wait time: %v\n", summary.Pending.Median.Truncate(time.Second))
	} else {
		fmt.Fprintln(&buf, "Awaiting Review: 0")
	}

	for _, kind := range latency.Kinds {
		if n := summary.Diagnostics[kind]; n > 0 {
			fmt.Fprintf(&buf, "%s: %d\n", kind, n)
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

type jsonReport struct {
	RunID   string       `json:"run_id"`
	Now     time.Time    `json:"now"`
	Results []jsonResult `json:"results"`
	Summary jsonSummary  `json:"summary"`
}

type jsonResult struct {
	RevisionID         int              `json:"revision_id"`
	FirstReviewLatency *int64           `json:"first_review_latency,omitempty"`
	PendingLatency     *int64           `json:"pending_latency,omitempty"`
	State              latency.State    `json:"state"`
	Diagnostics        []jsonDiagnostic `json:"diagnostics,omitempty"`
}

type jsonDiagnostic struct {
	Kind       latency.Kind `json:"kind"`
	RevisionID int          `json:"revision_id"`
	Message    string       `json:"message"`
}

type jsonStats struct {
	Count  int   `json:"count"`
	Mean   int64 `json:"mean"`
	Median int64 `json:"median"`
}

type jsonSummary struct {
	Revisions   int                  `json:"revisions"`
	Malformed   int                  `json:"malformed"`
	FirstReview jsonStats            `json:"first_review"`
	Pending     jsonStats            `json:"pending"`
	Diagnostics map[latency.Kind]int `json:"diagnostics"`
}

// WriteJSON writes the batch as JSON. Latencies are whole seconds and are
// omitted when absent.
func WriteJSON(w io.Writer, batch Batch) error {
	summary := Summarize(batch)

	out := jsonReport{
		RunID:   batch.RunID,
		Now:     batch.Now.UTC(),
		Results: make([]jsonResult, 0, len(batch.Results)),
		Summary: jsonSummary{
			Revisions:   summary.Revisions,
			Malformed:   summary.Malformed,
			FirstReview: toJSONStats(summary.FirstReview),
			Pending:     toJSONStats(summary.Pending),
			Diagnostics: summary.Diagnostics,
		},
	}

	for _, res := range batch.Results {
		r := jsonResult{
			RevisionID:         res.RevisionID,
			FirstReviewLatency: seconds(res.FirstReviewLatency),
			PendingLatency:     seconds(res.PendingLatency),
			State:              res.State,
		}
		for _, d := range res.Diagnostics {
			r.Diagnostics = append(r.Diagnostics, jsonDiagnostic{Kind: d.Kind, RevisionID: d.RevisionID, Message: d.Message})
		}
		out.Results = append(out.Results, r)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func seconds(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	s := int64(*d / time.Second)
	return &s
}

func toJSONStats(s Stats) jsonStats {
	return jsonStats{
		Count:  s.Count,
		Mean:   int64(s.Mean / time.Second),
		Median: int64(s.Median / time.Second),
	}
}
