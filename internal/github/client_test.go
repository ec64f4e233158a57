package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestGitHubClient(t *testing.T, mux *http.ServeMux) *GitHubClient {
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := newGitHubClientWithBaseURL(server.Client(), server.URL)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestGitHubClient_FetchPullRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/pulls", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("state"); got != "all" {
			t.Errorf("Expected state=all, got %q", got)
		}
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/owner/repo/pulls?page=2>; rel="next"`, r.Host))
			fmt.Fprint(w, `[
				{"number": 3, "created_at": "2024-03-10T00:00:00Z"},
				{"number": 2, "created_at": "2024-03-05T00:00:00Z"}
			]`)
		case "2":
			fmt.Fprint(w, `[
				{"number": 1, "created_at": "2024-02-01T00:00:00Z"}
			]`)
		default:
			t.Errorf("Unexpected page %s", r.URL.Query().Get("page"))
		}
	})

	client := newTestGitHubClient(t, mux)
	prs, err := client.FetchPullRequests(context.Background(), "owner", "repo",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(prs) != 1 || prs[0].GetNumber() != 2 {
		t.Errorf("Expected only PR #2 in range, got %d PRs", len(prs))
	}
}

func TestGitHubClient_FetchIssueEvents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/issues/7/events", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"event": "convert_to_draft", "created_at": "2024-03-01T10:00:00Z"},
			{"event": "ready_for_review", "created_at": "2024-03-01T12:00:00Z"}
		]`)
	})

	client := newTestGitHubClient(t, mux)
	events, err := client.FetchIssueEvents(context.Background(), "owner", "repo", 7)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[1].GetEvent() != "ready_for_review" {
		t.Errorf("Expected ready_for_review, got %s", events[1].GetEvent())
	}
}

func TestGitHubClient_FetchPullRequestReviewsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/pulls/7/reviews", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})

	client := newTestGitHubClient(t, mux)
	if _, err := client.FetchPullRequestReviews(context.Background(), "owner", "repo", 7); err == nil {
		t.Error("Expected an error for a missing PR")
	}
}
