package e2e

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crowdlens/crowdlens/api"
	"github.com/crowdlens/crowdlens/app"
)

// postAnalysisRequest submits an analysis request through the API and returns
// the decoded response and status code.
func postAnalysisRequest(t *testing.T, router *httptest.Server, body string) (app.AnalysisResponse, int) {
	t.Helper()
	resp, err := router.Client().Post(router.URL+"/api/analyses", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/analyses: %v", err)
	}
	defer resp.Body.Close()

	var decoded app.AnalysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return decoded, resp.StatusCode
}

// waitForJobState polls the status endpoint until the job reaches the wanted
// state or the deadline passes.
func waitForJobState(t *testing.T, router *httptest.Server, jobID string, want app.JobState, timeout time.Duration) app.JobStatus {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var last app.JobStatus
	for time.Now().Before(deadline) {
		resp, err := router.Client().Get(router.URL + "/api/analyses/" + jobID)
		if err != nil {
			t.Fatalf("GET status: %v", err)
		}
		err = json.NewDecoder(resp.Body).Decode(&last)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if last.State == want {
			return last
		}
		if last.State.Terminal() {
			t.Fatalf("job %s reached terminal state %q while waiting for %q (error: %s)", jobID, last.State, want, last.Error)
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("job %s never reached state %q (last: %q)", jobID, want, last.State)
	return last
}

func TestAnalysisPipeline_EndToEnd(t *testing.T) {
	truncateAll(t)

	analyzer := stubAnalyzer(t, app.SentimentBreakdown{Positive: 0.7, Negative: 0.1, Neutral: 0.2}, []string{"release", "pricing"}, 0)
	crowdlens := newTestApp(t, analyzer.URL)
	server := httptest.NewServer(newTestRouter(t, crowdlens))
	defer server.Close()

	userID := seedUser(t, "alice")
	postID := seedPost(t, userID, "We shipped a big update")
	seedComments(t, postID, 5)

	body := `{"post_id":"` + uuidString(postID) + `","user_id":"` + uuidString(userID) + `","options":{"include_themes":true}}`
	submitted, code := postAnalysisRequest(t, server, body)
	if code != 202 {
		t.Fatalf("expected 202, got %d", code)
	}
	if submitted.JobID == "" {
		t.Fatal("expected a job id")
	}
	if submitted.Cached {
		t.Fatal("fresh submission must not be cached")
	}

	waitForJobState(t, server, submitted.JobID, app.JobStateCompleted, 10*time.Second)

	// Results endpoint serves the persisted analysis.
	resp, err := server.Client().Get(server.URL + "/api/analyses/" + submitted.JobID + "/results")
	if err != nil {
		t.Fatalf("GET results: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result api.AnalysisResultResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if result.Positive != 0.7 {
		t.Errorf("expected positive 0.7, got %v", result.Positive)
	}
	if result.CommentCount != 5 {
		t.Errorf("expected comment count 5, got %d", result.CommentCount)
	}
	if len(result.Themes) != 2 {
		t.Errorf("expected 2 themes, got %v", result.Themes)
	}

	// The row landed in durable storage too.
	row, err := crowdlens.DB.GetAnalysisByJobID(t.Context(), submitted.JobID)
	if err != nil {
		t.Fatalf("GetAnalysisByJobID: %v", err)
	}
	if row.CommentCount != 5 {
		t.Errorf("persisted comment count = %d, want 5", row.CommentCount)
	}
}

func TestAnalysisPipeline_UnknownPostFails(t *testing.T) {
	truncateAll(t)

	analyzer := stubAnalyzer(t, app.SentimentBreakdown{Neutral: 1}, nil, 0)
	crowdlens := newTestApp(t, analyzer.URL)
	server := httptest.NewServer(newTestRouter(t, crowdlens))
	defer server.Close()

	// Valid UUIDs that exist nowhere in the database.
	body := `{"post_id":"` + uuidString(newUUID()) + `","user_id":"` + uuidString(newUUID()) + `"}`
	submitted, code := postAnalysisRequest(t, server, body)
	if code != 202 {
		t.Fatalf("expected 202, got %d", code)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		status, err := crowdlens.Pipeline.Status(t.Context(), submitted.JobID)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if status.State == app.JobStateFailed {
			if !strings.Contains(status.Error, "load post") {
				t.Errorf("expected a load-post failure, got %q", status.Error)
			}
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("job never failed")
}

func TestAnalysisPipeline_Deduplication(t *testing.T) {
	truncateAll(t)

	// Slow analyzer keeps the first job in flight while duplicates arrive.
	analyzer := stubAnalyzer(t, app.SentimentBreakdown{Positive: 0.5, Neutral: 0.5}, nil, 300*time.Millisecond)
	crowdlens := newTestApp(t, analyzer.URL)
	server := httptest.NewServer(newTestRouter(t, crowdlens))
	defer server.Close()

	userID := seedUser(t, "bob")
	postID := seedPost(t, userID, "A post everyone wants analyzed")
	seedComments(t, postID, 3)

	body := `{"post_id":"` + uuidString(postID) + `","user_id":"` + uuidString(userID) + `"}`
	first, code := postAnalysisRequest(t, server, body)
	if code != 202 {
		t.Fatalf("expected 202, got %d", code)
	}

	// Repeated identical requests attach to the same job instead of spawning new ones.
	for i := 0; i < 3; i++ {
		dup, code := postAnalysisRequest(t, server, body)
		if code != 202 {
			t.Fatalf("duplicate %d: expected 202, got %d", i, code)
		}
		if dup.JobID != first.JobID {
			t.Fatalf("duplicate %d: got job %s, want %s", i, dup.JobID, first.JobID)
		}
		if dup.Cached {
			t.Errorf("duplicate %d: in-flight attach must not be reported as cached", i)
		}
	}

	waitForJobState(t, server, first.JobID, app.JobStateCompleted, 10*time.Second)
}
