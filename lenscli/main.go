package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/alexflint/go-arg"
)

type AnalyzeCmd struct {
	URL      string        `arg:"--url,required" help:"CrowdLens base URL"`
	PostID   string        `arg:"--post-id,required" help:"Post UUID to analyze"`
	UserID   string        `arg:"--user-id,required" help:"Requesting user UUID"`
	Priority string        `arg:"--priority" default:"normal" help:"Job priority: low, normal or high"`
	Themes   bool          `arg:"--themes" help:"Include theme extraction"`
	NoCache  bool          `arg:"--no-cache" help:"Bypass the result cache read"`
	Timeout  time.Duration `arg:"--timeout" default:"5m" help:"How long to wait for the job to finish"`
}

type CompareCmd struct {
	URL    string   `arg:"--url,required" help:"CrowdLens base URL"`
	JobIDs []string `arg:"positional,required" help:"Job ids of completed analyses to compare"`
}

type HealthCmd struct {
	URL string `arg:"--url,required" help:"CrowdLens base URL"`
}

type args struct {
	Analyze *AnalyzeCmd `arg:"subcommand:analyze" help:"Submit an analysis and wait for the result"`
	Compare *CompareCmd `arg:"subcommand:compare" help:"Compare completed analyses and print trends"`
	Health  *HealthCmd  `arg:"subcommand:health" help:"Print the system health report"`
}

func (args) Description() string {
	return "lenscli: command line client for the CrowdLens analysis service"
}

func main() {
	var a args
	p := arg.MustParse(&a)

	switch {
	case a.Analyze != nil:
		runAnalyze(a.Analyze)
	case a.Compare != nil:
		runCompare(a.Compare)
	case a.Health != nil:
		runHealth(a.Health)
	default:
		p.WriteUsage(os.Stdout)
		fmt.Println()
		p.WriteHelp(os.Stdout)
		os.Exit(1)
	}
}

func runAnalyze(cmd *AnalyzeCmd) {
	client := &http.Client{Timeout: 10 * time.Second}

	body, _ := json.Marshal(map[string]any{
		"post_id":    cmd.PostID,
		"user_id":    cmd.UserID,
		"priority":   cmd.Priority,
		"skip_cache": cmd.NoCache,
		"options": map[string]any{
			"include_themes": cmd.Themes,
		},
	})

	resp, err := client.Post(cmd.URL+"/api/analyses", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintln(os.Stderr, "request failed:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var submitted struct {
		JobID      string `json:"job_id"`
		Cached     bool   `json:"cached"`
		Validation struct {
			Valid  bool     `json:"valid"`
			Errors []string `json:"errors"`
		} `json:"validation"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		fmt.Fprintln(os.Stderr, "bad response:", err)
		os.Exit(1)
	}

	if !submitted.Validation.Valid {
		fmt.Fprintln(os.Stderr, "request rejected:")
		for _, msg := range submitted.Validation.Errors {
			fmt.Fprintln(os.Stderr, "  -", msg)
		}
		os.Exit(1)
	}

	if submitted.Cached {
		fmt.Println("served from cache:")
		printJSON(submitted.Result)
		return
	}

	fmt.Println("job submitted:", submitted.JobID)

	deadline := time.Now().Add(cmd.Timeout)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if time.Now().After(deadline) {
			fmt.Fprintln(os.Stderr, "timed out waiting for job", submitted.JobID)
			os.Exit(1)
		}

		status, err := fetchJSON(client, cmd.URL+"/api/analyses/"+submitted.JobID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "status check failed:", err)
			continue
		}

		var job struct {
			State           string  `json:"state"`
			Progress        float64 `json:"progress"`
			StepDescription string  `json:"step_description"`
			Error           string  `json:"error"`
		}
		if err := json.Unmarshal(status, &job); err != nil {
			continue
		}

		fmt.Printf("  %s (%.0f%%): %s\n", job.State, job.Progress*100, job.StepDescription)

		switch job.State {
		case "completed":
			result, err := fetchJSON(client, cmd.URL+"/api/analyses/"+submitted.JobID+"/results")
			if err != nil {
				fmt.Fprintln(os.Stderr, "result fetch failed:", err)
				os.Exit(1)
			}
			printJSON(result)
			return
		case "failed":
			fmt.Fprintln(os.Stderr, "job failed:", job.Error)
			os.Exit(1)
		}
	}
}

func runCompare(cmd *CompareCmd) {
	client := &http.Client{Timeout: 10 * time.Second}

	body, _ := json.Marshal(map[string]any{"job_ids": cmd.JobIDs})
	resp, err := client.Post(cmd.URL+"/api/analyses/compare", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintln(os.Stderr, "request failed:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad response:", err)
		os.Exit(1)
	}
	if resp.StatusCode >= 400 {
		fmt.Fprintf(os.Stderr, "compare failed: %s: %s\n", resp.Status, raw)
		os.Exit(1)
	}
	printJSON(raw)
}

func runHealth(cmd *HealthCmd) {
	client := &http.Client{Timeout: 10 * time.Second}
	health, err := fetchJSON(client, cmd.URL+"/api/health")
	if err != nil {
		fmt.Fprintln(os.Stderr, "health check failed:", err)
		os.Exit(1)
	}
	printJSON(health)
}

func fetchJSON(client *http.Client, url string) (json.RawMessage, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s: %s", resp.Status, body)
	}
	return body, nil
}

func printJSON(raw json.RawMessage) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(buf.String())
}
