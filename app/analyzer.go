package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crowdlens/crowdlens/db"
)

// HTTPAnalyzer calls an external sentiment inference service over HTTP.
type HTTPAnalyzer struct {
	url    string
	client *http.Client
}

var _ Analyzer = (*HTTPAnalyzer)(nil)

func NewHTTPAnalyzer(url string, timeout time.Duration) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type analyzeRequest struct {
	PostID   string           `json:"post_id"`
	Platform string           `json:"platform"`
	Content  string           `json:"content"`
	Comments []analyzeComment `json:"comments"`
}

type analyzeComment struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// Analyze posts the comments to the inference endpoint and decodes the
// sentiment breakdown. Any transport or non-2xx failure is returned as an
// error so the pipeline can retry.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, post db.Post, comments []db.Comment) (AnalyzerResult, error) {
	payload := analyzeRequest{
		PostID:   UuidToString(post.ID),
		Platform: post.Platform,
		Content:  post.Content,
		Comments: make([]analyzeComment, 0, len(comments)),
	}
	for _, c := range comments {
		payload.Comments = append(payload.Comments, analyzeComment{
			Author:  c.Author,
			Content: c.Content,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return AnalyzerResult{}, fmt.Errorf("encode analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return AnalyzerResult{}, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Post-ID", payload.PostID)

	resp, err := a.client.Do(req)
	if err != nil {
		return AnalyzerResult{}, fmt.Errorf("call analyzer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a little of the body for the error message, then discard
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return AnalyzerResult{}, fmt.Errorf("analyzer returned %d: %s", resp.StatusCode, snippet)
	}

	var result AnalyzerResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return AnalyzerResult{}, fmt.Errorf("decode analyzer response: %w", err)
	}
	return result, nil
}
