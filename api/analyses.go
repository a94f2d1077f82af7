package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/crowdlens/crowdlens/app"
	"github.com/crowdlens/crowdlens/db"
)

func init() {
	registerRoute(func(crowdlens *app.Application, router *http.ServeMux) {
		router.Handle("POST /analyses", routeHandler(crowdlens, requestAnalysisHandler))
		router.Handle("GET /analyses/{jobID}", routeHandler(crowdlens, getAnalysisStatusHandler))
		router.Handle("GET /analyses/{jobID}/results", routeHandler(crowdlens, getAnalysisResultsHandler))
		router.Handle("GET /users/{userID}/analyses", routeHandler(crowdlens, getUserHistoryHandler))
	})
}

// AnalysisResultResponse is the wire shape of a persisted analysis result.
type AnalysisResultResponse struct {
	JobID        string    `json:"job_id"`
	PostID       string    `json:"post_id"`
	UserID       string    `json:"user_id"`
	Positive     float64   `json:"positive"`
	Negative     float64   `json:"negative"`
	Neutral      float64   `json:"neutral"`
	Themes       []string  `json:"themes,omitempty"`
	CommentCount int32     `json:"comment_count"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
}

func requestAnalysisHandler(crowdlens *app.Application, w http.ResponseWriter, r *http.Request) {
	var req app.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJsonResponse(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	resp, err := crowdlens.RequestAnalysis(r.Context(), req)
	if err != nil {
		log(r.Context()).Error("Failed to request analysis", "error", err)
		writeJsonResponse(w, http.StatusBadGateway, map[string]string{"error": "Analysis pipeline unavailable"})
		return
	}

	if !resp.Validation.Valid {
		writeJsonResponse(w, http.StatusBadRequest, resp)
		return
	}
	if resp.Cached {
		writeJsonResponse(w, http.StatusOK, resp)
		return
	}
	writeJsonResponse(w, http.StatusAccepted, resp)
}

func getAnalysisStatusHandler(crowdlens *app.Application, w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobID")

	status, err := crowdlens.GetAnalysisStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, app.ErrJobNotFound) {
			writeJsonResponse(w, http.StatusNotFound, map[string]string{"error": "job not found"})
			return
		}
		log(r.Context()).Error("Failed to get job status", "error", err, "job_id", jobID)
		writeJsonResponse(w, http.StatusBadGateway, map[string]string{"error": "Analysis pipeline unavailable"})
		return
	}

	writeJsonResponse(w, http.StatusOK, status)
}

func getAnalysisResultsHandler(crowdlens *app.Application, w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobID")

	result, err := crowdlens.GetAnalysisResults(r.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrJobNotFound):
			writeJsonResponse(w, http.StatusNotFound, map[string]string{"error": "no result for job"})
		case errors.Is(err, app.ErrJobNotCompleted):
			writeJsonResponse(w, http.StatusConflict, map[string]string{"error": "job has not completed"})
		default:
			log(r.Context()).Error("Failed to get analysis results", "error", err, "job_id", jobID)
			writeJsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve results"})
		}
		return
	}

	writeJsonResponse(w, http.StatusOK, resultToResponse(result))
}

func getUserHistoryHandler(crowdlens *app.Application, w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	opts := app.HistoryOptions{
		Limit:          queryInt(r, "limit", 20),
		Offset:         queryInt(r, "offset", 0),
		IncludeResults: queryBool(r, "include_results"),
		FromCache:      queryBool(r, "from_cache"),
	}

	history, err := crowdlens.GetUserAnalysisHistory(r.Context(), userID, opts)
	if err != nil {
		log(r.Context()).Error("Failed to load analysis history", "error", err, "user_id", userID)
		writeJsonResponse(w, http.StatusBadRequest, map[string]string{"error": "Failed to load history"})
		return
	}

	writeJsonResponse(w, http.StatusOK, history)
}

func resultToResponse(result db.AnalysisResult) AnalysisResultResponse {
	return AnalysisResultResponse{
		JobID:        result.JobID,
		PostID:       app.UuidToString(result.PostID),
		UserID:       app.UuidToString(result.UserID),
		Positive:     result.Positive,
		Negative:     result.Negative,
		Neutral:      result.Neutral,
		Themes:       result.Themes,
		CommentCount: result.CommentCount,
		AnalyzedAt:   result.AnalyzedAt.Time,
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func queryBool(r *http.Request, name string) bool {
	return r.URL.Query().Get(name) == "true"
}
