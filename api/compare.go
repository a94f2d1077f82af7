package api

import (
	"encoding/json"
	"net/http"

	"github.com/crowdlens/crowdlens/app"
)

func init() {
	registerRoute(func(crowdlens *app.Application, router *http.ServeMux) {
		router.Handle("POST /analyses/compare", routeHandler(crowdlens, compareAnalysesHandler))
	})
}

type CompareRequest struct {
	JobIDs []string `json:"job_ids"`
}

func compareAnalysesHandler(crowdlens *app.Application, w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJsonResponse(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	if len(req.JobIDs) == 0 {
		writeJsonResponse(w, http.StatusBadRequest, map[string]string{"error": "job_ids is required"})
		return
	}

	comparison, err := crowdlens.CompareAnalyses(r.Context(), req.JobIDs)
	if err != nil {
		log(r.Context()).Error("Failed to compare analyses", "error", err)
		writeJsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to compare analyses"})
		return
	}

	writeJsonResponse(w, http.StatusOK, comparison)
}
