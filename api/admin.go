package api

import (
	"encoding/json"
	"net/http"

	"github.com/crowdlens/crowdlens/app"
)

func init() {
	registerRoute(func(crowdlens *app.Application, router *http.ServeMux) {
		router.Handle("POST /admin/maintenance", routeHandler(crowdlens, runMaintenanceHandler))
		router.Handle("POST /admin/cache/clear", routeHandler(crowdlens, clearCacheHandler))
		router.Handle("PATCH /admin/cache/config", routeHandler(crowdlens, updateCacheConfigHandler))
		router.Handle("GET /admin/cache/stats", routeHandler(crowdlens, cacheStatsHandler))
	})
}

func runMaintenanceHandler(crowdlens *app.Application, w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(crowdlens, w, r) {
		return
	}

	result := crowdlens.PerformMaintenance(r.Context())
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	writeJsonResponse(w, status, result)
}

func clearCacheHandler(crowdlens *app.Application, w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(crowdlens, w, r) {
		return
	}

	crowdlens.ClearCache()
	writeJsonResponse(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func updateCacheConfigHandler(crowdlens *app.Application, w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(crowdlens, w, r) {
		return
	}

	var patch app.CacheConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJsonResponse(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	merged := crowdlens.UpdateCacheConfig(patch)
	writeJsonResponse(w, http.StatusOK, merged)
}

func cacheStatsHandler(crowdlens *app.Application, w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(crowdlens, w, r) {
		return
	}

	fingerprint, job := crowdlens.Results.Stats()
	writeJsonResponse(w, http.StatusOK, app.CacheTierStats{
		Fingerprint: fingerprint,
		Job:         job,
	})
}
