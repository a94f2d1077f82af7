package api

import (
	"net/http"

	"github.com/crowdlens/crowdlens/app"
)

func init() {
	registerRoute(func(crowdlens *app.Application, router *http.ServeMux) {
		router.Handle("GET /health", routeHandler(crowdlens, systemHealthHandler))
	})
}

func systemHealthHandler(crowdlens *app.Application, w http.ResponseWriter, r *http.Request) {
	health := crowdlens.GetSystemHealth(r.Context())

	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJsonResponse(w, status, health)
}
