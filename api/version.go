package api

import (
	"net/http"

	"github.com/crowdlens/crowdlens/app"
	"github.com/crowdlens/crowdlens/config"
)

func init() {
	registerRoute(func(app *app.Application, router *http.ServeMux) {
		router.Handle("GET /version", routeHandler(app, versionApiHandler))
	})
}

type VersionResponse struct {
	App     string `json:"app"`
	Version string `json:"version"`
}

func versionApiHandler(app *app.Application, w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, VersionResponse{
		App:     "crowdlens",
		Version: config.Version,
	})
}
