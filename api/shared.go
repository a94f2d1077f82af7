package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/crowdlens/crowdlens/app"
	"github.com/crowdlens/crowdlens/config"
)

type routeRegistrationFunc func(crowdlens *app.Application, router *http.ServeMux)

var routes []routeRegistrationFunc

func registerRoute(r routeRegistrationFunc) {
	routes = append(routes, r)
}

func AddApis(crowdlens *app.Application, router *http.ServeMux) {
	slog.Debug("Registering all API Endpoints", "count", len(routes))
	apiRouter := http.NewServeMux()
	for _, r := range routes {
		r(crowdlens, apiRouter)
	}
	router.Handle("/api/", http.StripPrefix("/api", apiRouter))
}

func log(ctx context.Context) *slog.Logger {
	log := ctx.Value(config.LoggerContextKey)
	if log == nil {
		return slog.Default()
	} else {
		return log.(*slog.Logger)
	}
}

type appHandler func(crowdlens *app.Application, w http.ResponseWriter, r *http.Request)

func routeHandler(crowdlens *app.Application, handler appHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(crowdlens, w, r)
	})
}

func writeJsonResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// requireAdmin verifies the pre-shared admin secret header. A blank
// configured secret disables the admin API entirely.
func requireAdmin(crowdlens *app.Application, w http.ResponseWriter, r *http.Request) bool {
	adminSecret := r.Header.Get("X-CrowdLens-Admin-Secret")
	if crowdlens.Config.AdminSecret == "" || adminSecret != crowdlens.Config.AdminSecret {
		writeJsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "invalid admin secret"})
		return false
	}
	return true
}
