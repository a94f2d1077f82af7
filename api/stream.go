package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/crowdlens/crowdlens/app"
)

func init() {
	registerRoute(func(crowdlens *app.Application, router *http.ServeMux) {
		router.Handle("GET /jobs/stream", routeHandler(crowdlens, jobStreamHandler))
	})
}

// jobStreamHandler streams job lifecycle and maintenance messages to the
// client as server-sent events until the client disconnects.
func jobStreamHandler(crowdlens *app.Application, w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	messages, unsubscribe := crowdlens.EventBus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-messages:
			payload, err := json.Marshal(msg)
			if err != nil {
				log(r.Context()).Error("Failed to marshal bus message", "error", err)
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", msg.ID, msg.Type, payload)
			flusher.Flush()
		}
	}
}
