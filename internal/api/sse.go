package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/domainimport/domainimport/internal/importer"
	"github.com/domainimport/domainimport/internal/job"
)

// StreamSSE handles GET /task/{id}/sse.
// It streams "status" events until the final "result" event or the client disconnects.
func (h *Handler) StreamSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	id := chi.URLParam(r, "id")

	ch, snap, err := h.svc.Subscribe(id)
	if err != nil {
		if importer.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	defer h.svc.Unsubscribe(id, ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// If already terminal, send the result event and close immediately.
	if snap.Status.IsTerminal() {
		writeSSEEvent(w, flusher, "result", snap)
		return
	}

	// Send the current status so the client has an initial state.
	writeSSEEvent(w, flusher, "status", snap)

	for {
		select {
		case ev, open := <-ch:
			if !open {
				return
			}
			writeSSEEvent(w, flusher, ev.Name, ev.Snapshot)
		case <-r.Context().Done():
			return
		}
	}
}

// writeSSEEvent serialises snap as JSON and writes a single SSE event frame.
func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, snap job.Snapshot) {
	payload, err := json.Marshal(taskView{TaskID: snap.ID, Snapshot: snap})
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	flusher.Flush()
}
