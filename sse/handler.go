package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/skillsenselab/livescribe/logger"
)

// keepAliveInterval must stay under typical proxy idle timeouts (60s).
const keepAliveInterval = 30 * time.Second

// ConnectedEvent is the payload of the first event on a new connection.
type ConnectedEvent struct {
	ClientID string `json:"client_id"`
}

// ServeSSE attaches one HTTP connection to the hub and streams events
// until the client disconnects or the hub shuts down.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, clientID string) {
	log := logger.Get("sse")

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("response writer cannot stream", logger.Fields(logger.FieldClientID, clientID))
		http.Error(w, "event streaming unsupported", http.StatusInternalServerError)
		return
	}

	// The feed is long-lived; the server's WriteTimeout must not apply.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Warn("could not disable write deadline", logger.Fields(
			logger.FieldClientID, clientID,
			logger.FieldError, err.Error(),
		))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := NewClient(clientID)
	hub.Register(client)
	defer hub.Unregister(client)

	connected, _ := json.Marshal(ConnectedEvent{ClientID: clientID})
	writeEvent(w, Message{Event: EventTypeConnected, Data: connected})
	flusher.Flush()

	log.Debug("client connected", logger.Fields(
		logger.FieldClientID, clientID,
		"remote_addr", r.RemoteAddr,
	))

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("client disconnected", logger.Fields(logger.FieldClientID, clientID))
			return

		case msg, ok := <-client.Events():
			if !ok {
				// Hub shut down.
				return
			}
			writeEvent(w, msg)
			flusher.Flush()

		case <-keepAlive.C:
			// SSE comment line; keeps proxies from closing the idle stream.
			_, _ = fmt.Fprintf(w, ": ping %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

// writeEvent emits one message in wire format:
//
//	event: transcript
//	data: {...}
func writeEvent(w http.ResponseWriter, msg Message) {
	if msg.Event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}
