package sse

// Broadcaster sends a named event to every connected client. Handlers
// and the transcript loop depend on this rather than on the concrete Hub.
type Broadcaster interface {
	Broadcast(event string, data []byte)
}
