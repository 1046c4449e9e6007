package sse

// SSE event names used on the transcript feed.
const (
	// EventTypeConnected is sent once when a client attaches to the feed.
	EventTypeConnected = "connected"

	// EventTypeTranscript carries one TranscriptSegment as JSON.
	EventTypeTranscript = "transcript"

	// EventTypeStatus carries pipeline lifecycle changes (started, stopped).
	EventTypeStatus = "status"
)
