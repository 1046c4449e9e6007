// Package sse delivers transcript segments to browser clients over
// Server-Sent Events.
//
// A Hub owns the set of connected clients and fans every broadcast out
// to all of them. Each client has a buffered event channel; a client
// that cannot drain its channel fast enough has events dropped rather
// than stalling the broadcast loop.
//
// # Usage
//
//	hub := sse.NewHub()
//	go hub.Run()
//	defer hub.Stop()
//
//	// from the transcript loop
//	hub.Broadcast(sse.EventTypeTranscript, segmentJSON)
//
//	// from an HTTP handler
//	sse.ServeSSE(hub, w, r, uuid.NewString())
package sse
