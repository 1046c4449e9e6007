// Package server exposes the livescribe HTTP surface: WebSocket audio
// ingest, pipeline control, the SSE transcript stream, and diarization
// endpoints, all served by a single Gin engine wrapped in h2c.
//
// Routes:
//
//	GET  /health                 service and backend health
//	GET  /v1/ingest?source=...   WebSocket audio ingest (microphone | system)
//	POST /v1/pipeline/start      start or restart the transcription pipeline
//	POST /v1/pipeline/stop       drain and stop the pipeline
//	GET  /v1/pipeline/status     point-in-time pipeline snapshot
//	GET  /v1/transcript/stream   SSE stream of transcript and status events
//	POST /v1/diarize             diarize a WAV recording
//	GET  /v1/diarize/speaker     speaker label at a point in time
//	POST /v1/diarize/rename      rename a diarized speaker
//
// Audio frames arrive on the ingest socket as binary WebSocket messages:
// an 8-byte little-endian float64 capture timestamp followed by the
// chunk's samples as little-endian float32 values. Frames received while
// the pipeline is not running are dropped; a socket connected after a
// start joins the pipeline on the next start.
package server
