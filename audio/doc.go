// Package audio defines the data model shared by the live transcription
// pipeline and the offline diarization service: raw capture chunks, labeled
// chunks, and the 16-bit PCM WAV codec used to talk to audio backends.
//
// All sample data is mono 32-bit float PCM at a fixed 16 kHz rate. Chunks are
// immutable once produced: a component that needs to keep samples past the
// lifetime of a chunk must copy them.
package audio
