// Package diarization attributes stretches of a recording to
// individual speakers, through pluggable backends wrapped by an
// offline diarization service.
//
// Diarization runs outside the live transcription loop: it takes a full
// audio buffer, not the chunk stream. The Service guards a pluggable
// backend with a model-availability check and caches the most recent
// result for point lookups and speaker renames.
//
// # Backends
//
//   - diarization/pyannote: Pyannote HTTP sidecar
//
// # Usage
//
//	svc := diarization.NewService(backend)
//	result, err := svc.Diarize(ctx, samples, audio.SampleRate)
//	label, ok := svc.SpeakerLabelAt(12.5)
package diarization
