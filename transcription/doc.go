// Package transcription turns captured speech into text through
// pluggable speech-to-text backends.
//
// Backends receive raw mono float32 samples; providers that speak to
// HTTP or cloud APIs derive a 16-bit PCM WAV payload from the samples
// themselves. Segment times in responses are relative to the start of
// the submitted buffer.
//
// # Backends
//
//   - transcription/whisper: faster-whisper HTTP sidecar
//   - transcription/openai: OpenAI Whisper cloud API
//
// # Usage
//
//	mgr := transcription.NewManager()
//	mgr.Register(whisper.ProviderName, whisper.Factory())
//	mgr.Initialize(ctx, whisper.ProviderName, cfg)
//	resp, err := backend.Transcribe(ctx, transcription.Request{Samples: samples, SampleRate: 16000})
package transcription
