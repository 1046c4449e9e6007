package pipeline

import (
	"context"
	"testing"

	"github.com/skillsenselab/livescribe/audio"
	"github.com/skillsenselab/livescribe/stream"
)

func sourceChunks(src audio.Source, count int) []audio.Chunk {
	chunks := make([]audio.Chunk, count)
	for i := range chunks {
		chunks[i] = audio.Chunk{
			Samples:   make([]float32, audio.SampleRate),
			Timestamp: float64(i),
			Source:    src,
		}
	}
	return chunks
}

func TestMerge_LabelsAndCount(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	mic := stream.FromSlice(sourceChunks(audio.SourceMicrophone, 3))
	system := stream.FromSlice(sourceChunks(audio.SourceSystemAudio, 3))

	merged, err := stream.Collect(context.Background(), Merge(context.Background(), cfg, mic, system))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(merged) != 6 {
		t.Fatalf("merged %d chunks, want 6", len(merged))
	}

	counts := make(map[string]int)
	for _, c := range merged {
		counts[c.Speaker]++
	}
	if counts["You"] != 3 {
		t.Errorf("got %d chunks labeled You, want 3", counts["You"])
	}
	if counts["Others"] != 3 {
		t.Errorf("got %d chunks labeled Others, want 3", counts["Others"])
	}
}

func TestMerge_PreservesPerSourceOrder(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	mic := stream.FromSlice(sourceChunks(audio.SourceMicrophone, 5))
	system := stream.FromSlice(sourceChunks(audio.SourceSystemAudio, 5))

	merged, err := stream.Collect(context.Background(), Merge(context.Background(), cfg, mic, system))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	last := map[string]float64{"You": -1, "Others": -1}
	for _, c := range merged {
		if c.Timestamp <= last[c.Speaker] {
			t.Fatalf("speaker %s: timestamp %v arrived after %v", c.Speaker, c.Timestamp, last[c.Speaker])
		}
		last[c.Speaker] = c.Timestamp
	}
}

func TestMerge_CustomLabels(t *testing.T) {
	cfg := Config{MicrophoneLabel: "Host", SystemLabel: "Guests"}
	cfg.ApplyDefaults()

	mic := stream.FromSlice(sourceChunks(audio.SourceMicrophone, 1))
	system := stream.FromSlice(sourceChunks(audio.SourceSystemAudio, 1))

	merged, err := stream.Collect(context.Background(), Merge(context.Background(), cfg, mic, system))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	seen := make(map[string]bool)
	for _, c := range merged {
		seen[c.Speaker] = true
	}
	if !seen["Host"] || !seen["Guests"] {
		t.Errorf("expected Host and Guests labels, got %v", seen)
	}
}

func TestMerge_OneSourceEndsEarly(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	mic := stream.FromSlice(sourceChunks(audio.SourceMicrophone, 1))
	system := stream.FromSlice(sourceChunks(audio.SourceSystemAudio, 4))

	merged, err := stream.Collect(context.Background(), Merge(context.Background(), cfg, mic, system))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(merged) != 5 {
		t.Fatalf("merged %d chunks, want 5", len(merged))
	}
}
