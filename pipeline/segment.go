package pipeline

// TranscriptSegment is one piece of speaker-attributed transcript text.
// Start and End are absolute seconds on the capture clock, computed as
// the source buffer's start time plus the backend's buffer-relative
// offsets. Segments are immutable once emitted.
type TranscriptSegment struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Speaker  string  `json:"speaker"`
	Language string  `json:"language,omitempty"`
}
