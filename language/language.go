// Package language provides the detected-language collaborator used to
// tag transcript segments when the transcription backend does not
// report a language itself.
package language

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Detector reports the dominant language of a text fragment as a
// lowercase ISO 639-1 code. The second return is false when no
// language could be determined.
type Detector interface {
	Detect(text string) (string, bool)
}

// isoLanguages maps the ISO 639-1 codes accepted in configuration to
// lingua languages. Codes outside this set are ignored.
var isoLanguages = map[string]lingua.Language{
	"ar": lingua.Arabic,
	"cs": lingua.Czech,
	"da": lingua.Danish,
	"de": lingua.German,
	"el": lingua.Greek,
	"en": lingua.English,
	"es": lingua.Spanish,
	"fi": lingua.Finnish,
	"fr": lingua.French,
	"he": lingua.Hebrew,
	"hi": lingua.Hindi,
	"hu": lingua.Hungarian,
	"id": lingua.Indonesian,
	"it": lingua.Italian,
	"ja": lingua.Japanese,
	"ko": lingua.Korean,
	"nl": lingua.Dutch,
	"no": lingua.Bokmal,
	"pl": lingua.Polish,
	"pt": lingua.Portuguese,
	"ro": lingua.Romanian,
	"ru": lingua.Russian,
	"sv": lingua.Swedish,
	"th": lingua.Thai,
	"tr": lingua.Turkish,
	"uk": lingua.Ukrainian,
	"vi": lingua.Vietnamese,
	"zh": lingua.Chinese,
}

type linguaDetector struct {
	detector lingua.LanguageDetector
}

// NewDetector builds a lingua-backed detector restricted to the given
// ISO 639-1 codes. Unrecognized codes are skipped; with fewer than two
// usable codes the detector considers all spoken languages instead.
// Language models load lazily on first detection.
func NewDetector(codes ...string) Detector {
	langs := make([]lingua.Language, 0, len(codes))
	for _, code := range codes {
		if lang, ok := isoLanguages[strings.ToLower(strings.TrimSpace(code))]; ok {
			langs = append(langs, lang)
		}
	}

	builder := lingua.NewLanguageDetectorBuilder()
	var det lingua.LanguageDetector
	if len(langs) >= 2 {
		det = builder.FromLanguages(langs...).Build()
	} else {
		det = builder.FromAllSpokenLanguages().Build()
	}
	return &linguaDetector{detector: det}
}

func (d *linguaDetector) Detect(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

type noopDetector struct{}

func (noopDetector) Detect(string) (string, bool) { return "", false }

// Noop returns a detector that never reports a language. Used when
// detection is disabled or the backend always supplies one.
func Noop() Detector { return noopDetector{} }
