package language

import "testing"

func TestDetectRestrictedSet(t *testing.T) {
	det := NewDetector("en", "es", "de")

	cases := []struct {
		text string
		code string
	}{
		{"The quick brown fox jumped over the lazy dog near the river.", "en"},
		{"El rápido zorro marrón salta sobre el perro perezoso.", "es"},
		{"Der schnelle braune Fuchs springt über den faulen Hund.", "de"},
	}
	for _, tc := range cases {
		code, ok := det.Detect(tc.text)
		if !ok {
			t.Errorf("Detect(%q) found nothing", tc.text)
			continue
		}
		if code != tc.code {
			t.Errorf("Detect(%q) = %q, want %q", tc.text, code, tc.code)
		}
	}
}

func TestDetectSkipsUnknownCodes(t *testing.T) {
	det := NewDetector("en", "xx", "es")

	code, ok := det.Detect("¿Dónde está la biblioteca? Necesito devolver unos libros.")
	if !ok || code != "es" {
		t.Errorf("Detect = %q, %v; want es, true", code, ok)
	}
}

func TestDetectEmptyText(t *testing.T) {
	det := NewDetector("en", "es")

	if _, ok := det.Detect(""); ok {
		t.Error("empty text should not detect a language")
	}
	if _, ok := det.Detect("   "); ok {
		t.Error("whitespace-only text should not detect a language")
	}
}

func TestNoopDetector(t *testing.T) {
	det := Noop()

	if code, ok := det.Detect("This is clearly English text."); ok || code != "" {
		t.Errorf("noop detector returned %q, %v", code, ok)
	}
}
