package util

import "testing"

func TestParseSizeUnits(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"10MB", 10 << 20},
		{"512KB", 512 << 10},
		{"2GB", 2 << 30},
		{"64B", 64},
		{"1024", 1024},
		{" 10mb ", 10 << 20},
	}
	for _, tc := range cases {
		if got := ParseSize(tc.in, 0); got != tc.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseSizeFallsBackToDefault(t *testing.T) {
	const fallback = int64(5 << 20)
	for _, in := range []string{"", "banana", "-3MB", "MB"} {
		if got := ParseSize(in, fallback); got != fallback {
			t.Errorf("ParseSize(%q) = %d, want the fallback", in, got)
		}
	}
}

func TestMaskSecretPrefixes(t *testing.T) {
	cases := []struct {
		in     string
		prefix int
		want   string
	}{
		{"sk-abcdef123456", 4, "sk-a***"},
		{"hunter2", 2, "hu***"},
		{"tiny", 8, "***"},
		{"", 3, "***"},
		{"whole", -1, "***"},
	}
	for _, tc := range cases {
		if got := MaskSecret(tc.in, tc.prefix); got != tc.want {
			t.Errorf("MaskSecret(%q, %d) = %q, want %q", tc.in, tc.prefix, got, tc.want)
		}
	}
}
