package util

import (
	"strconv"
	"strings"
)

// sizeUnits are matched longest suffix first so "10GB" never parses as
// "10G" + a bytes suffix.
var sizeUnits = []struct {
	suffix string
	factor int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ParseSize converts a human-readable size such as "10MB", "512KB", or
// "2GB" into bytes. Bare numbers are taken as bytes. Anything that does
// not parse, including negative values, yields defaultBytes.
func ParseSize(s string, defaultBytes int64) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return defaultBytes
	}

	var multiplier int64 = 1
	for _, unit := range sizeUnits {
		if strings.HasSuffix(s, unit.suffix) {
			multiplier = unit.factor
			s = strings.TrimSuffix(s, unit.suffix)
			break
		}
	}

	val, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || val < 0 {
		return defaultBytes
	}
	return val * multiplier
}

// MaskSecret keeps the first visiblePrefix bytes of s and replaces the
// rest with "***". Values no longer than the prefix are fully masked.
func MaskSecret(s string, visiblePrefix int) string {
	if visiblePrefix < 0 {
		visiblePrefix = 0
	}
	if len(s) <= visiblePrefix {
		return "***"
	}
	return s[:visiblePrefix] + "***"
}
