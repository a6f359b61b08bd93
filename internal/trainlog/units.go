package trainlog

import (
	"regexp"
	"strconv"
	"strings"
)

// free-text duration/length parsing: people log "2h", "30 m", "90s",
// "1.5h", "5km", "3000m", "25" ... absent or unparseable values mean
// "nothing logged" and become 0, never an error.

var numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

func firstNumber(s string) (float64, bool) {
	match := numberRe.FindString(s)
	if match == "" {
		return 0, false
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return val, true
}

// ParseDuration converts a free-text duration to minutes.
//
// Unit markers are checked in priority order: "h" wins, then "m" but
// only when no "s" is around, then "s". That means "30 mins" contains
// both markers and parses as seconds (0.5), not minutes - intentionally
// kept as-is, see units_test.go.
func ParseDuration(text string) float64 {
	d := strings.ReplaceAll(strings.ToLower(text), " ", "")
	if d == "" {
		return 0
	}

	val, ok := firstNumber(d)
	if !ok {
		return 0
	}

	switch {
	case strings.Contains(d, "h"):
		return val * 60
	case strings.Contains(d, "m") && !strings.Contains(d, "s"):
		return val
	case strings.Contains(d, "s"):
		return val / 60
	default:
		return 0
	}
}

// ParseLength converts a free-text length to kilometers. A lone "m"
// marker means meters; bare numbers and "km" suffixes are kilometers.
func ParseLength(text string) float64 {
	l := strings.ReplaceAll(strings.ToLower(text), " ", "")
	if l == "" {
		return 0
	}

	val, ok := firstNumber(l)
	if !ok {
		return 0
	}

	if strings.Contains(l, "m") && !strings.Contains(l, "km") {
		return val / 1000
	}
	return val
}
