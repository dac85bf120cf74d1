// Package timeutil converts between seconds and the clock-style
// position strings shown in the TUI and accepted on the command line.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatTime renders seconds as H:MM:SS. Negative input renders as
// zero.
func FormatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, total/60%60, total%60)
}

// ParseTime parses a position given as raw seconds ("90", "4.5"),
// M:SS, or H:MM:SS into seconds.
func ParseTime(in string) (float64, error) {
	in = strings.TrimSpace(in)
	parts := strings.Split(in, ":")

	if len(parts) == 1 {
		secs, err := strconv.ParseFloat(in, 64)
		if err != nil || secs < 0 {
			return 0, fmt.Errorf("invalid position %q", in)
		}
		return secs, nil
	}
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid position %q", in)
	}

	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid position %q", in)
		}
		total = total*60 + n
	}
	return float64(total), nil
}
