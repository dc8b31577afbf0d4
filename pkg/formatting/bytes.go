// Package formatting converts between byte counts and their human-readable
// form and extracts JSON from loosely formatted model output.
package formatting

import (
	"fmt"
	"strconv"
	"strings"
)

var units = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders n with base-1024 units and one decimal place, dropping
// a trailing ".0": 4194304 becomes "4 MB", 1536 becomes "1.5 KB".
func FormatBytes(n int64) string {
	if n < 1024 {
		return strconv.FormatInt(n, 10) + " B"
	}
	f, i := float64(n), 0
	for f >= 1024 && i < len(units)-1 {
		f /= 1024
		i++
	}
	s := strconv.FormatFloat(f, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0") + " " + units[i]
}

// ParseBytes reads sizes such as "4MB", "512 kb", "1.5GB", or a bare byte
// count. Units are base-1024 and case-insensitive; "KiB"-style spellings
// are accepted.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	num, unit := s, ""
	if split >= 0 {
		num, unit = s[:split], strings.TrimSpace(s[split:])
	}

	value, err := strconv.ParseFloat(num, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid byte size: %q", s)
	}

	unit = strings.Replace(strings.ToUpper(unit), "IB", "B", 1)
	if unit == "" {
		unit = "B"
	}
	for i, u := range units {
		if u == unit {
			return int64(value * float64(int64(1)<<(10*i))), nil
		}
	}
	return 0, fmt.Errorf("unknown byte size unit in %q", s)
}
