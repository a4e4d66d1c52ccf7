package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
)

var units = map[string]int64{
	"":  1,
	"B": 1,
	"K": 1 << 10,
	"M": 1 << 20,
	"G": 1 << 30,
}

// ParseRate converts a bandwidth string such as "512K", "10M" or "1G" into
// bytes per second. A trailing "B" or "/s" is accepted; empty means unlimited.
func ParseRate(s string) (int64, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" || v == "0" {
		return 0, nil
	}

	v = strings.TrimSuffix(v, "/S")
	if n := len(v); n > 1 && v[n-1] == 'B' && strings.IndexByte("KMG", v[n-2]) >= 0 {
		v = v[:n-1]
	}

	unit := ""
	if n := len(v); n > 0 && !isDigit(v[n-1]) {
		unit = v[n-1:]
		v = v[:n-1]
	}

	mult, ok := units[unit]
	if !ok {
		return 0, fmt.Errorf("invalid bandwidth unit in %q (use K, M or G)", s)
	}

	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid bandwidth %q", s)
	}

	return int64(n * float64(mult)), nil
}

func isDigit(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.'
}
