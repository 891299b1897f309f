package auth

import (
	"math"
	"regexp"
	"strconv"
	"time"
)

// DefaultTokenLifetime is used when the configured lifetime is absent or
// can not be parsed.
const DefaultTokenLifetime = 7 * 24 * time.Hour

var lifetimeExpr = regexp.MustCompile(`^(\d+)([dhms])$`)

// ParseLifetime parses expressions like "7d", "12h", "30m" or "45s".
// Anything else returns DefaultTokenLifetime.
func ParseLifetime(expr string) time.Duration {
	m := lifetimeExpr.FindStringSubmatch(expr)
	if m == nil {
		return DefaultTokenLifetime
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return DefaultTokenLifetime
	}

	var unit time.Duration
	switch m[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}

	if int64(n) > math.MaxInt64/int64(unit) {
		return DefaultTokenLifetime
	}

	return time.Duration(n) * unit
}
