package watching

import (
	"fmt"
	"strconv"
	"strings"
)

// Intervals are the presets offered by the control panel.
var Intervals = []string{"10s", "30s", "1min", "5min", "10min", "30min", "1h"}

// DefaultIntervalSecs is used when an interval has no recognised unit.
const DefaultIntervalSecs = 60

// ParseInterval converts "10s", "5min" or "1h" into seconds.
// Strings without a known unit fall back to DefaultIntervalSecs.
func ParseInterval(interval string) (int, error) {
	interval = strings.TrimSpace(interval)

	var number string
	var unit int
	switch {
	case strings.HasSuffix(interval, "s"):
		number, unit = strings.TrimSuffix(interval, "s"), 1
	case strings.HasSuffix(interval, "min"):
		number, unit = strings.TrimSuffix(interval, "min"), 60
	case strings.HasSuffix(interval, "h"):
		number, unit = strings.TrimSuffix(interval, "h"), 3600
	default:
		return DefaultIntervalSecs, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(number))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}
	return n * unit, nil
}
