package condition

import (
	"fmt"

	"github.com/roach88/cartrecovery/internal/model"
)

var unitSeconds = map[string]int64{
	"minutes": 60,
	"hours":   3600,
	"days":    86400,
}

// thresholdMillis converts value in unit to milliseconds. Unknown or empty
// units count as hours.
func thresholdMillis(value int64, unit string) int64 {
	secs, ok := unitSeconds[unit]
	if !ok {
		secs = unitSeconds["hours"]
	}
	return value * secs * 1000
}

// unitProblems flags units that silently fall back to hours.
func unitProblems(typ string, cfg model.Config) []Problem {
	unit, ok := cfg.String("unit")
	if !ok {
		return nil
	}
	if _, known := unitSeconds[unit]; known {
		return nil
	}
	return []Problem{{
		Type:    typ,
		Field:   "unit",
		Message: fmt.Sprintf("unknown unit %q treated as hours", unit),
	}}
}
