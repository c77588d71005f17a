// Package units provides shared constants and conversions for display speeds.
package units

import "fmt"

// Unit constants. Speeds inside the engine are always pixels per second;
// hosts may prefer pixels per frame at their render rate.
const (
	PPS = "pps" // pixels per second
	PPF = "ppf" // pixels per frame
)

// ValidUnits contains all valid unit values.
var ValidUnits = []string{PPS, PPF}

// IsValid checks if the given unit is in the list of valid units.
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// ConvertSpeed converts a speed from pixels per second to the target units.
// PPF conversion uses the supplied frame rate; a non-positive fps falls back
// to 60.
func ConvertSpeed(speedPps float64, targetUnits string, fps float64) float64 {
	switch targetUnits {
	case PPS:
		return speedPps
	case PPF:
		if fps <= 0 {
			fps = 60
		}
		return speedPps / fps
	default:
		return speedPps
	}
}

// FormatConfidence renders a [0,1] confidence as an integer percentage,
// e.g. 0.873 -> "87%". Values are clamped to [0,100].
func FormatConfidence(confidence float64) string {
	pct := int(confidence*100 + 0.5)
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return fmt.Sprintf("%d%%", pct)
}
