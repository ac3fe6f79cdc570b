package cache

// Pressure is the memory pressure tier derived from overall cache
// utilization. Each tier maps to a fixed response applied during the
// maintenance pass.
type Pressure uint8

const (
	PressureLow Pressure = iota
	PressureMedium
	PressureHigh
	PressureCritical
)

func (p Pressure) String() string {
	switch p {
	case PressureLow:
		return "low"
	case PressureMedium:
		return "medium"
	case PressureHigh:
		return "high"
	case PressureCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Utilization thresholds for the pressure tiers.
const (
	mediumPressureAt   = 0.50
	highPressureAt     = 0.75
	criticalPressureAt = 0.90
)

// pressureFor maps a utilization fraction to its tier.
func pressureFor(utilization float64) Pressure {
	switch {
	case utilization >= criticalPressureAt:
		return PressureCritical
	case utilization >= highPressureAt:
		return PressureHigh
	case utilization >= mediumPressureAt:
		return PressureMedium
	default:
		return PressureLow
	}
}
