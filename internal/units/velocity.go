package units

// ConvertSpeed converts a speed from meters per second to the target units.
// Measurements store speeds in m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case KMPH, KPH:
		return MpsToKmh(speedMPS)
	default:
		return speedMPS
	}
}
