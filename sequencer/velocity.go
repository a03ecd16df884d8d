package sequencer

import "math"

// VelocityCurve shapes a note velocity before it is scaled by track
// volume. Curves are pure transforms over 1-127; 0 in, 0 out.
type VelocityCurve func(uint8) uint8

// Curves contains the available velocity shaping curves
var Curves = map[string]VelocityCurve{
	"linear": CurveLinear,
	"soft":   CurveSoft,
	"hard":   CurveHard,
}

// CurveLinear passes velocities through unchanged.
func CurveLinear(v uint8) uint8 { return v }

// CurveSoft lifts low velocities (square root response). Good for
// instruments that choke quiet hits.
func CurveSoft(v uint8) uint8 {
	return curve(v, func(x float64) float64 { return math.Sqrt(x) })
}

// CurveHard suppresses low velocities (squared response) for a wider
// dynamic spread.
func CurveHard(v uint8) uint8 {
	return curve(v, func(x float64) float64 { return x * x })
}

func curve(v uint8, f func(float64) float64) uint8 {
	if v == 0 {
		return 0
	}
	out := math.Round(127 * f(float64(v)/127))
	if out < 1 {
		out = 1
	}
	if out > 127 {
		out = 127
	}
	return uint8(out)
}
