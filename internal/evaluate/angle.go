// Package evaluate turns landmark frames into joint angles and counts
// exercise repetitions from them.
package evaluate

import (
	"math"

	"github.com/korefront/repcoach/internal/pose"
)

// Angle returns the planar angle in degrees at vertex b formed by the rays
// b→a and b→c. Only X and Y are used. The result is in [0,180]; coincident
// points yield 0.
func Angle(a, b, c pose.Landmark) float64 {
	radians := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	deg := math.Abs(radians * 180 / math.Pi)
	if deg > 180 {
		deg = 360 - deg
	}
	return deg
}
