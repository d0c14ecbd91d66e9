// Package geo holds the small amount of pose math the mission core needs:
// planar distance between poses and the normalized navigation progress metric.
package geo

import "math"

// Point is a position in map coordinates.
type Point struct {
	X float64 `koanf:"x" yaml:"x"`
	Y float64 `koanf:"y" yaml:"y"`
	Z float64 `koanf:"z" yaml:"z"`
}

// Quaternion is a unit orientation quaternion.
type Quaternion struct {
	X float64 `koanf:"qx" yaml:"qx"`
	Y float64 `koanf:"qy" yaml:"qy"`
	Z float64 `koanf:"qz" yaml:"qz"`
	W float64 `koanf:"qw" yaml:"qw"`
}

// Identity returns the identity orientation.
func Identity() Quaternion {
	return Quaternion{W: 1}
}

// Pose is a position plus orientation. It serves both as a navigation target
// and as the continuously updated current position.
type Pose struct {
	Position    Point
	Orientation Quaternion
}

// Distance returns the planar Euclidean distance between two poses.
// Navigation targets live on the ground plane, so Z is ignored.
func Distance(a, b Pose) float64 {
	dx := a.Position.X - b.Position.X
	dy := a.Position.Y - b.Position.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Progress converts a remaining distance into a completion fraction against
// the initial distance captured at goal submission. The result is always in
// [0,1] regardless of the inputs. A non-positive initial distance means the
// goal was already at hand, which counts as complete.
func Progress(initial, remaining float64) float64 {
	if initial <= 0 {
		return 1
	}
	p := 1 - remaining/initial
	return math.Min(1, math.Max(0, p))
}
