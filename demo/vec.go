package demo

import "math"

// Vec3 is a point or direction in world space. Y is up.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{v.X * f, v.Y * f, v.Z * f}
}

// Len is the Euclidean length.
func (v Vec3) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Distance is the length of o-v.
func (v Vec3) Distance(o Vec3) float64 {
	return o.Sub(v).Len()
}

// Flat drops the vertical component.
func (v Vec3) Flat() Vec3 {
	return Vec3{v.X, 0, v.Z}
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
