package core

import "math"

// Vec2 is a position in tile coordinates. Structures are placed at
// arbitrary fractional tile positions; all distance checks in the
// connectivity layer work on straight-line tile distance.
type Vec2 struct {
	X, Y float64
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Footprint is the rectangular tile area occupied by a structure,
// centred on its placement position.
type Footprint struct {
	Width  float64
	Height float64
}

// Corners returns the four corners of the footprint centred at pos.
func (f Footprint) Corners(pos Vec2) [4]Vec2 {
	hw := f.Width / 2
	hh := f.Height / 2
	return [4]Vec2{
		{X: pos.X - hw, Y: pos.Y - hh},
		{X: pos.X + hw, Y: pos.Y - hh},
		{X: pos.X - hw, Y: pos.Y + hh},
		{X: pos.X + hw, Y: pos.Y + hh},
	}
}

// withinSupplyRange reports whether a structure centred at pos with the
// given footprint is energised by a pole at polePos with the given
// supply radius.
//
// The test checks the pole-to-centre distance and the distance to each
// of the four footprint corners, accepting membership when the nearest
// of those five points is within the radius. This is a conservative
// approximation of rectangle-circle intersection: large multi-tile
// structures at the edge of a supply area can be both over- and
// under-included. Kept deliberately; downstream behaviour depends on
// the approximation, not on exact intersection.
func withinSupplyRange(polePos Vec2, radius float64, pos Vec2, fp Footprint) bool {
	nearest := polePos.DistanceTo(pos)
	for _, c := range fp.Corners(pos) {
		if d := polePos.DistanceTo(c); d < nearest {
			nearest = d
		}
	}
	return nearest <= radius
}
