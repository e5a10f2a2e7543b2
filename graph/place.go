package graph

import "math"

// Placement distances in renderer units.
const (
	SpawnDistance = 200
	VerticalSpawn = 100
)

// Centroid returns the mean of positions, or the origin when empty.
func Centroid(positions map[string]Point) Point {
	if len(positions) == 0 {
		return Point{}
	}
	var sum Point
	for _, p := range positions {
		sum.X += p.X
		sum.Y += p.Y
	}
	n := float64(len(positions))
	return Point{X: sum.X / n, Y: sum.Y / n}
}

// SpawnPoint returns where children of a node at parent are placed: a
// fixed distance further out along the line from center through parent.
// When both share an x coordinate the offset is vertical, away from
// center; a parent sitting on the center spawns straight up.
func SpawnPoint(parent, center Point) Point {
	dx := parent.X - center.X
	dy := parent.Y - center.Y
	if dx == 0 {
		dir := sign(dy)
		if dir == 0 {
			dir = -1
		}
		return Point{X: math.Round(parent.X), Y: math.Round(parent.Y + dir*VerticalSpawn)}
	}
	dist := math.Hypot(dx, dy)
	return Point{
		X: math.Round(parent.X + SpawnDistance*dx/dist),
		Y: math.Round(parent.Y + SpawnDistance*dy/dist),
	}
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
