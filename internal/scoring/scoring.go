// internal/scoring/scoring.go

// Package scoring rates a player's run against a tile layout. Everything in
// here is pure and deterministic: the same start position, elapsed time and
// layout always produce the same result.
package scoring

import "github.com/mkarman/tilerush/internal/engine"

// Grid geometry of a match layout.
const (
	GridSize = 5

	// PointsPerTile is the base credit for each tile on the matched path.
	PointsPerTile = 100

	// BonusScale sizes the winner's time bonus.
	BonusScale = 100
)

// Sides a player can enter the grid from.
const (
	SideTop = iota
	SideRight
	SideBottom
	SideLeft
)

// Score walks the layout from the entry cell in a straight line and counts
// the run of tiles matching the entry tile's colour. The layout is 25 symbols
// from {R, Y, G}, row-major. Out-of-range positions or malformed layouts
// score zero.
func Score(start engine.StartPosition, elapsedMs int, layout string) (points, pathLength int) {
	if len(layout) != GridSize*GridSize {
		return 0, 0
	}
	if start.Distance < 0 || start.Distance >= GridSize {
		return 0, 0
	}

	row, col, dr, dc := entry(start)
	if row < 0 {
		return 0, 0
	}

	colour := layout[row*GridSize+col]
	for row >= 0 && row < GridSize && col >= 0 && col < GridSize {
		if layout[row*GridSize+col] != colour {
			break
		}
		pathLength++
		row += dr
		col += dc
	}
	return pathLength * PointsPerTile, pathLength
}

// entry resolves the entry cell and walk direction for a side/distance pair.
// Returns row -1 for an unknown side.
func entry(start engine.StartPosition) (row, col, dr, dc int) {
	switch start.Side {
	case SideTop:
		return 0, start.Distance, 1, 0
	case SideRight:
		return start.Distance, GridSize - 1, 0, -1
	case SideBottom:
		return GridSize - 1, start.Distance, -1, 0
	case SideLeft:
		return start.Distance, 0, 0, 1
	default:
		return -1, -1, 0, 0
	}
}

// TimeBonus is the winner's extra credit: a share of BonusScale proportional
// to the time left against the match budget. Zero once the budget is spent or
// when the budget is unset.
func TimeBonus(elapsedMs, budgetMs int) int {
	if budgetMs <= 0 || elapsedMs < 0 || elapsedMs >= budgetMs {
		return 0
	}
	return (budgetMs - elapsedMs) * BonusScale / budgetMs
}
