// internal/scoring/scoring_test.go
package scoring

import (
	"testing"

	"github.com/mkarman/tilerush/internal/engine"
	"github.com/stretchr/testify/assert"
)

// Rows of the layout used below (5x5, row-major):
//
//	R R R R R
//	R Y G Y G
//	R G Y G Y
//	R Y G Y G
//	R G Y G Y
const testLayout = "RRRRR" + "RYGYG" + "RGYGY" + "RYGYG" + "RGYGY"

func TestScoreWalksMatchingRun(t *testing.T) {
	// Entering from the left on row 0 crosses the full red row.
	points, path := Score(engine.StartPosition{Side: SideLeft, Distance: 0}, 1000, testLayout)
	assert.Equal(t, 5, path)
	assert.Equal(t, 5*PointsPerTile, points)

	// The red column from the top.
	points, path = Score(engine.StartPosition{Side: SideTop, Distance: 0}, 1000, testLayout)
	assert.Equal(t, 5, path)
	assert.Equal(t, 5*PointsPerTile, points)

	// Column 1 turns yellow on row 1, so the run stops after the entry tile.
	_, path = Score(engine.StartPosition{Side: SideTop, Distance: 1}, 1000, testLayout)
	assert.Equal(t, 1, path)
}

func TestScoreIsDeterministic(t *testing.T) {
	start := engine.StartPosition{Side: SideRight, Distance: 3}
	p1, l1 := Score(start, 5000, testLayout)
	p2, l2 := Score(start, 5000, testLayout)
	assert.Equal(t, p1, p2)
	assert.Equal(t, l1, l2)
}

func TestScoreRejectsMalformedInput(t *testing.T) {
	points, path := Score(engine.StartPosition{Side: SideTop, Distance: 0}, 0, "RYG")
	assert.Zero(t, points)
	assert.Zero(t, path)

	points, path = Score(engine.StartPosition{Side: 9, Distance: 0}, 0, testLayout)
	assert.Zero(t, points)
	assert.Zero(t, path)

	points, path = Score(engine.StartPosition{Side: SideTop, Distance: 7}, 0, testLayout)
	assert.Zero(t, points)
	assert.Zero(t, path)
}

func TestTimeBonus(t *testing.T) {
	assert.Equal(t, BonusScale/2, TimeBonus(15000, 30000))
	assert.Zero(t, TimeBonus(30000, 30000), "no bonus once the budget is spent")
	assert.Zero(t, TimeBonus(40000, 30000))
	assert.Zero(t, TimeBonus(1000, 0), "unset budget yields no bonus")
	assert.Greater(t, TimeBonus(1000, 30000), TimeBonus(20000, 30000))
}
