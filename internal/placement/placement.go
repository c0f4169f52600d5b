// Package placement decides whether a deposit may overwrite a given cell.
package placement

import (
	"github.com/OCharnyshevich/oregen/pkg/world/block"
	"github.com/OCharnyshevich/oregen/pkg/world/chunk"
)

// Accessor is the block lookup the engine reads from. ID and Data may load
// chunks; PeekID must not.
type Accessor interface {
	Geometry() chunk.Geometry
	ID(x, y, z int) (block.ID, bool)
	Data(x, y, z int) (int, bool)
	PeekID(x, y, z int) (block.ID, bool)
}

// Rand supplies the probability draw.
type Rand interface {
	Float64() float64
}

// Ores are the blocks OverridePolicy.AllowOres lets a deposit replace.
var Ores = block.NewSet(
	block.CoalOre, block.IronOre, block.GoldOre, block.RedstoneOre,
	block.DiamondOre, block.LapisOre, block.Dirt, block.Gravel,
)

// OverridePolicy controls which existing blocks a deposit may replace.
// Stone is always replaceable.
type OverridePolicy struct {
	AllowAny  bool
	AllowOres bool

	// A non-empty Include is the complete list of replaceable blocks.
	Include block.Set
	// Exclude vetoes replacement regardless of the other fields.
	Exclude block.Set
}

// Bounds are inclusive world-coordinate limits. Nil means unbounded.
type Bounds struct {
	XMin, XMax *int
	YMin, YMax *int
	ZMin, ZMax *int

	// Invert rejects the strict interior of the box instead of its outside.
	// It only takes effect when all six limits are set.
	Invert bool
}

func (b Bounds) complete() bool {
	return b.XMin != nil && b.XMax != nil &&
		b.YMin != nil && b.YMax != nil &&
		b.ZMin != nil && b.ZMax != nil
}

// Allows reports whether (x, y, z) passes the bounds.
func (b Bounds) Allows(x, y, z int) bool {
	if b.Invert {
		if !b.complete() {
			return true
		}
		inside := x > *b.XMin && x < *b.XMax &&
			y > *b.YMin && y < *b.YMax &&
			z > *b.ZMin && z < *b.ZMax
		return !inside
	}
	return within(x, b.XMin, b.XMax) && within(y, b.YMin, b.YMax) && within(z, b.ZMin, b.ZMax)
}

func within(v int, lo, hi *int) bool {
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

// Criteria are the block-level filters. Empty sets are unconstrained.
type Criteria struct {
	Bounds Bounds

	Include block.Set
	Exclude block.Set

	DataInclude block.DataSet
	DataExclude block.DataSet

	Above block.Set
	Below block.Set
	Side  block.Set

	NotAbove block.Set
	NotBelow block.Set
	NotSide  block.Set

	// Probability, when set, is the chance in [0, 1] that a cell passing
	// every other id filter is accepted.
	Probability *float64
}

// Engine evaluates the placement rules for one deposit block.
type Engine struct {
	acc      Accessor
	rng      Rand
	target   block.ID
	policy   OverridePolicy
	criteria Criteria

	ySize    int
	minDepth int
	maxDepth int
}

// New creates an engine placing target within y in [minDepth, maxDepth).
func New(acc Accessor, target block.ID, policy OverridePolicy, criteria Criteria, rng Rand, minDepth, maxDepth int) *Engine {
	return &Engine{
		acc:      acc,
		rng:      rng,
		target:   target,
		policy:   policy,
		criteria: criteria,
		ySize:    acc.Geometry().YSize,
		minDepth: minDepth,
		maxDepth: maxDepth,
	}
}

// MayPlace reports whether the deposit may write its block at (x, y, z).
// Rules run cheapest first and stop at the first rejection. At most one
// random value is drawn per call.
func (e *Engine) MayPlace(x, y, z int) bool {
	if y < 0 || y >= e.ySize || y < e.minDepth || y >= e.maxDepth {
		return false
	}
	id, ok := e.acc.ID(x, y, z)
	if !ok {
		return false
	}

	if !e.replaceable(id) {
		return false
	}

	f := &e.criteria
	if !f.Bounds.Allows(x, y, z) {
		return false
	}
	if len(f.Include) > 0 && !f.Include.Contains(id) {
		return false
	}
	if f.Exclude.Contains(id) {
		return false
	}

	if !e.vertical(x, y, z) {
		return false
	}
	if len(f.Side) > 0 && !e.anySide(x, y, z, f.Side) {
		return false
	}
	if len(f.NotSide) > 0 && e.anySide(x, y, z, f.NotSide) {
		return false
	}

	if p := f.Probability; p != nil {
		// Float64 can return exactly 0, which must not pass p = 0.
		if draw := e.rng.Float64(); *p == 0 || draw > *p {
			return false
		}
	}

	if len(f.DataInclude) > 0 || len(f.DataExclude) > 0 {
		data, ok := e.acc.Data(x, y, z)
		if !ok {
			return false
		}
		if len(f.DataInclude) > 0 && !f.DataInclude.Contains(data) {
			return false
		}
		if f.DataExclude.Contains(data) {
			return false
		}
	}
	return true
}

// replaceable applies the override policy to the current block.
func (e *Engine) replaceable(id block.ID) bool {
	p := &e.policy
	candidate := (p.AllowAny && id != e.target) ||
		(p.AllowOres && Ores.Contains(id) && id != e.target) ||
		len(p.Include) > 0 ||
		id == block.Stone
	if !candidate {
		return false
	}
	if len(p.Include) > 0 && !p.Include.Contains(id) {
		return false
	}
	return !p.Exclude.Contains(id)
}

// vertical checks the neighbors directly above and below. Required sets are
// skipped at the top and bottom of the chunk.
func (e *Engine) vertical(x, y, z int) bool {
	f := &e.criteria
	top := y >= e.ySize-1
	bottom := y <= 0

	if len(f.Above) > 0 && !top {
		if id, ok := e.acc.ID(x, y+1, z); !ok || !f.Above.Contains(id) {
			return false
		}
	}
	if len(f.Below) > 0 && !bottom {
		if id, ok := e.acc.ID(x, y-1, z); !ok || !f.Below.Contains(id) {
			return false
		}
	}
	if len(f.NotAbove) > 0 && !top {
		if id, ok := e.acc.ID(x, y+1, z); ok && f.NotAbove.Contains(id) {
			return false
		}
	}
	if len(f.NotBelow) > 0 && !bottom {
		if id, ok := e.acc.ID(x, y-1, z); ok && f.NotBelow.Contains(id) {
			return false
		}
	}
	return true
}

// anySide reports whether a cached lateral neighbor is in set.
func (e *Engine) anySide(x, y, z int, set block.Set) bool {
	for _, n := range [4][2]int{{x - 1, z}, {x + 1, z}, {x, z - 1}, {x, z + 1}} {
		if id, ok := e.acc.PeekID(n[0], y, n[1]); ok && set.Contains(id) {
			return true
		}
	}
	return false
}
