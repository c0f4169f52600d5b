// Package gen grows ore veins.
package gen

import (
	"math"

	"github.com/OCharnyshevich/oregen/pkg/world/block"
)

// Rand is the randomness a vein consumes. *rand.Rand from math/rand/v2
// satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// Predicate decides whether a cell may be overwritten.
type Predicate interface {
	MayPlace(x, y, z int) bool
}

// Writer stores accepted cells. Both methods report whether the write landed.
type Writer interface {
	SetID(x, y, z int, id block.ID) bool
	SetBlock(x, y, z int, id block.ID, data int) bool
}

// Ore grows ore veins the way the vanilla generator does: a line segment of
// Size+1 spheres with sinusoidally varying radius.
type Ore struct {
	Block block.ID
	Data  *int // nil leaves the existing data value in place
	Size  int

	// Legacy truncates sphere bounds toward zero instead of flooring them,
	// which skews veins at negative coordinates exactly like the unpatched
	// vanilla generator.
	Legacy bool
}

// Generate grows one vein seeded at (x, y, z) and returns the number of cells
// written. Every candidate cell is offered to p before it is written.
func (o Ore) Generate(w Writer, p Predicate, rng Rand, x, y, z int) int {
	if o.Size <= 0 {
		return 0
	}
	size := float64(o.Size)

	angle := rng.Float64() * math.Pi
	x1 := float64(x+8) + math.Sin(angle)*size/8
	x2 := float64(x+8) - math.Sin(angle)*size/8
	z1 := float64(z+8) + math.Cos(angle)*size/8
	z2 := float64(z+8) - math.Cos(angle)*size/8
	y1 := float64(y + rng.IntN(3) + 2)
	y2 := float64(y + rng.IntN(3) + 2)

	written := 0
	for i := 0; i <= o.Size; i++ {
		step := float64(i)
		cx := x1 + (x2-x1)*step/size
		cy := y1 + (y2-y1)*step/size
		cz := z1 + (z2-z1)*step/size

		fuzz := rng.Float64() * size / 16
		radius := ((math.Sin(step*math.Pi/size)+1)*fuzz + 1) / 2

		xs, xe := o.bound(cx-radius), o.bound(cx+radius)
		ys, ye := o.bound(cy-radius), o.bound(cy+radius)
		zs, ze := o.bound(cz-radius), o.bound(cz+radius)

		for ix := xs; ix <= xe; ix++ {
			dx := (float64(ix) + 0.5 - cx) / radius
			dx *= dx
			if dx >= 1 {
				continue
			}
			for iy := ys; iy <= ye; iy++ {
				dy := (float64(iy) + 0.5 - cy) / radius
				dy *= dy
				if dx+dy >= 1 {
					continue
				}
				for iz := zs; iz <= ze; iz++ {
					dz := (float64(iz) + 0.5 - cz) / radius
					dz *= dz
					if dx+dy+dz >= 1 {
						continue
					}
					if !p.MayPlace(ix, iy, iz) {
						continue
					}
					if o.write(w, ix, iy, iz) {
						written++
					}
				}
			}
		}
	}

	return written
}

func (o Ore) bound(v float64) int {
	if o.Legacy {
		return int(v)
	}
	return int(math.Floor(v))
}

func (o Ore) write(w Writer, x, y, z int) bool {
	if o.Data == nil {
		return w.SetID(x, y, z, o.Block)
	}
	return w.SetBlock(x, y, z, o.Block, *o.Data)
}
