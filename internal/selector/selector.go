// Package selector picks the chunks a run visits.
package selector

import (
	"errors"
	"iter"
	"log/slog"

	"github.com/OCharnyshevich/oregen/internal/store"
	"github.com/OCharnyshevich/oregen/pkg/world/block"
	"github.com/OCharnyshevich/oregen/pkg/world/chunk"
)

// Source lists and loads stored chunks.
type Source interface {
	Chunks() iter.Seq2[chunk.Pos, error]
	LoadChunk(cx, cz int) (*chunk.Chunk, error)
}

// Rand supplies the per-chunk probability draw.
type Rand interface {
	Float64() float64
}

// Criteria are chunk-level filters. Coordinates are chunk coordinates and
// bounds are inclusive; nil means unbounded.
type Criteria struct {
	XMin, XMax *int
	ZMin, ZMax *int

	// Invert rejects the strict interior of the box instead of its outside,
	// and only once all four bounds are set.
	Invert bool

	// Include keeps chunks containing any listed block, or all of them when
	// IncludeAll is set.
	Include    block.Set
	IncludeAll bool

	// Exclude drops chunks containing any listed block, or all of them when
	// ExcludeAll is set.
	Exclude    block.Set
	ExcludeAll bool

	Probability *float64
}

// Allows reports whether chunk position p passes the coordinate filter.
func (c Criteria) Allows(p chunk.Pos) bool {
	if c.Invert {
		if c.XMin == nil || c.XMax == nil || c.ZMin == nil || c.ZMax == nil {
			return true
		}
		return !(p.X > *c.XMin && p.X < *c.XMax && p.Z > *c.ZMin && p.Z < *c.ZMax)
	}
	if c.XMin != nil && p.X < *c.XMin || c.XMax != nil && p.X > *c.XMax {
		return false
	}
	if c.ZMin != nil && p.Z < *c.ZMin || c.ZMax != nil && p.Z > *c.ZMax {
		return false
	}
	return true
}

// Matches reports whether a loaded chunk passes the block content filters.
func (c Criteria) Matches(ch *chunk.Chunk) bool {
	if len(c.Include) > 0 && !containsBlocks(ch, c.Include, c.IncludeAll) {
		return false
	}
	if len(c.Exclude) > 0 && containsBlocks(ch, c.Exclude, c.ExcludeAll) {
		return false
	}
	return true
}

func containsBlocks(ch *chunk.Chunk, set block.Set, all bool) bool {
	for id := range set {
		has := ch.Contains(id)
		if all && !has {
			return false
		}
		if !all && has {
			return true
		}
	}
	return all
}

// Select yields the chunks of src that pass c, in src's order. Chunks are
// loaded one at a time as the sequence is consumed. Listing errors are
// yielded; chunks that fail to load are logged and skipped.
func Select(src Source, c Criteria, rng Rand, log *slog.Logger) iter.Seq2[*chunk.Chunk, error] {
	return func(yield func(*chunk.Chunk, error) bool) {
		for pos, err := range src.Chunks() {
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if !c.Allows(pos) {
				continue
			}

			ch, err := src.LoadChunk(pos.X, pos.Z)
			if err != nil {
				if !errors.Is(err, store.ErrChunkNotFound) {
					log.Warn("failed to load chunk", "chunk", pos, "error", err)
				}
				continue
			}
			if !c.Matches(ch) {
				continue
			}
			if p := c.Probability; p != nil {
				if draw := rng.Float64(); *p == 0 || draw > *p {
					continue
				}
			}

			if !yield(ch, nil) {
				return
			}
		}
	}
}
