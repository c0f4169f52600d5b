// Package window gives block-level access to a world through a cache of the
// chunks touched so far.
package window

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/OCharnyshevich/oregen/internal/store"
	"github.com/OCharnyshevich/oregen/pkg/world/block"
	"github.com/OCharnyshevich/oregen/pkg/world/chunk"
)

// Store loads and saves chunks of a single dimension.
type Store interface {
	Geometry() chunk.Geometry
	LoadChunk(cx, cz int) (*chunk.Chunk, error)
	SaveChunk(c *chunk.Chunk) error
}

// Accessor resolves world block coordinates to cached chunks, loading them
// from the store on a miss. It is not safe for concurrent use.
type Accessor struct {
	store  Store
	geom   chunk.Geometry
	log    *slog.Logger
	chunks map[chunk.Pos]*chunk.Chunk
	absent map[chunk.Pos]struct{}
}

// New creates an empty accessor over s.
func New(s Store, log *slog.Logger) *Accessor {
	return &Accessor{
		store:  s,
		geom:   s.Geometry(),
		log:    log,
		chunks: make(map[chunk.Pos]*chunk.Chunk),
		absent: make(map[chunk.Pos]struct{}),
	}
}

// Geometry returns the chunk geometry of the underlying store.
func (a *Accessor) Geometry() chunk.Geometry {
	return a.geom
}

// Len returns the number of cached chunks.
func (a *Accessor) Len() int {
	return len(a.chunks)
}

// Retain seeds the cache with a chunk the caller already holds. A cached
// chunk at the same position is replaced.
func (a *Accessor) Retain(c *chunk.Chunk) {
	a.chunks[c.Pos] = c
	delete(a.absent, c.Pos)
}

func (a *Accessor) load(pos chunk.Pos) *chunk.Chunk {
	if c, ok := a.chunks[pos]; ok {
		return c
	}
	if _, ok := a.absent[pos]; ok {
		return nil
	}
	c, err := a.store.LoadChunk(pos.X, pos.Z)
	if err != nil {
		if !errors.Is(err, store.ErrChunkNotFound) {
			a.log.Warn("failed to load chunk", "chunk", pos, "error", err)
		}
		a.absent[pos] = struct{}{}
		return nil
	}
	a.chunks[pos] = c
	return c
}

// locate returns the chunk holding (x, y, z), loading it if asked to.
func (a *Accessor) locate(x, y, z int, load bool) *chunk.Chunk {
	if y < 0 || y >= a.geom.YSize {
		return nil
	}
	pos := a.geom.PosOf(x, z)
	if load {
		return a.load(pos)
	}
	return a.chunks[pos]
}

// ID returns the block id at (x, y, z). ok is false when y is outside the
// chunk height or the chunk cannot be loaded.
func (a *Accessor) ID(x, y, z int) (block.ID, bool) {
	c := a.locate(x, y, z, true)
	if c == nil {
		return 0, false
	}
	return c.ID(x&a.geom.XMask, y, z&a.geom.ZMask), true
}

// Data returns the data value at (x, y, z) with the same rules as ID.
func (a *Accessor) Data(x, y, z int) (int, bool) {
	c := a.locate(x, y, z, true)
	if c == nil {
		return 0, false
	}
	return c.Data(x&a.geom.XMask, y, z&a.geom.ZMask), true
}

// PeekID is ID restricted to chunks already in the cache. It never loads.
func (a *Accessor) PeekID(x, y, z int) (block.ID, bool) {
	c := a.locate(x, y, z, false)
	if c == nil {
		return 0, false
	}
	return c.ID(x&a.geom.XMask, y, z&a.geom.ZMask), true
}

// SetID replaces the block id at (x, y, z), keeping its data value. It
// reports false when the cell cannot be written.
func (a *Accessor) SetID(x, y, z int, id block.ID) bool {
	c := a.locate(x, y, z, true)
	if c == nil {
		return false
	}
	c.SetID(x&a.geom.XMask, y, z&a.geom.ZMask, id)
	return true
}

// SetBlock replaces both id and data value at (x, y, z).
func (a *Accessor) SetBlock(x, y, z int, id block.ID, data int) bool {
	c := a.locate(x, y, z, true)
	if c == nil {
		return false
	}
	c.SetBlock(x&a.geom.XMask, y, z&a.geom.ZMask, id, data)
	return true
}

// Flush saves every dirty cached chunk and empties the cache. Chunks are
// saved in (x, z) order; a failed save does not stop the others.
func (a *Accessor) Flush() (int, error) {
	dirty := make([]*chunk.Chunk, 0, len(a.chunks))
	for _, c := range a.chunks {
		if c.Dirty() {
			dirty = append(dirty, c)
		}
	}
	slices.SortFunc(dirty, func(p, q *chunk.Chunk) int {
		return cmp.Or(cmp.Compare(p.Pos.X, q.Pos.X), cmp.Compare(p.Pos.Z, q.Pos.Z))
	})

	var (
		saved int
		errs  []error
	)
	for _, c := range dirty {
		if err := a.store.SaveChunk(c); err != nil {
			errs = append(errs, fmt.Errorf("save chunk %v: %w", c.Pos, err))
			continue
		}
		saved++
	}

	clear(a.chunks)
	clear(a.absent)
	return saved, errors.Join(errs...)
}
