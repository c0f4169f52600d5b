// Package oregen drives deposit generation over a sequence of chunks.
package oregen

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/OCharnyshevich/oregen/internal/placement"
	"github.com/OCharnyshevich/oregen/internal/window"
	"github.com/OCharnyshevich/oregen/pkg/world/block"
	"github.com/OCharnyshevich/oregen/pkg/world/chunk"
	"github.com/OCharnyshevich/oregen/pkg/world/gen"
)

// ErrInvalidRequest is returned by New for requests that cannot run.
var ErrInvalidRequest = errors.New("invalid deposit request")

// Request describes the deposits to place in every selected chunk.
type Request struct {
	Block    block.ID
	Data     *int // nil keeps existing data values
	Rounds   int
	Size     int
	MinDepth int
	MaxDepth int // exclusive
	Legacy   bool
}

// Rand is the random source shared by the driver, the engine and the vein
// generator.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// Journal remembers which chunks a run already finished.
type Journal interface {
	Processed(pos chunk.Pos) (bool, error)
	RecordChunk(pos chunk.Pos, placed int) error
}

// Stats summarizes a run.
type Stats struct {
	Visited  int // chunks yielded by the selector
	Skipped  int // unpopulated or already journaled
	Affected int // chunks deposits were attempted in
	Placed   int // cells written
	Saved    int // chunk saves, neighbors included
}

// Driver places deposits chunk by chunk.
type Driver struct {
	req     Request
	acc     *window.Accessor
	engine  *placement.Engine
	ore     gen.Ore
	rng     Rand
	log     *slog.Logger
	journal Journal
	resume  bool
}

// Option configures a Driver.
type Option func(*Driver)

// WithJournal records finished chunks in j. With resume set, chunks already
// in j are skipped.
func WithJournal(j Journal, resume bool) Option {
	return func(d *Driver) {
		d.journal = j
		d.resume = resume
	}
}

// New validates req against the store's geometry and builds a driver.
func New(s window.Store, req Request, policy placement.OverridePolicy, criteria placement.Criteria, rng Rand, log *slog.Logger, opts ...Option) (*Driver, error) {
	geom := s.Geometry()
	switch {
	case req.Rounds < 0:
		return nil, fmt.Errorf("%w: rounds %d is negative", ErrInvalidRequest, req.Rounds)
	case req.Size < 0:
		return nil, fmt.Errorf("%w: size %d is negative", ErrInvalidRequest, req.Size)
	case req.MinDepth < 0:
		return nil, fmt.Errorf("%w: min depth %d is negative", ErrInvalidRequest, req.MinDepth)
	case req.MaxDepth <= req.MinDepth:
		return nil, fmt.Errorf("%w: max depth %d must be above min depth %d", ErrInvalidRequest, req.MaxDepth, req.MinDepth)
	case req.MaxDepth > geom.YSize:
		return nil, fmt.Errorf("%w: max depth %d exceeds world height %d", ErrInvalidRequest, req.MaxDepth, geom.YSize)
	case req.Block < 0 || req.Block > geom.MaxID:
		return nil, fmt.Errorf("%w: block %d cannot be stored, world ids stop at %d", ErrInvalidRequest, req.Block, geom.MaxID)
	}

	acc := window.New(s, log)
	d := &Driver{
		req:    req,
		acc:    acc,
		engine: placement.New(acc, req.Block, policy, criteria, rng, req.MinDepth, req.MaxDepth),
		ore:    gen.Ore{Block: req.Block, Data: req.Data, Size: req.Size, Legacy: req.Legacy},
		rng:    rng,
		log:    log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run processes chunks until the sequence ends, ctx is canceled or a save
// fails. Cancellation is checked between chunks, so the chunk in progress is
// always saved.
func (d *Driver) Run(ctx context.Context, chunks iter.Seq2[*chunk.Chunk, error]) (Stats, error) {
	var st Stats
	d.log.Debug("generating deposits",
		"rounds", d.req.Rounds, "size", d.req.Size, "block", d.req.Block,
		"min", d.req.MinDepth, "max", d.req.MaxDepth)

	for c, err := range chunks {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if err != nil {
			d.log.Warn("skipping unreadable chunks", "error", err)
			continue
		}
		if c == nil {
			continue
		}
		st.Visited++

		if !c.TerrainPopulated {
			st.Skipped++
			continue
		}
		if d.journal != nil && d.resume {
			done, err := d.journal.Processed(c.Pos)
			if err != nil {
				return st, fmt.Errorf("journal lookup %v: %w", c.Pos, err)
			}
			if done {
				d.log.Debug("chunk already processed", "chunk", c.Pos)
				st.Skipped++
				continue
			}
		}

		d.log.Debug("processing chunk", "chunk", c.Pos)
		st.Affected++
		placed := d.ApplyChunk(c)
		st.Placed += placed

		d.log.Debug("saving chunks", "chunk", c.Pos, "placed", placed, "cached", d.acc.Len())
		saved, err := d.acc.Flush()
		st.Saved += saved
		if err != nil {
			return st, err
		}
		if d.journal != nil {
			if err := d.journal.RecordChunk(c.Pos, placed); err != nil {
				return st, fmt.Errorf("journal record %v: %w", c.Pos, err)
			}
		}
	}

	d.log.Info("run finished", "affected_chunks", st.Affected, "placed", st.Placed, "skipped", st.Skipped)
	return st, nil
}

// ApplyChunk runs every deposit round seeded in c and returns the number of
// cells written. Modified chunks stay cached until Run flushes them.
func (d *Driver) ApplyChunk(c *chunk.Chunk) int {
	d.acc.Retain(c)
	geom := c.Geometry()

	placed := 0
	for round := range d.req.Rounds {
		x := c.Pos.X*geom.XSize + d.rng.IntN(geom.XSize)
		y := d.req.MinDepth + d.rng.IntN(d.req.MaxDepth-d.req.MinDepth)
		z := c.Pos.Z*geom.ZSize + d.rng.IntN(geom.ZSize)

		n := d.ore.Generate(d.acc, d.engine, d.rng, x, y, z)
		placed += n
		d.log.Log(context.Background(), slog.LevelDebug-4, "generated round",
			"chunk", c.Pos, "round", round, "x", x, "y", y, "z", z, "placed", n)
	}
	return placed
}
