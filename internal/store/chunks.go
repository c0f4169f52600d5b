package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/OCharnyshevich/oregen/pkg/world/anvil"
	"github.com/OCharnyshevich/oregen/pkg/world/chunk"
	"github.com/OCharnyshevich/oregen/pkg/world/mcregion"
	"github.com/OCharnyshevich/oregen/pkg/world/region"
)

type codec struct {
	ext    string
	geom   chunk.Geometry
	decode func([]byte) (*chunk.Chunk, error)
	encode func(*chunk.Chunk) ([]byte, error)
}

func codecFor(f Format) (codec, error) {
	switch f {
	case FormatAnvil:
		return codec{ext: region.ExtAnvil, geom: anvil.Geometry, decode: anvil.Decode, encode: anvil.Encode}, nil
	case FormatMCRegion:
		return codec{ext: region.ExtMCRegion, geom: mcregion.Geometry, decode: mcregion.Decode, encode: mcregion.Encode}, nil
	default:
		return codec{}, fmt.Errorf("%w: %v", ErrUnknownFormat, f)
	}
}

// ChunkManager loads and saves the chunks of one dimension.
type ChunkManager struct {
	dir     string
	codec   codec
	geom    chunk.Geometry
	log     *slog.Logger
	regions map[region.Pos]*region.File
}

func newChunkManager(dir string, format Format, log *slog.Logger) (*ChunkManager, error) {
	c, err := codecFor(format)
	if err != nil {
		return nil, err
	}
	return &ChunkManager{
		dir:     dir,
		codec:   c,
		geom:    c.geom,
		log:     log,
		regions: make(map[region.Pos]*region.File),
	}, nil
}

// Geometry returns the block extent of every chunk in the dimension.
func (m *ChunkManager) Geometry() chunk.Geometry {
	return m.geom
}

// Dir returns the dimension's region directory.
func (m *ChunkManager) Dir() string {
	return m.dir
}

func (m *ChunkManager) region(p region.Pos, create bool) (*region.File, error) {
	if f, ok := m.regions[p]; ok {
		return f, nil
	}
	path := filepath.Join(m.dir, region.FileName(p, m.codec.ext))
	if !create {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, ErrChunkNotFound
		}
	} else if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create region directory: %w", err)
	}
	f, err := region.Open(path, create)
	if err != nil {
		return nil, err
	}
	m.regions[p] = f
	return f, nil
}

// LoadChunk reads and decodes chunk (cx, cz). It returns ErrChunkNotFound when
// the chunk was never generated.
func (m *ChunkManager) LoadChunk(cx, cz int) (*chunk.Chunk, error) {
	rp, lx, lz := region.Locate(cx, cz)
	f, err := m.region(rp, false)
	if err != nil {
		return nil, err
	}
	payload, err := f.Read(lx, lz)
	if errors.Is(err, region.ErrNotFound) {
		return nil, ErrChunkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chunk (%d,%d): %w", cx, cz, err)
	}
	c, err := m.codec.decode(payload)
	if err != nil {
		return nil, fmt.Errorf("chunk (%d,%d): %w", cx, cz, err)
	}
	want := chunk.Pos{X: cx, Z: cz}
	if c.Pos != want {
		m.log.Debug("chunk position differs from its slot", "slot", want, "stored", c.Pos)
		c.Pos = want
	}
	return c, nil
}

// SaveChunk encodes c and writes it to its region, creating the region file
// when needed. The chunk is clean afterwards.
func (m *ChunkManager) SaveChunk(c *chunk.Chunk) error {
	payload, err := m.codec.encode(c)
	if err != nil {
		return err
	}
	rp, lx, lz := region.Locate(c.Pos.X, c.Pos.Z)
	f, err := m.region(rp, true)
	if err != nil {
		return err
	}
	if err := f.Write(lx, lz, payload); err != nil {
		return fmt.Errorf("chunk %v: %w", c.Pos, err)
	}
	c.MarkClean()
	m.log.Log(context.Background(), slog.LevelDebug-4, "saved chunk", "pos", c.Pos)
	return nil
}

// Chunks yields the position of every stored chunk, region by region in
// (x, z) order and row-major inside each region.
func (m *ChunkManager) Chunks() iter.Seq2[chunk.Pos, error] {
	return func(yield func(chunk.Pos, error) bool) {
		entries, err := os.ReadDir(m.dir)
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		if err != nil {
			yield(chunk.Pos{}, fmt.Errorf("list regions: %w", err))
			return
		}

		var regions []region.Pos
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if p, ok := region.ParseFileName(e.Name(), m.codec.ext); ok {
				regions = append(regions, p)
			}
		}
		slices.SortFunc(regions, func(a, b region.Pos) int {
			return cmp.Or(cmp.Compare(a.X, b.X), cmp.Compare(a.Z, b.Z))
		})

		for _, rp := range regions {
			f, err := m.region(rp, false)
			if err != nil {
				if !yield(chunk.Pos{}, err) {
					return
				}
				continue
			}
			for lz := range region.Size {
				for lx := range region.Size {
					if !f.Exists(lx, lz) {
						continue
					}
					p := chunk.Pos{X: rp.X*region.Size + lx, Z: rp.Z*region.Size + lz}
					if !yield(p, nil) {
						return
					}
				}
			}
		}
	}
}

// Close closes the open region files.
func (m *ChunkManager) Close() error {
	var errs []error
	for p, f := range m.regions {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(m.regions, p)
	}
	return errors.Join(errs...)
}
