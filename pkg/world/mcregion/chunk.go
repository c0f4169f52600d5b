package mcregion

import (
	"errors"
	"fmt"

	"github.com/OCharnyshevich/oregen/pkg/world/block"
	"github.com/OCharnyshevich/oregen/pkg/world/chunk"
	"github.com/OCharnyshevich/oregen/pkg/world/nbt"
)

const (
	height = 128
	volume = 16 * 16 * height
)

// Geometry is the block extent of an MCRegion chunk column. Block ids are a
// single byte.
var Geometry = chunk.MustGeometry(chunk.Dimensions{XSize: 16, YSize: height, ZSize: 16}).WithMaxID(255)

// ErrIDOutOfRange is returned when a chunk holds an id that needs more than
// the single byte per block the format provides.
var ErrIDOutOfRange = errors.New("block id does not fit in mcregion chunk")

// index converts YZX chunk order to the format's XZY order.
func index(x, y, z int) int {
	return y + z*height + x*height*16
}

// Decode parses an uncompressed chunk payload.
func Decode(payload []byte) (*chunk.Chunk, error) {
	root, err := nbt.Unmarshal(payload)
	if err != nil {
		return nil, err
	}
	level, err := root.Compound("Level")
	if err != nil {
		return nil, err
	}

	var cx, cz int32
	if err := level.Get("xPos", &cx); err != nil {
		return nil, err
	}
	if err := level.Get("zPos", &cz); err != nil {
		return nil, err
	}

	var blocks, data []byte
	if err := level.Get("Blocks", &blocks); err != nil {
		return nil, err
	}
	if len(blocks) != volume {
		return nil, fmt.Errorf("chunk (%d,%d): %d blocks, want %d", cx, cz, len(blocks), volume)
	}
	if level.Has("Data") {
		if err := level.Get("Data", &data); err != nil {
			return nil, err
		}
	}

	c := chunk.New(chunk.Pos{X: int(cx), Z: int(cz)}, Geometry)
	if level.Has("TerrainPopulated") {
		var populated int8
		if err := level.Get("TerrainPopulated", &populated); err != nil {
			return nil, err
		}
		c.TerrainPopulated = populated != 0
	}

	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			for y := 0; y < height; y++ {
				src := index(x, y, z)
				c.Load(c.Index(x, y, z), block.ID(blocks[src]), int(nbt.Nibble(data, src)))
			}
		}
	}

	c.Raw = root
	return c, nil
}

// Encode serializes c back into an uncompressed chunk payload, preserving
// entities, light arrays and other tags from the decoded original.
func Encode(c *chunk.Chunk) ([]byte, error) {
	if c.Geometry() != Geometry {
		return nil, fmt.Errorf("chunk %v: geometry %v is not mcregion", c.Pos, c.Geometry().Dimensions)
	}

	root, ok := c.Raw.(nbt.Compound)
	level := make(nbt.Compound)
	if ok {
		var err error
		if level, err = root.Compound("Level"); err != nil {
			return nil, err
		}
	} else {
		root = make(nbt.Compound)
	}

	blocks := make([]byte, volume)
	data := make([]byte, volume/2)
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			for y := 0; y < height; y++ {
				i := c.Index(x, y, z)
				id := c.IDAt(i)
				if id > Geometry.MaxID {
					return nil, fmt.Errorf("%w: %d at (%d,%d,%d) in chunk %v", ErrIDOutOfRange, id, x, y, z, c.Pos)
				}
				dst := index(x, y, z)
				blocks[dst] = byte(id)
				nbt.SetNibble(data, dst, byte(c.DataAt(i)))
			}
		}
	}

	hm := c.HeightMap()
	heightMap := make([]byte, len(hm))
	for i, h := range hm {
		heightMap[i] = byte(h)
	}

	var populated int8
	if c.TerrainPopulated {
		populated = 1
	}
	sets := []struct {
		name string
		v    any
	}{
		{"xPos", int32(c.Pos.X)},
		{"zPos", int32(c.Pos.Z)},
		{"TerrainPopulated", populated},
		{"Blocks", blocks},
		{"Data", data},
		{"HeightMap", heightMap},
	}
	for _, s := range sets {
		if err := level.Set(s.name, s.v); err != nil {
			return nil, fmt.Errorf("chunk %v: %w", c.Pos, err)
		}
	}
	for _, light := range []string{"SkyLight", "BlockLight"} {
		if !level.Has(light) {
			if err := level.Set(light, nbt.Filled(volume/2, 0xFF)); err != nil {
				return nil, err
			}
		}
	}
	if err := root.Set("Level", level); err != nil {
		return nil, fmt.Errorf("chunk %v: %w", c.Pos, err)
	}

	c.Raw = root
	return root.Marshal()
}
