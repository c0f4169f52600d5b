package anvil

import (
	"fmt"

	"github.com/OCharnyshevich/oregen/pkg/world/block"
	"github.com/OCharnyshevich/oregen/pkg/world/chunk"
	"github.com/OCharnyshevich/oregen/pkg/world/nbt"
)

const (
	sectionHeight = 16
	sectionBlocks = 16 * 16 * sectionHeight // 4096 blocks per section
	sectionNibble = sectionBlocks / 2       // 2048 bytes per nibble array
	sectionCount  = 16
)

// Geometry is the block extent of an Anvil chunk column.
var Geometry = chunk.MustGeometry(chunk.Dimensions{XSize: 16, YSize: sectionHeight * sectionCount, ZSize: 16})

// section mirrors one entry of Level.Sections.
type section struct {
	Y          int8   `nbt:"Y"`
	Blocks     []byte `nbt:"Blocks"`
	Add        []byte `nbt:"Add,omitempty"`
	Data       []byte `nbt:"Data"`
	BlockLight []byte `nbt:"BlockLight"`
	SkyLight   []byte `nbt:"SkyLight"`
}

// state is what Decode keeps on chunk.Raw so Encode can write back the tags
// it does not model.
type state struct {
	root  nbt.Compound
	level nbt.Compound
	light map[int8][2][]byte // block light, sky light
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

	c := chunk.New(chunk.Pos{X: int(cx), Z: int(cz)}, Geometry)

	if level.Has("TerrainPopulated") {
		var populated int8
		if err := level.Get("TerrainPopulated", &populated); err != nil {
			return nil, err
		}
		c.TerrainPopulated = populated != 0
	}

	st := &state{root: root, level: level, light: make(map[int8][2][]byte)}

	var sections []section
	if level.Has("Sections") {
		if err := level.Get("Sections", &sections); err != nil {
			return nil, err
		}
	}
	for _, sec := range sections {
		if sec.Y < 0 || int(sec.Y) >= sectionCount {
			continue
		}
		if len(sec.Blocks) != sectionBlocks {
			return nil, fmt.Errorf("chunk %v section %d: %d blocks, want %d", c.Pos, sec.Y, len(sec.Blocks), sectionBlocks)
		}
		base := int(sec.Y) * sectionBlocks
		for i := 0; i < sectionBlocks; i++ {
			id := block.ID(sec.Blocks[i]) | block.ID(nbt.Nibble(sec.Add, i))<<8
			c.Load(base+i, id, int(nbt.Nibble(sec.Data, i)))
		}
		st.light[sec.Y] = [2][]byte{sec.BlockLight, sec.SkyLight}
	}

	c.Raw = st
	return c, nil
}

// Encode serializes c back into an uncompressed chunk payload. Tags that were
// present when the chunk was decoded are preserved.
func Encode(c *chunk.Chunk) ([]byte, error) {
	if c.Geometry() != Geometry {
		return nil, fmt.Errorf("chunk %v: geometry %v is not anvil", c.Pos, c.Geometry().Dimensions)
	}

	st, ok := c.Raw.(*state)
	if !ok {
		st = &state{root: make(nbt.Compound), level: make(nbt.Compound), light: make(map[int8][2][]byte)}
		if err := st.level.Set("LastUpdate", int64(0)); err != nil {
			return nil, err
		}
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
		{"Sections", encodeSections(c, st.light)},
		{"HeightMap", computeHeightMap(c)},
	}
	for _, s := range sets {
		if err := st.level.Set(s.name, s.v); err != nil {
			return nil, fmt.Errorf("chunk %v: %w", c.Pos, err)
		}
	}
	if err := st.root.Set("Level", st.level); err != nil {
		return nil, fmt.Errorf("chunk %v: %w", c.Pos, err)
	}

	c.Raw = st
	return st.root.Marshal()
}

func encodeSections(c *chunk.Chunk, light map[int8][2][]byte) []section {
	sections := make([]section, 0, sectionCount)

	for secY := 0; secY < sectionCount; secY++ {
		base := secY * sectionBlocks
		prev, existed := light[int8(secY)]

		empty := true
		for i := 0; i < sectionBlocks; i++ {
			if c.IDAt(base+i) != block.Air {
				empty = false
				break
			}
		}
		if empty && !existed {
			continue
		}

		blocks := make([]byte, sectionBlocks)
		data := make([]byte, sectionNibble)
		var add []byte
		for i := 0; i < sectionBlocks; i++ {
			id := c.IDAt(base + i)
			blocks[i] = byte(id)
			if id > 255 {
				if add == nil {
					add = make([]byte, sectionNibble)
				}
				nbt.SetNibble(add, i, byte(id>>8))
			}
			nbt.SetNibble(data, i, byte(c.DataAt(base+i)))
		}

		// Full brightness for sections that did not exist before.
		blockLight, skyLight := prev[0], prev[1]
		if len(blockLight) != sectionNibble {
			blockLight = nbt.Filled(sectionNibble, 0xFF)
		}
		if len(skyLight) != sectionNibble {
			skyLight = nbt.Filled(sectionNibble, 0xFF)
		}

		sections = append(sections, section{
			Y:          int8(secY),
			Blocks:     blocks,
			Add:        add,
			Data:       data,
			BlockLight: blockLight,
			SkyLight:   skyLight,
		})
	}

	return sections
}

// computeHeightMap calculates the highest non-air block for each x,z column.
func computeHeightMap(c *chunk.Chunk) []int32 {
	hm := c.HeightMap()
	out := make([]int32, len(hm))
	for i, h := range hm {
		out[i] = int32(h)
	}
	return out
}
