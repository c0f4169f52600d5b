package anvil

import (
	"bytes"
	"testing"

	"github.com/OCharnyshevich/oregen/pkg/world/block"
	"github.com/OCharnyshevich/oregen/pkg/world/chunk"
	"github.com/OCharnyshevich/oregen/pkg/world/nbt"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := chunk.New(chunk.Pos{X: -3, Z: 7}, Geometry)
	c.TerrainPopulated = true
	c.SetBlock(0, 0, 0, block.Bedrock, 0)
	c.SetBlock(5, 12, 9, block.Stone, 3)
	c.SetBlock(15, 200, 15, block.Glowstone, 0)

	data, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if data[0] != nbt.TagCompound {
		t.Fatalf("expected root compound tag (10), got %d", data[0])
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Pos != c.Pos {
		t.Fatalf("Pos = %v, want %v", got.Pos, c.Pos)
	}
	if !got.TerrainPopulated {
		t.Fatal("TerrainPopulated lost")
	}
	if got.Dirty() {
		t.Fatal("decoded chunk should be clean")
	}

	tests := []struct {
		x, y, z int
		id      block.ID
		data    int
	}{
		{0, 0, 0, block.Bedrock, 0},
		{5, 12, 9, block.Stone, 3},
		{15, 200, 15, block.Glowstone, 0},
		{1, 1, 1, block.Air, 0},
	}
	for _, tt := range tests {
		if id := got.ID(tt.x, tt.y, tt.z); id != tt.id {
			t.Errorf("ID(%d,%d,%d) = %d, want %d", tt.x, tt.y, tt.z, id, tt.id)
		}
		if d := got.Data(tt.x, tt.y, tt.z); d != tt.data {
			t.Errorf("Data(%d,%d,%d) = %d, want %d", tt.x, tt.y, tt.z, d, tt.data)
		}
	}
}

func TestEncodeOnlyNonEmptySections(t *testing.T) {
	c := chunk.New(chunk.Pos{}, Geometry)
	c.SetID(0, 0, 0, block.Stone)
	c.SetID(0, 64, 0, block.Stone)

	data, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	root, err := nbt.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	level, err := root.Compound("Level")
	if err != nil {
		t.Fatalf("Level: %v", err)
	}
	var sections []section
	if err := level.Get("Sections", &sections); err != nil {
		t.Fatalf("Sections: %v", err)
	}
	if len(sections) != 2 || sections[0].Y != 0 || sections[1].Y != 4 {
		t.Fatalf("expected sections [0 4], got %d sections", len(sections))
	}
	if !bytes.Equal(sections[0].SkyLight, nbt.Filled(sectionNibble, 0xFF)) {
		t.Fatal("new section should be fully lit")
	}
}

func TestEncodeWithHighBlockID(t *testing.T) {
	c := chunk.New(chunk.Pos{}, Geometry)
	// Block ID 300 (0x12C), meta 5.
	c.SetBlock(0, 0, 0, 300, 5)

	data, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Contains(data, []byte("Add")) {
		t.Fatal("expected Add array for block ID > 255")
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if id := got.ID(0, 0, 0); id != 300 {
		t.Fatalf("ID = %d, want 300", id)
	}
	if d := got.Data(0, 0, 0); d != 5 {
		t.Fatalf("Data = %d, want 5", d)
	}
}

func TestEncodePreservesUnknownTagsAndLight(t *testing.T) {
	c := chunk.New(chunk.Pos{X: 1, Z: 2}, Geometry)
	c.SetID(3, 3, 3, block.Stone)
	data, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Inject tags a real world carries but the codec does not model.
	root, _ := nbt.Unmarshal(data)
	level, _ := root.Compound("Level")
	biomes := bytes.Repeat([]byte{7}, 256)
	if err := level.Set("Biomes", biomes); err != nil {
		t.Fatalf("Set Biomes: %v", err)
	}
	var sections []section
	if err := level.Get("Sections", &sections); err != nil {
		t.Fatalf("Sections: %v", err)
	}
	sections[0].SkyLight = nbt.Filled(sectionNibble, 0x33)
	if err := level.Set("Sections", sections); err != nil {
		t.Fatalf("Set Sections: %v", err)
	}
	if err := root.Set("Level", level); err != nil {
		t.Fatalf("Set Level: %v", err)
	}
	if err := root.Set("DataVersion", int32(1343)); err != nil {
		t.Fatalf("Set DataVersion: %v", err)
	}
	data, err = root.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	got.SetID(4, 4, 4, block.DiamondOre)
	out, err := Encode(got)
	if err != nil {
		t.Fatalf("re-Encode failed: %v", err)
	}

	root, _ = nbt.Unmarshal(out)
	var version int32
	if err := root.Get("DataVersion", &version); err != nil || version != 1343 {
		t.Fatalf("DataVersion = %d (%v), want 1343", version, err)
	}
	level, _ = root.Compound("Level")
	var gotBiomes []byte
	if err := level.Get("Biomes", &gotBiomes); err != nil || !bytes.Equal(gotBiomes, biomes) {
		t.Fatalf("Biomes not preserved (%v)", err)
	}
	sections = nil
	if err := level.Get("Sections", &sections); err != nil {
		t.Fatalf("Sections: %v", err)
	}
	if !bytes.Equal(sections[0].SkyLight, nbt.Filled(sectionNibble, 0x33)) {
		t.Fatal("sky light not preserved")
	}
}

func TestEncodeRejectsForeignGeometry(t *testing.T) {
	c := chunk.New(chunk.Pos{}, chunk.MustGeometry(chunk.Dimensions{XSize: 16, YSize: 128, ZSize: 16}))
	if _, err := Encode(c); err == nil {
		t.Fatal("expected error encoding a 128-high chunk as anvil")
	}
}

func TestComputeHeightMap(t *testing.T) {
	c := chunk.New(chunk.Pos{}, Geometry)
	c.SetID(0, 64, 0, block.Stone)
	c.SetID(5, 100, 5, block.Grass)

	hm := computeHeightMap(c)
	if hm[0] != 65 { // y=64 → heightmap = 65
		t.Fatalf("expected heightmap[0]=65, got %d", hm[0])
	}
	if hm[5*16+5] != 101 {
		t.Fatalf("expected heightmap[85]=101, got %d", hm[5*16+5])
	}
	if hm[1] != 0 {
		t.Fatalf("expected heightmap[1]=0, got %d", hm[1])
	}
}

func TestDecodeMissingLevel(t *testing.T) {
	root := make(nbt.Compound)
	if err := root.Set("DataVersion", int32(1)); err != nil {
		t.Fatal(err)
	}
	data, _ := root.Marshal()
	if _, err := Decode(data); err == nil {
		t.Fatal("expected error for chunk without Level")
	}
}
