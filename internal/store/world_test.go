package store

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/OCharnyshevich/oregen/pkg/world/block"
	"github.com/OCharnyshevich/oregen/pkg/world/chunk"
	"github.com/OCharnyshevich/oregen/pkg/world/nbt"
)

var discard = slog.New(slog.DiscardHandler)

func TestCreateAndOpenWorld(t *testing.T) {
	for _, format := range []Format{FormatAnvil, FormatMCRegion} {
		t.Run(format.String(), func(t *testing.T) {
			dir := t.TempDir()
			w, err := CreateWorld(dir, format, "test", discard)
			if err != nil {
				t.Fatalf("CreateWorld: %v", err)
			}
			w.Close()

			if _, err := os.Stat(filepath.Join(dir, levelFile+".tmp")); !os.IsNotExist(err) {
				t.Errorf("temp file left behind: %v", err)
			}

			w, err = OpenWorld(dir, discard)
			if err != nil {
				t.Fatalf("OpenWorld: %v", err)
			}
			defer w.Close()
			if w.Format() != format {
				t.Errorf("format: got %v, want %v", w.Format(), format)
			}
			if w.Name() != "test" {
				t.Errorf("name: got %q, want %q", w.Name(), "test")
			}
		})
	}
}

func TestOpenWorldMissing(t *testing.T) {
	if _, err := OpenWorld(t.TempDir(), discard); err == nil {
		t.Fatal("expected error for directory without level.dat")
	}
}

func TestOpenWorldDetectsFormat(t *testing.T) {
	dir := t.TempDir()
	data := make(nbt.Compound)
	if err := data.Set("LevelName", "old"); err != nil {
		t.Fatal(err)
	}
	root := make(nbt.Compound)
	if err := root.Set("Data", data); err != nil {
		t.Fatal(err)
	}
	raw, err := encodeLevel(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, levelFile), raw, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "region"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "region", "r.0.0.mca"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := OpenWorld(dir, discard)
	if err != nil {
		t.Fatalf("OpenWorld: %v", err)
	}
	if w.Format() != FormatAnvil {
		t.Errorf("format: got %v, want %v", w.Format(), FormatAnvil)
	}
}

func TestChunkManagerRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatAnvil, FormatMCRegion} {
		t.Run(format.String(), func(t *testing.T) {
			dir := t.TempDir()
			w, err := CreateWorld(dir, format, "rt", discard)
			if err != nil {
				t.Fatal(err)
			}
			m, err := w.ChunkManager(0)
			if err != nil {
				t.Fatal(err)
			}

			c := chunk.New(chunk.Pos{X: -1, Z: 33}, m.Geometry())
			c.TerrainPopulated = true
			c.SetBlock(3, 10, 5, block.DiamondOre, 0)
			c.SetID(0, 0, 0, block.Bedrock)
			if err := m.SaveChunk(c); err != nil {
				t.Fatalf("SaveChunk: %v", err)
			}
			if c.Dirty() {
				t.Error("chunk still dirty after save")
			}
			if _, err := os.Stat(filepath.Join(dir, "region", "r.-1.1."+m.codec.ext)); err != nil {
				t.Errorf("region file: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}

			w, err = OpenWorld(dir, discard)
			if err != nil {
				t.Fatal(err)
			}
			defer w.Close()
			m, err = w.ChunkManager(0)
			if err != nil {
				t.Fatal(err)
			}
			got, err := m.LoadChunk(-1, 33)
			if err != nil {
				t.Fatalf("LoadChunk: %v", err)
			}
			if got.Pos != c.Pos {
				t.Errorf("pos: got %v, want %v", got.Pos, c.Pos)
			}
			if !got.TerrainPopulated {
				t.Error("TerrainPopulated lost")
			}
			if id := got.ID(3, 10, 5); id != block.DiamondOre {
				t.Errorf("ID(3,10,5): got %v, want %v", id, block.DiamondOre)
			}
			if id := got.ID(0, 0, 0); id != block.Bedrock {
				t.Errorf("ID(0,0,0): got %v, want %v", id, block.Bedrock)
			}

			if _, err := m.LoadChunk(-1, 34); !errors.Is(err, ErrChunkNotFound) {
				t.Errorf("missing chunk in existing region: got %v, want ErrChunkNotFound", err)
			}
			if _, err := m.LoadChunk(100, 100); !errors.Is(err, ErrChunkNotFound) {
				t.Errorf("missing region: got %v, want ErrChunkNotFound", err)
			}
		})
	}
}

func TestChunksOrder(t *testing.T) {
	w, err := CreateWorld(t.TempDir(), FormatAnvil, "order", discard)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	m, err := w.ChunkManager(0)
	if err != nil {
		t.Fatal(err)
	}

	saved := []chunk.Pos{{X: 40, Z: 0}, {X: 1, Z: 1}, {X: -5, Z: 2}, {X: 0, Z: 1}, {X: 2, Z: 0}}
	for _, p := range saved {
		if err := m.SaveChunk(chunk.New(p, m.Geometry())); err != nil {
			t.Fatal(err)
		}
	}

	want := []chunk.Pos{{X: -5, Z: 2}, {X: 2, Z: 0}, {X: 0, Z: 1}, {X: 1, Z: 1}, {X: 40, Z: 0}}
	var got []chunk.Pos
	for p, err := range m.Chunks() {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, p)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestChunksEmptyDimension(t *testing.T) {
	w, err := CreateWorld(t.TempDir(), FormatAnvil, "empty", discard)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	m, err := w.ChunkManager(-1)
	if err != nil {
		t.Fatal(err)
	}
	for p, err := range m.Chunks() {
		t.Fatalf("unexpected chunk %v (err %v)", p, err)
	}
	if want := filepath.Join(w.Dir(), "DIM-1", "region"); m.Dir() != want {
		t.Errorf("dir: got %q, want %q", m.Dir(), want)
	}
}
