package oregen

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/OCharnyshevich/oregen/internal/placement"
	"github.com/OCharnyshevich/oregen/internal/selector"
	"github.com/OCharnyshevich/oregen/internal/store"
	"github.com/OCharnyshevich/oregen/pkg/world/block"
	"github.com/OCharnyshevich/oregen/pkg/world/chunk"
)

var discard = slog.New(slog.DiscardHandler)

const stoneTop = 20

// newStoneWorld creates an n x n anvil world, stone below stoneTop and air
// above, plus one unpopulated chunk at (100, 100).
func newStoneWorld(t *testing.T, n int) *store.ChunkManager {
	t.Helper()
	w, err := store.CreateWorld(t.TempDir(), store.FormatAnvil, "ores", discard)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	m, err := w.ChunkManager(0)
	if err != nil {
		t.Fatal(err)
	}

	fill := func(p chunk.Pos, populated bool) {
		c := chunk.New(p, m.Geometry())
		c.TerrainPopulated = populated
		for y := range stoneTop {
			for z := range 16 {
				for x := range 16 {
					c.Load(c.Index(x, y, z), block.Stone, 0)
				}
			}
		}
		if err := m.SaveChunk(c); err != nil {
			t.Fatal(err)
		}
	}
	for cz := range n {
		for cx := range n {
			fill(chunk.Pos{X: cx, Z: cz}, true)
		}
	}
	fill(chunk.Pos{X: 100, Z: 100}, false)
	return m
}

// census counts ids over every stored chunk and reports cells of id outside
// [minY, maxY).
func census(t *testing.T, m *store.ChunkManager, id block.ID, minY, maxY int) (map[block.ID]int, int) {
	t.Helper()
	counts := make(map[block.ID]int)
	outside := 0
	geom := m.Geometry()
	for p, err := range m.Chunks() {
		if err != nil {
			t.Fatal(err)
		}
		c, err := m.LoadChunk(p.X, p.Z)
		if err != nil {
			t.Fatal(err)
		}
		for y := range geom.YSize {
			for z := range geom.ZSize {
				for x := range geom.XSize {
					got := c.ID(x, y, z)
					counts[got]++
					if got == id && (y < minY || y >= maxY) {
						outside++
					}
				}
			}
		}
	}
	return counts, outside
}

func TestDiamondDefaults(t *testing.T) {
	const n = 5
	m := newStoneWorld(t, n)
	rng := rand.New(rand.NewPCG(56, 56))
	req := Request{Block: block.DiamondOre, Rounds: 1, Size: 7, MinDepth: 0, MaxDepth: 15}

	d, err := New(m, req, placement.OverridePolicy{}, placement.Criteria{}, rng, discard)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	st, err := d.Run(context.Background(), selector.Select(m, selector.Criteria{}, rng, discard))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if st.Visited != n*n+1 {
		t.Errorf("visited: got %d, want %d", st.Visited, n*n+1)
	}
	if st.Skipped != 1 {
		t.Errorf("skipped: got %d, want 1", st.Skipped)
	}
	if st.Affected != n*n {
		t.Errorf("affected: got %d, want %d", st.Affected, n*n)
	}

	counts, outside := census(t, m, block.DiamondOre, 0, 15)
	if outside != 0 {
		t.Errorf("%d diamond cells outside [0,15)", outside)
	}
	if counts[block.DiamondOre] != st.Placed {
		t.Errorf("diamond cells: got %d, want %d placed", counts[block.DiamondOre], st.Placed)
	}
	// Every diamond replaced stone: the solid cell count is unchanged.
	wantSolid := (n*n + 1) * 16 * 16 * stoneTop
	if got := counts[block.Stone] + counts[block.DiamondOre]; got != wantSolid {
		t.Errorf("stone+diamond cells: got %d, want %d", got, wantSolid)
	}
}

func TestRunPlacesAndSaves(t *testing.T) {
	m := newStoneWorld(t, 2)
	rng := rand.New(rand.NewPCG(1, 1))
	req := Request{Block: block.GoldOre, Rounds: 6, Size: 16, MinDepth: 2, MaxDepth: 18}

	d, err := New(m, req, placement.OverridePolicy{}, placement.Criteria{}, rng, discard)
	if err != nil {
		t.Fatal(err)
	}
	st, err := d.Run(context.Background(), selector.Select(m, selector.Criteria{}, rng, discard))
	if err != nil {
		t.Fatal(err)
	}
	if st.Placed == 0 {
		t.Fatal("no cells placed")
	}
	if st.Saved == 0 {
		t.Error("no chunks saved")
	}
	counts, outside := census(t, m, block.GoldOre, 2, 18)
	if outside != 0 {
		t.Errorf("%d gold cells outside [2,18)", outside)
	}
	if counts[block.GoldOre] != st.Placed {
		t.Errorf("gold cells on disk: got %d, want %d", counts[block.GoldOre], st.Placed)
	}
}

func TestNewValidatesRequest(t *testing.T) {
	m := newStoneWorld(t, 1)
	tests := []struct {
		name string
		req  Request
	}{
		{"negative rounds", Request{Rounds: -1, Size: 1, MaxDepth: 10}},
		{"negative size", Request{Rounds: 1, Size: -1, MaxDepth: 10}},
		{"negative min", Request{Rounds: 1, Size: 1, MinDepth: -1, MaxDepth: 10}},
		{"empty window", Request{Rounds: 1, Size: 1, MinDepth: 10, MaxDepth: 10}},
		{"above world", Request{Rounds: 1, Size: 1, MaxDepth: 257}},
		{"block beyond anvil ids", Request{Block: block.MaxID + 1, Rounds: 1, Size: 1, MaxDepth: 10}},
		{"negative block", Request{Block: -1, Rounds: 1, Size: 1, MaxDepth: 10}},
	}
	for _, tt := range tests {
		_, err := New(m, tt.req, placement.OverridePolicy{}, placement.Criteria{}, rand.New(rand.NewPCG(0, 0)), discard)
		if !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("%s: got %v, want ErrInvalidRequest", tt.name, err)
		}
	}
}

func TestNewRejectsWideIDsForMCRegion(t *testing.T) {
	w, err := store.CreateWorld(t.TempDir(), store.FormatMCRegion, "beta", discard)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	m, err := w.ChunkManager(0)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewPCG(0, 0))
	req := Request{Block: 300, Rounds: 5, Size: 8, MaxDepth: 30}
	if _, err := New(m, req, placement.OverridePolicy{}, placement.Criteria{}, rng, discard); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("block 300: got %v, want ErrInvalidRequest", err)
	}
	req.Block = 255
	if _, err := New(m, req, placement.OverridePolicy{}, placement.Criteria{}, rng, discard); err != nil {
		t.Errorf("block 255: got %v, want nil", err)
	}
}

// memJournal is an in-memory Journal.
type memJournal struct {
	done map[chunk.Pos]int
}

func (j *memJournal) Processed(pos chunk.Pos) (bool, error) {
	_, ok := j.done[pos]
	return ok, nil
}

func (j *memJournal) RecordChunk(pos chunk.Pos, placed int) error {
	j.done[pos] = placed
	return nil
}

func TestRunResume(t *testing.T) {
	m := newStoneWorld(t, 2)
	j := &memJournal{done: map[chunk.Pos]int{{X: 0, Z: 0}: 3}}
	rng := rand.New(rand.NewPCG(9, 9))
	req := Request{Block: block.CoalOre, Rounds: 2, Size: 8, MaxDepth: 16}

	d, err := New(m, req, placement.OverridePolicy{}, placement.Criteria{}, rng, discard, WithJournal(j, true))
	if err != nil {
		t.Fatal(err)
	}
	st, err := d.Run(context.Background(), selector.Select(m, selector.Criteria{}, rng, discard))
	if err != nil {
		t.Fatal(err)
	}
	if st.Affected != 3 {
		t.Errorf("affected: got %d, want 3", st.Affected)
	}
	if st.Skipped != 2 {
		t.Errorf("skipped: got %d, want 2", st.Skipped)
	}
	if len(j.done) != 4 {
		t.Errorf("journaled chunks: got %d, want 4", len(j.done))
	}
	if j.done[chunk.Pos{}] != 3 {
		t.Error("journaled chunk was processed again")
	}
}

func TestRunCanceled(t *testing.T) {
	m := newStoneWorld(t, 2)
	rng := rand.New(rand.NewPCG(2, 2))
	req := Request{Block: block.IronOre, Rounds: 1, Size: 8, MaxDepth: 16}
	d, err := New(m, req, placement.OverridePolicy{}, placement.Criteria{}, rng, discard)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st, err := d.Run(ctx, selector.Select(m, selector.Criteria{}, rng, discard))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if st.Affected != 0 {
		t.Errorf("affected after cancel: got %d, want 0", st.Affected)
	}
}

func TestApplyChunkDrawOrder(t *testing.T) {
	m := newStoneWorld(t, 1)
	req := Request{Block: block.LapisOre, Rounds: 1, Size: 0, MinDepth: 4, MaxDepth: 12}
	rng := &scriptedRand{ints: []int{3, 5, 7}}
	d, err := New(m, req, placement.OverridePolicy{}, placement.Criteria{}, rng, discard)
	if err != nil {
		t.Fatal(err)
	}
	c, err := m.LoadChunk(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	d.ApplyChunk(c)

	want := []int{16, 8, 16}
	if len(rng.bounds) < 3 {
		t.Fatalf("got %d IntN draws, want at least 3", len(rng.bounds))
	}
	for i, b := range want {
		if rng.bounds[i] != b {
			t.Errorf("draw %d: got IntN(%d), want IntN(%d)", i, rng.bounds[i], b)
		}
	}
}

// scriptedRand replays ints for IntN and records the bounds asked for.
type scriptedRand struct {
	ints   []int
	bounds []int
}

func (r *scriptedRand) IntN(n int) int {
	r.bounds = append(r.bounds, n)
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0] % n
	r.ints = r.ints[1:]
	return v
}

func (r *scriptedRand) Float64() float64 { return 0 }
