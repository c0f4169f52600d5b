package config

import (
	"fmt"
	"io"
	"slices"

	"github.com/OCharnyshevich/oregen/pkg/world/block"
)

// OrePreset holds the vanilla distribution of an ore. Blocks with a preset
// need no explicit rounds, depths or size.
type OrePreset struct {
	ID       block.ID
	Name     string
	Rounds   int
	MinDepth int
	MaxDepth int
	Size     int
}

var presets = map[block.ID]OrePreset{
	block.CoalOre:     {ID: block.CoalOre, Name: "Coal", Rounds: 20, MinDepth: 0, MaxDepth: 127, Size: 16},
	block.IronOre:     {ID: block.IronOre, Name: "Iron", Rounds: 20, MinDepth: 0, MaxDepth: 63, Size: 8},
	block.GoldOre:     {ID: block.GoldOre, Name: "Gold", Rounds: 2, MinDepth: 0, MaxDepth: 31, Size: 8},
	block.RedstoneOre: {ID: block.RedstoneOre, Name: "Redstone", Rounds: 8, MinDepth: 0, MaxDepth: 15, Size: 7},
	block.DiamondOre:  {ID: block.DiamondOre, Name: "Diamond", Rounds: 1, MinDepth: 0, MaxDepth: 15, Size: 7},
	block.LapisOre:    {ID: block.LapisOre, Name: "Lapis", Rounds: 1, MinDepth: 0, MaxDepth: 31, Size: 7},
	block.QuartzOre:   {ID: block.QuartzOre, Name: "Quartz", Rounds: 16, MinDepth: 10, MaxDepth: 117, Size: 13},
}

// LookupPreset returns the preset for id, if any.
func LookupPreset(id block.ID) (OrePreset, bool) {
	p, ok := presets[id]
	return p, ok
}

// Presets returns every preset ordered by block id.
func Presets() []OrePreset {
	out := make([]OrePreset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b OrePreset) int { return int(a.ID) - int(b.ID) })
	return out
}

func writePresets(w io.Writer) {
	fmt.Fprintln(w, "Block defaults (used when -r, -min, -max or -s are omitted):")
	fmt.Fprintf(w, "  %-4s %-9s %6s %4s %4s %4s\n", "ID", "Name", "Rounds", "Min", "Max", "Size")
	for _, p := range Presets() {
		fmt.Fprintf(w, "  %-4d %-9s %6d %4d %4d %4d\n", p.ID, p.Name, p.Rounds, p.MinDepth, p.MaxDepth, p.Size)
	}
}
