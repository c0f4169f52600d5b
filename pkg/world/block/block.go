package block

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ID is a legacy numeric block id. Anvil chunks carry up to 12 bits via the
// Add nibble array, MCRegion chunks only 8.
type ID int

// MaxID is the largest id a chunk can store.
const MaxID ID = 4095

const (
	Air                ID = 0
	Stone              ID = 1
	Grass              ID = 2
	Dirt               ID = 3
	Cobblestone        ID = 4
	Bedrock            ID = 7
	FlowingWater       ID = 8
	Water              ID = 9 // stationary water
	FlowingLava        ID = 10
	Lava               ID = 11 // stationary lava
	Sand               ID = 12
	Gravel             ID = 13
	GoldOre            ID = 14
	IronOre            ID = 15
	CoalOre            ID = 16
	LapisOre           ID = 21
	Sandstone          ID = 24
	MossStone          ID = 48
	Obsidian           ID = 49
	DiamondOre         ID = 56
	RedstoneOre        ID = 73
	GlowingRedstoneOre ID = 74
	Clay               ID = 82
	Netherrack         ID = 87
	SoulSand           ID = 88
	Glowstone          ID = 89
	EmeraldOre         ID = 129
	QuartzOre          ID = 153
)

var names = map[string]ID{
	"air":               Air,
	"stone":             Stone,
	"grass":             Grass,
	"dirt":              Dirt,
	"cobblestone":       Cobblestone,
	"bedrock":           Bedrock,
	"flowing_water":     FlowingWater,
	"water":             Water,
	"flowing_lava":      FlowingLava,
	"lava":              Lava,
	"sand":              Sand,
	"gravel":            Gravel,
	"gold_ore":          GoldOre,
	"iron_ore":          IronOre,
	"coal_ore":          CoalOre,
	"lapis_ore":         LapisOre,
	"sandstone":         Sandstone,
	"mossy_cobblestone": MossStone,
	"obsidian":          Obsidian,
	"diamond_ore":       DiamondOre,
	"redstone_ore":      RedstoneOre,
	"lit_redstone_ore":  GlowingRedstoneOre,
	"clay":              Clay,
	"netherrack":        Netherrack,
	"soul_sand":         SoulSand,
	"glowstone":         Glowstone,
	"emerald_ore":       EmeraldOre,
	"quartz_ore":        QuartzOre,
	"nether_quartz_ore": QuartzOre,
}

// Parse resolves a block given either as a number or as a name such as
// "diamond_ore" or "minecraft:stone".
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty block id")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || ID(n) > MaxID {
			return 0, fmt.Errorf("block id %d out of range 0-%d", n, MaxID)
		}
		return ID(n), nil
	}
	name := strings.TrimPrefix(strings.ToLower(s), "minecraft:")
	if id, ok := names[name]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("unknown block %q", s)
}

// String returns the shortest registered name for id, or its number.
func (id ID) String() string {
	best := ""
	for name, v := range names {
		if v == id && (best == "" || len(name) < len(best)) {
			best = name
		}
	}
	if best == "" {
		return strconv.Itoa(int(id))
	}
	return best
}

// Set is an unordered set of block ids. The zero value is an empty set.
type Set map[ID]struct{}

// NewSet builds a Set from ids.
func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is a member. A nil set contains nothing.
func (s Set) Contains(id ID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []ID {
	out := make([]ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DataSet is an unordered set of data values (0-15).
type DataSet map[int]struct{}

// NewDataSet builds a DataSet from values.
func NewDataSet(values ...int) DataSet {
	s := make(DataSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Contains reports whether v is a member.
func (s DataSet) Contains(v int) bool {
	_, ok := s[v]
	return ok
}
