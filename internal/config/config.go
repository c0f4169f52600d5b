// Package config turns command-line flags and an optional YAML file into a
// validated run plan.
package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/OCharnyshevich/oregen/internal/oregen"
	"github.com/OCharnyshevich/oregen/internal/placement"
	"github.com/OCharnyshevich/oregen/internal/selector"
	"github.com/OCharnyshevich/oregen/pkg/world/block"
)

var (
	ErrMissingWorld    = errors.New("world path required (-w)")
	ErrMissingBlock    = errors.New("block id required (-b)")
	ErrMissingRounds   = errors.New("rounds required for blocks without defaults (-r)")
	ErrMissingMinDepth = errors.New("min depth required for blocks without defaults (-min)")
	ErrMissingMaxDepth = errors.New("max depth required for blocks without defaults (-max)")
	ErrMissingSize     = errors.New("vein size required for blocks without defaults (-s)")
	ErrInvalidValue    = errors.New("invalid value")
)

// Config holds every option of a run.
type Config struct {
	World     string  `yaml:"world"`
	Dimension int     `yaml:"dimension"`
	Seed      *uint64 `yaml:"seed"`
	Source    string  `yaml:"source"`
	Journal   string  `yaml:"journal"`
	Resume    bool    `yaml:"resume"`
	Verbose   int     `yaml:"verbose"` // 0 info, 1 debug, 2 per-round trace

	Deposit  DepositConfig     `yaml:"deposit"`
	Override OverrideConfig    `yaml:"override"`
	Blocks   BlockFilterConfig `yaml:"blocks"`
	Chunks   ChunkFilterConfig `yaml:"chunks"`

	// ConfigFile is only settable from the command line.
	ConfigFile string `yaml:"-"`
}

// DepositConfig describes the vein. Nil fields fall back to the block's preset.
type DepositConfig struct {
	Block    *BlockRef `yaml:"block"`
	Data     *int      `yaml:"data"`
	Rounds   *int      `yaml:"rounds"`
	MinDepth *int      `yaml:"min"`
	MaxDepth *int      `yaml:"max"`
	Size     *int      `yaml:"size"`
	Legacy   bool      `yaml:"legacy"`
}

// OverrideConfig selects which existing blocks a vein may replace.
type OverrideConfig struct {
	Ores    bool   `yaml:"ores"`
	All     bool   `yaml:"all"`
	Include IDList `yaml:"include"`
	Exclude IDList `yaml:"exclude"`
}

// BlockFilterConfig are the per-cell filters.
type BlockFilterConfig struct {
	XMin   *int `yaml:"x_min"`
	XMax   *int `yaml:"x_max"`
	YMin   *int `yaml:"y_min"`
	YMax   *int `yaml:"y_max"`
	ZMin   *int `yaml:"z_min"`
	ZMax   *int `yaml:"z_max"`
	Invert bool `yaml:"invert"`

	Include IDList `yaml:"include"`
	Exclude IDList `yaml:"exclude"`

	Above    IDList `yaml:"above"`
	Below    IDList `yaml:"below"`
	Side     IDList `yaml:"side"`
	NotAbove IDList `yaml:"not_above"`
	NotBelow IDList `yaml:"not_below"`
	NotSide  IDList `yaml:"not_side"`

	DataInclude DataList `yaml:"data_include"`
	DataExclude DataList `yaml:"data_exclude"`

	Probability *float64 `yaml:"probability"`
}

// ChunkFilterConfig are the per-chunk filters, in chunk coordinates.
type ChunkFilterConfig struct {
	XMin   *int `yaml:"x_min"`
	XMax   *int `yaml:"x_max"`
	ZMin   *int `yaml:"z_min"`
	ZMax   *int `yaml:"z_max"`
	Invert bool `yaml:"invert"`

	Include    IDList `yaml:"include"`
	IncludeAll bool   `yaml:"include_all"`
	Exclude    IDList `yaml:"exclude"`
	ExcludeAll bool   `yaml:"exclude_all"`

	Probability *float64 `yaml:"probability"`
}

// DefaultConfig returns a Config with no deposit selected.
func DefaultConfig() *Config {
	return &Config{}
}

// LogLevel maps Verbose to a slog level.
func (c *Config) LogLevel() slog.Level {
	switch {
	case c.Verbose >= 2:
		return slog.LevelDebug - 4
	case c.Verbose == 1:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// mergeRules copies one option from a file config, keyed by the flags that
// set it on the command line.
var mergeRules = []struct {
	flags []string
	apply func(dst, src *Config)
}{
	{[]string{"w"}, func(d, s *Config) { d.World = s.World }},
	{[]string{"dim"}, func(d, s *Config) { d.Dimension = s.Dimension }},
	{[]string{"seed"}, func(d, s *Config) { d.Seed = s.Seed }},
	{[]string{"source"}, func(d, s *Config) { d.Source = s.Source }},
	{[]string{"journal"}, func(d, s *Config) { d.Journal = s.Journal }},
	{[]string{"resume"}, func(d, s *Config) { d.Resume = s.Resume }},
	{[]string{"v", "vv"}, func(d, s *Config) { d.Verbose = s.Verbose }},

	{[]string{"b"}, func(d, s *Config) { d.Deposit.Block = s.Deposit.Block }},
	{[]string{"d"}, func(d, s *Config) { d.Deposit.Data = s.Deposit.Data }},
	{[]string{"r"}, func(d, s *Config) { d.Deposit.Rounds = s.Deposit.Rounds }},
	{[]string{"min"}, func(d, s *Config) { d.Deposit.MinDepth = s.Deposit.MinDepth }},
	{[]string{"max"}, func(d, s *Config) { d.Deposit.MaxDepth = s.Deposit.MaxDepth }},
	{[]string{"s"}, func(d, s *Config) { d.Deposit.Size = s.Deposit.Size }},
	{[]string{"nu"}, func(d, s *Config) { d.Deposit.Legacy = s.Deposit.Legacy }},

	{[]string{"oo"}, func(d, s *Config) { d.Override.Ores = s.Override.Ores }},
	{[]string{"oa"}, func(d, s *Config) { d.Override.All = s.Override.All }},
	{[]string{"oi"}, func(d, s *Config) { d.Override.Include = s.Override.Include }},
	{[]string{"ox"}, func(d, s *Config) { d.Override.Exclude = s.Override.Exclude }},

	{[]string{"bxa"}, func(d, s *Config) { d.Blocks.XMin = s.Blocks.XMin }},
	{[]string{"bxb"}, func(d, s *Config) { d.Blocks.XMax = s.Blocks.XMax }},
	{[]string{"bya"}, func(d, s *Config) { d.Blocks.YMin = s.Blocks.YMin }},
	{[]string{"byb"}, func(d, s *Config) { d.Blocks.YMax = s.Blocks.YMax }},
	{[]string{"bza"}, func(d, s *Config) { d.Blocks.ZMin = s.Blocks.ZMin }},
	{[]string{"bzb"}, func(d, s *Config) { d.Blocks.ZMax = s.Blocks.ZMax }},
	{[]string{"bxr"}, func(d, s *Config) { d.Blocks.Invert = s.Blocks.Invert }},
	{[]string{"bi"}, func(d, s *Config) { d.Blocks.Include = s.Blocks.Include }},
	{[]string{"bx"}, func(d, s *Config) { d.Blocks.Exclude = s.Blocks.Exclude }},
	{[]string{"bia"}, func(d, s *Config) { d.Blocks.Above = s.Blocks.Above }},
	{[]string{"bib"}, func(d, s *Config) { d.Blocks.Below = s.Blocks.Below }},
	{[]string{"bis"}, func(d, s *Config) { d.Blocks.Side = s.Blocks.Side }},
	{[]string{"bna"}, func(d, s *Config) { d.Blocks.NotAbove = s.Blocks.NotAbove }},
	{[]string{"bnb"}, func(d, s *Config) { d.Blocks.NotBelow = s.Blocks.NotBelow }},
	{[]string{"bns"}, func(d, s *Config) { d.Blocks.NotSide = s.Blocks.NotSide }},
	{[]string{"bdi"}, func(d, s *Config) { d.Blocks.DataInclude = s.Blocks.DataInclude }},
	{[]string{"bdx"}, func(d, s *Config) { d.Blocks.DataExclude = s.Blocks.DataExclude }},
	{[]string{"bp"}, func(d, s *Config) { d.Blocks.Probability = s.Blocks.Probability }},

	{[]string{"cxa"}, func(d, s *Config) { d.Chunks.XMin = s.Chunks.XMin }},
	{[]string{"cxb"}, func(d, s *Config) { d.Chunks.XMax = s.Chunks.XMax }},
	{[]string{"cza"}, func(d, s *Config) { d.Chunks.ZMin = s.Chunks.ZMin }},
	{[]string{"czb"}, func(d, s *Config) { d.Chunks.ZMax = s.Chunks.ZMax }},
	{[]string{"cxr"}, func(d, s *Config) { d.Chunks.Invert = s.Chunks.Invert }},
	{[]string{"ci"}, func(d, s *Config) { d.Chunks.Include = s.Chunks.Include }},
	{[]string{"ci-all"}, func(d, s *Config) { d.Chunks.IncludeAll = s.Chunks.IncludeAll }},
	{[]string{"cx"}, func(d, s *Config) { d.Chunks.Exclude = s.Chunks.Exclude }},
	{[]string{"cx-all"}, func(d, s *Config) { d.Chunks.ExcludeAll = s.Chunks.ExcludeAll }},
	{[]string{"cp"}, func(d, s *Config) { d.Chunks.Probability = s.Chunks.Probability }},
}

// Merge applies file-loaded config values into cfg, but only for options
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	for _, r := range mergeRules {
		explicit := false
		for _, name := range r.flags {
			explicit = explicit || explicitFlags[name]
		}
		if !explicit {
			r.apply(cfg, fromFile)
		}
	}
}

// Plan is a validated run.
type Plan struct {
	World     string
	Dimension int
	Seed      *uint64 // nil picks a random seed
	Source    string
	Journal   string
	Resume    bool

	Deposit  oregen.Request
	Override placement.OverridePolicy
	Filter   placement.Criteria
	Chunks   selector.Criteria
}

// Resolve fills preset defaults and validates the configuration. Every
// missing value is reported at once.
func (c *Config) Resolve() (*Plan, error) {
	var missing []error
	if c.World == "" && c.Source == "" {
		missing = append(missing, ErrMissingWorld)
	}
	if c.Deposit.Block == nil {
		missing = append(missing, ErrMissingBlock)
		return nil, errors.Join(missing...)
	}

	id := block.ID(*c.Deposit.Block)
	preset, hasPreset := LookupPreset(id)
	pick := func(v *int, def int, errMissing error) int {
		if v != nil {
			return *v
		}
		if hasPreset {
			return def
		}
		missing = append(missing, errMissing)
		return 0
	}
	req := oregen.Request{
		Block:    id,
		Data:     c.Deposit.Data,
		Rounds:   pick(c.Deposit.Rounds, preset.Rounds, ErrMissingRounds),
		MinDepth: pick(c.Deposit.MinDepth, preset.MinDepth, ErrMissingMinDepth),
		MaxDepth: pick(c.Deposit.MaxDepth, preset.MaxDepth, ErrMissingMaxDepth),
		Size:     pick(c.Deposit.Size, preset.Size, ErrMissingSize),
		Legacy:   c.Deposit.Legacy,
	}
	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}

	if err := c.validate(req); err != nil {
		return nil, err
	}

	return &Plan{
		World:     c.World,
		Dimension: c.Dimension,
		Seed:      c.Seed,
		Source:    c.Source,
		Journal:   c.Journal,
		Resume:    c.Resume,
		Deposit:   req,
		Override: placement.OverridePolicy{
			AllowAny:  c.Override.All,
			AllowOres: c.Override.Ores,
			Include:   block.NewSet(c.Override.Include...),
			Exclude:   block.NewSet(c.Override.Exclude...),
		},
		Filter: placement.Criteria{
			Bounds: placement.Bounds{
				XMin: c.Blocks.XMin, XMax: c.Blocks.XMax,
				YMin: c.Blocks.YMin, YMax: c.Blocks.YMax,
				ZMin: c.Blocks.ZMin, ZMax: c.Blocks.ZMax,
				Invert: c.Blocks.Invert,
			},
			Include:     block.NewSet(c.Blocks.Include...),
			Exclude:     block.NewSet(c.Blocks.Exclude...),
			DataInclude: block.NewDataSet(c.Blocks.DataInclude...),
			DataExclude: block.NewDataSet(c.Blocks.DataExclude...),
			Above:       block.NewSet(c.Blocks.Above...),
			Below:       block.NewSet(c.Blocks.Below...),
			Side:        block.NewSet(c.Blocks.Side...),
			NotAbove:    block.NewSet(c.Blocks.NotAbove...),
			NotBelow:    block.NewSet(c.Blocks.NotBelow...),
			NotSide:     block.NewSet(c.Blocks.NotSide...),
			Probability: c.Blocks.Probability,
		},
		Chunks: selector.Criteria{
			XMin: c.Chunks.XMin, XMax: c.Chunks.XMax,
			ZMin: c.Chunks.ZMin, ZMax: c.Chunks.ZMax,
			Invert:      c.Chunks.Invert,
			Include:     block.NewSet(c.Chunks.Include...),
			IncludeAll:  c.Chunks.IncludeAll,
			Exclude:     block.NewSet(c.Chunks.Exclude...),
			ExcludeAll:  c.Chunks.ExcludeAll,
			Probability: c.Chunks.Probability,
		},
	}, nil
}

func (c *Config) validate(req oregen.Request) error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidValue, fmt.Sprintf(format, args...)))
	}

	if req.Data != nil && (*req.Data < 0 || *req.Data > 15) {
		invalid("data value %d outside 0-15", *req.Data)
	}
	if req.Rounds < 0 {
		invalid("rounds %d is negative", req.Rounds)
	}
	if req.Size < 0 {
		invalid("size %d is negative", req.Size)
	}
	if req.MinDepth < 0 {
		invalid("min depth %d is negative", req.MinDepth)
	}
	if req.MaxDepth <= req.MinDepth {
		invalid("max depth %d must be above min depth %d", req.MaxDepth, req.MinDepth)
	}
	for _, v := range append(append(DataList{}, c.Blocks.DataInclude...), c.Blocks.DataExclude...) {
		if v < 0 || v > 15 {
			invalid("data filter value %d outside 0-15", v)
		}
	}
	checkProbability := func(name string, p *float64) {
		if p != nil && (*p < 0 || *p > 1) {
			invalid("%s probability %g outside [0,1]", name, *p)
		}
	}
	checkProbability("block", c.Blocks.Probability)
	checkProbability("chunk", c.Chunks.Probability)

	return errors.Join(errs...)
}
