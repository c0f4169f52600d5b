package config

import (
	"flag"
	"fmt"
	"io"
)

// RegisterFlags binds every command-line option to cfg.
func RegisterFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.World, "w", cfg.World, "path to the world directory")
	fs.IntVar(&cfg.Dimension, "dim", cfg.Dimension, "dimension: 0 overworld, -1 nether, 1 end")
	fs.Func("seed", "random seed (random when omitted)", optUint(&cfg.Seed))
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "YAML file with options; flags override it")
	fs.StringVar(&cfg.Source, "source", cfg.Source, "download the world from this go-getter URL into -w, which must not exist yet")
	fs.StringVar(&cfg.Journal, "journal", cfg.Journal, "SQLite journal of processed chunks")
	fs.BoolVar(&cfg.Resume, "resume", cfg.Resume, "skip chunks the journal already lists")
	fs.BoolFunc("v", "verbose output", func(string) error {
		cfg.Verbose = max(cfg.Verbose, 1)
		return nil
	})
	fs.BoolFunc("vv", "very verbose output", func(string) error {
		cfg.Verbose = 2
		return nil
	})

	d := &cfg.Deposit
	fs.Func("b", "block to generate, by id or name", optBlock(&d.Block))
	fs.Func("d", "data value of generated blocks (0-15)", optInt(&d.Data))
	fs.Func("r", "deposits attempted per chunk", optInt(&d.Rounds))
	fs.Func("min", "lowest y of deposit seeds", optInt(&d.MinDepth))
	fs.Func("max", "y deposits stay below", optInt(&d.MaxDepth))
	fs.Func("s", "vein size", optInt(&d.Size))
	fs.BoolVar(&d.Legacy, "nu", d.Legacy, "use the legacy vein distribution")

	o := &cfg.Override
	fs.BoolVar(&o.Ores, "oo", o.Ores, "also replace ores, dirt and gravel")
	fs.BoolVar(&o.All, "oa", o.All, "replace any block")
	fs.Var(&o.Include, "oi", "only replace these blocks (repeatable)")
	fs.Var(&o.Exclude, "ox", "never replace these blocks (repeatable)")

	b := &cfg.Blocks
	fs.Func("bxa", "blocks with x >= value", optInt(&b.XMin))
	fs.Func("bxb", "blocks with x <= value", optInt(&b.XMax))
	fs.Func("bya", "blocks with y >= value", optInt(&b.YMin))
	fs.Func("byb", "blocks with y <= value", optInt(&b.YMax))
	fs.Func("bza", "blocks with z >= value", optInt(&b.ZMin))
	fs.Func("bzb", "blocks with z <= value", optInt(&b.ZMax))
	fs.BoolVar(&b.Invert, "bxr", b.Invert, "invert the block coordinate box")
	fs.Var(&b.Include, "bi", "blocks must be one of these")
	fs.Var(&b.Exclude, "bx", "blocks must not be one of these")
	fs.Var(&b.Above, "bia", "block above must be one of these")
	fs.Var(&b.Below, "bib", "block below must be one of these")
	fs.Var(&b.Side, "bis", "a side neighbor must be one of these")
	fs.Var(&b.NotAbove, "bna", "block above must not be one of these")
	fs.Var(&b.NotBelow, "bnb", "block below must not be one of these")
	fs.Var(&b.NotSide, "bns", "no side neighbor may be one of these")
	fs.Var(&b.DataInclude, "bdi", "data value must be one of these")
	fs.Var(&b.DataExclude, "bdx", "data value must not be one of these")
	fs.Func("bp", "chance (0-1) that a matching block is replaced", optFloat(&b.Probability))

	c := &cfg.Chunks
	fs.Func("cxa", "chunks with x >= value", optInt(&c.XMin))
	fs.Func("cxb", "chunks with x <= value", optInt(&c.XMax))
	fs.Func("cza", "chunks with z >= value", optInt(&c.ZMin))
	fs.Func("czb", "chunks with z <= value", optInt(&c.ZMax))
	fs.BoolVar(&c.Invert, "cxr", c.Invert, "invert the chunk coordinate box")
	fs.Var(&c.Include, "ci", "chunks must contain one of these blocks")
	fs.BoolVar(&c.IncludeAll, "ci-all", c.IncludeAll, "chunks must contain all -ci blocks")
	fs.Var(&c.Exclude, "cx", "chunks must not contain any of these blocks")
	fs.BoolVar(&c.ExcludeAll, "cx-all", c.ExcludeAll, "only skip chunks containing all -cx blocks")
	fs.Func("cp", "chance (0-1) that a matching chunk is processed", optFloat(&c.Probability))
}

// Load parses args and, when -config is given, fills every option not set on
// the command line from the file.
func Load(args []string, out io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("oregen", flag.ContinueOnError)
	fs.SetOutput(out)
	cfg := DefaultConfig()
	RegisterFlags(fs, cfg)
	fs.Usage = func() { Usage(out, fs) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if cfg.ConfigFile == "" {
		return cfg, nil
	}

	fromFile, err := LoadFile(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	Merge(cfg, fromFile, explicit)
	return cfg, nil
}

// Usage prints the option list and the preset table.
func Usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: oregen -w <world> -b <block> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Places ore deposits into every populated chunk of a world.")
	fmt.Fprintln(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	writePresets(w)
}
