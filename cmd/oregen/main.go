package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/OCharnyshevich/oregen/internal/config"
	"github.com/OCharnyshevich/oregen/internal/fetch"
	"github.com/OCharnyshevich/oregen/internal/journal"
	"github.com/OCharnyshevich/oregen/internal/oregen"
	"github.com/OCharnyshevich/oregen/internal/selector"
	"github.com/OCharnyshevich/oregen/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes one invocation and returns the process exit status: 0 on
// success, 1 when generation fails, 2 for bad options.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		// flag parse errors were already printed with the usage text
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
	plan, err := cfg.Resolve()
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		fmt.Fprintln(stderr, "run with -h for the option list")
		return 2
	}

	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))

	dir := plan.World
	downloaded := false
	if plan.Source != "" {
		if dir == "" {
			downloaded = true
			tmp, err := os.MkdirTemp("", "oregen-")
			if err != nil {
				log.Error("create download directory", "error", err)
				return 1
			}
			dir = filepath.Join(tmp, "world")
		}
		dir, err = fetch.World(ctx, plan.Source, dir, log)
		if err != nil {
			log.Error("fetch world", "error", err)
			return 1
		}
	}

	world, err := store.OpenWorld(dir, log)
	if err != nil {
		log.Error("open world", "error", err)
		return 1
	}
	defer world.Close()

	chunks, err := world.ChunkManager(plan.Dimension)
	if err != nil {
		log.Error("open dimension", "dim", plan.Dimension, "error", err)
		return 1
	}

	var seed uint64
	if plan.Seed != nil {
		seed = *plan.Seed
	} else {
		seed = rand.Uint64()
	}
	log.Info("starting", "world", world.Dir(), "name", world.Name(), "format", world.Format(),
		"dim", plan.Dimension, "block", plan.Deposit.Block, "seed", seed)
	log.Debug("placement rules", "regions", chunks.Dir(),
		"replace", plan.Override.Include.Sorted(), "keep", plan.Override.Exclude.Sorted())
	rng := rand.New(rand.NewPCG(seed, seed))

	var (
		opts []oregen.Option
		j    *journal.Journal
	)
	if plan.Journal != "" {
		j, err = journal.Open(plan.Journal, journal.Key(dir, plan.Dimension, plan.Deposit.Block), seed)
		if err != nil {
			log.Error("open journal", "path", plan.Journal, "error", err)
			return 1
		}
		defer j.Close()
		log.Debug("journal opened", "path", plan.Journal, "run", j.RunID())
		opts = append(opts, oregen.WithJournal(j, plan.Resume))
	}

	driver, err := oregen.New(chunks, plan.Deposit, plan.Override, plan.Filter, rng, log, opts...)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}

	st, err := driver.Run(ctx, selector.Select(chunks, plan.Chunks, rng, log))
	fmt.Fprintf(stdout, "Affected Chunks: %d\n", st.Affected)
	if downloaded {
		fmt.Fprintf(stdout, "World: %s\n", world.Dir())
	}
	if j != nil {
		if n, placed, err := j.RunTotals(); err != nil {
			log.Warn("read journal totals", "error", err)
		} else {
			log.Info("journal updated", "run", j.RunID(), "chunks", n, "placed", placed)
		}
	}
	if err != nil {
		log.Error("generation stopped", "error", err, "affected_chunks", st.Affected)
		return 1
	}
	return 0
}
