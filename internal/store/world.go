// Package store reads and writes world directories: level.dat and the region
// files of each dimension.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/OCharnyshevich/oregen/pkg/world/nbt"
	"github.com/OCharnyshevich/oregen/pkg/world/region"
)

// Format is an on-disk chunk layout.
type Format int

const (
	FormatMCRegion Format = iota + 1
	FormatAnvil
)

// level.dat version tags.
const (
	versionMCRegion = 19132
	versionAnvil    = 19133
)

func (f Format) String() string {
	switch f {
	case FormatMCRegion:
		return "mcregion"
	case FormatAnvil:
		return "anvil"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

var (
	// ErrChunkNotFound is returned when a world has no data for a chunk.
	ErrChunkNotFound = errors.New("chunk not found")
	// ErrUnknownFormat is returned for worlds in a layout this package cannot read.
	ErrUnknownFormat = errors.New("unknown world format")
)

const levelFile = "level.dat"

// World is an open world directory.
type World struct {
	dir    string
	format Format
	name   string
	log    *slog.Logger

	managers map[int]*ChunkManager
}

// OpenWorld opens the world stored in dir. The format comes from level.dat,
// falling back to the region files present when level.dat has no version.
func OpenWorld(dir string, log *slog.Logger) (*World, error) {
	raw, err := os.ReadFile(filepath.Join(dir, levelFile))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", levelFile, err)
	}
	root, err := decodeLevel(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", levelFile, err)
	}
	data, err := root.Compound("Data")
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", levelFile, err)
	}

	w := &World{dir: dir, log: log, managers: make(map[int]*ChunkManager)}
	if data.Has("LevelName") {
		if err := data.Get("LevelName", &w.name); err != nil {
			return nil, err
		}
	}

	var version int32
	if data.Has("version") {
		if err := data.Get("version", &version); err != nil {
			return nil, err
		}
	}
	switch version {
	case versionAnvil:
		w.format = FormatAnvil
	case versionMCRegion:
		w.format = FormatMCRegion
	case 0:
		w.format = detectFormat(filepath.Join(dir, "region"))
	default:
		return nil, fmt.Errorf("%w: level version %d", ErrUnknownFormat, version)
	}

	log.Debug("opened world", "dir", dir, "name", w.name, "format", w.format)
	return w, nil
}

// CreateWorld initializes an empty world in dir.
func CreateWorld(dir string, format Format, name string, log *slog.Logger) (*World, error) {
	var version int32
	switch format {
	case FormatAnvil:
		version = versionAnvil
	case FormatMCRegion:
		version = versionMCRegion
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, format)
	}

	if err := os.MkdirAll(filepath.Join(dir, "region"), 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	data := make(nbt.Compound)
	fields := []struct {
		name string
		v    any
	}{
		{"version", version},
		{"LevelName", name},
		{"RandomSeed", int64(0)},
		{"LastPlayed", time.Now().UnixMilli()},
	}
	for _, f := range fields {
		if err := data.Set(f.name, f.v); err != nil {
			return nil, err
		}
	}
	root := make(nbt.Compound)
	if err := root.Set("Data", data); err != nil {
		return nil, err
	}
	raw, err := encodeLevel(root)
	if err != nil {
		return nil, err
	}
	if err := atomicWrite(filepath.Join(dir, levelFile), raw); err != nil {
		return nil, err
	}

	return &World{dir: dir, format: format, name: name, log: log, managers: make(map[int]*ChunkManager)}, nil
}

// Dir returns the world directory.
func (w *World) Dir() string { return w.dir }

// Format returns the world's chunk layout.
func (w *World) Format() Format { return w.format }

// Name returns the LevelName from level.dat.
func (w *World) Name() string { return w.name }

// ChunkManager returns the chunk manager of a dimension: 0 is the overworld,
// -1 the nether and 1 the end.
func (w *World) ChunkManager(dim int) (*ChunkManager, error) {
	if m, ok := w.managers[dim]; ok {
		return m, nil
	}
	dir := filepath.Join(w.dir, "region")
	if dim != 0 {
		dir = filepath.Join(w.dir, fmt.Sprintf("DIM%d", dim), "region")
	}
	m, err := newChunkManager(dir, w.format, w.log.With("dim", dim))
	if err != nil {
		return nil, err
	}
	w.managers[dim] = m
	return m, nil
}

// Close closes every region file opened through the world.
func (w *World) Close() error {
	var errs []error
	for dim, m := range w.managers {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(w.managers, dim)
	}
	return errors.Join(errs...)
}

func detectFormat(regionDir string) Format {
	entries, err := os.ReadDir(regionDir)
	if err != nil {
		return FormatMCRegion
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "."+region.ExtAnvil) {
			return FormatAnvil
		}
	}
	return FormatMCRegion
}

func decodeLevel(raw []byte) (nbt.Compound, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return nbt.Unmarshal(data)
}

func encodeLevel(root nbt.Compound) ([]byte, error) {
	data, err := root.Marshal()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// atomicWrite writes data using a temp file + rename.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
