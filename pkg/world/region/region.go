package region

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	mcregion "github.com/Tnze/go-mc/save/region"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Chunk payload compression types, stored as the first byte of each sector run.
const (
	CompressionGzip = 1
	CompressionZlib = 2
	CompressionNone = 3
)

// Size is the number of chunks along each axis of a region.
const Size = 32

// Region file extensions.
const (
	ExtAnvil    = "mca"
	ExtMCRegion = "mcr"
)

// ErrNotFound is returned when a region has no sector for a chunk.
var ErrNotFound = errors.New("chunk not present in region")

// Pos identifies a region file.
type Pos struct{ X, Z int }

// Locate returns the region containing chunk (cx, cz) and the chunk's index
// inside that region.
func Locate(cx, cz int) (Pos, int, int) {
	return Pos{X: cx >> 5, Z: cz >> 5}, cx & (Size - 1), cz & (Size - 1)
}

// FileName returns the conventional file name of a region.
func FileName(p Pos, ext string) string {
	return fmt.Sprintf("r.%d.%d.%s", p.X, p.Z, ext)
}

// ParseFileName is the inverse of FileName.
func ParseFileName(name, ext string) (Pos, bool) {
	parts := strings.Split(name, ".")
	if len(parts) != 4 || parts[0] != "r" || parts[3] != ext {
		return Pos{}, false
	}
	x, err := strconv.Atoi(parts[1])
	if err != nil {
		return Pos{}, false
	}
	z, err := strconv.Atoi(parts[2])
	if err != nil {
		return Pos{}, false
	}
	return Pos{X: x, Z: z}, true
}

// File is an open region file.
type File struct {
	path string
	r    *mcregion.Region
}

// Open opens an existing region file, or creates an empty one when create is
// set and the file does not exist.
func Open(path string, create bool) (*File, error) {
	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		r, err := mcregion.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open region %s: %w", path, err)
		}
		return &File{path: path, r: r}, nil
	case os.IsNotExist(statErr) && create:
		r, err := mcregion.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create region %s: %w", path, err)
		}
		return &File{path: path, r: r}, nil
	default:
		return nil, fmt.Errorf("stat region %s: %w", path, statErr)
	}
}

// Exists reports whether the region holds data for local chunk (x, z).
func (f *File) Exists(x, z int) bool {
	return f.r.ExistSector(x, z)
}

// Read returns the uncompressed NBT payload of local chunk (x, z).
func (f *File) Read(x, z int) ([]byte, error) {
	if !f.r.ExistSector(x, z) {
		return nil, ErrNotFound
	}
	data, err := f.r.ReadSector(x, z)
	if err != nil {
		return nil, fmt.Errorf("read sector (%d,%d) of %s: %w", x, z, f.path, err)
	}
	return Decompress(data)
}

// Write compresses an NBT payload with zlib and stores it for local chunk (x, z).
func (f *File) Write(x, z int, payload []byte) error {
	data, err := Compress(payload)
	if err != nil {
		return fmt.Errorf("compress chunk (%d,%d): %w", x, z, err)
	}
	if err := f.r.WriteSector(x, z, data); err != nil {
		return fmt.Errorf("write sector (%d,%d) of %s: %w", x, z, f.path, err)
	}
	return nil
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.r.Close()
}

// Compress encodes payload in sector form: one compression byte followed by
// the zlib stream.
func Compress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(CompressionZlib)
	zw, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("create zlib writer: %w", err)
	}
	if _, err := zw.Write(payload); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zlib writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress and also accepts gzip and uncompressed sectors.
func Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty sector")
	}

	body := bytes.NewReader(data[1:])
	var r io.Reader
	switch data[0] {
	case CompressionGzip:
		gr, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer gr.Close()
		r = gr
	case CompressionZlib:
		zr, err := zlib.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("open zlib stream: %w", err)
		}
		defer zr.Close()
		r = zr
	case CompressionNone:
		r = body
	default:
		return nil, fmt.Errorf("unknown compression type %d", data[0])
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return out, nil
}
