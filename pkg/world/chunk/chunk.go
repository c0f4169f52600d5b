package chunk

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/OCharnyshevich/oregen/pkg/world/block"
)

// ErrNotPowerOfTwo is returned by NewGeometry when a chunk dimension cannot be
// addressed with masks and shifts.
var ErrNotPowerOfTwo = errors.New("chunk dimension is not a power of two")

// Pos identifies a chunk by its X and Z coordinates.
type Pos struct{ X, Z int }

func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Z)
}

// Dimensions is the block extent of one chunk column.
type Dimensions struct {
	XSize, YSize, ZSize int
}

// Geometry is Dimensions with the derived masks and log2 shifts used for
// chunk-local addressing. All chunks of a world share one Geometry.
type Geometry struct {
	Dimensions

	XMask, YMask, ZMask int
	XLog, YLog, ZLog    uint

	MaxID block.ID // largest id the world format can store
}

// NewGeometry validates d and derives masks and shifts.
func NewGeometry(d Dimensions) (Geometry, error) {
	for _, n := range []int{d.XSize, d.YSize, d.ZSize} {
		if n <= 0 || n&(n-1) != 0 {
			return Geometry{}, fmt.Errorf("%w: %dx%dx%d", ErrNotPowerOfTwo, d.XSize, d.YSize, d.ZSize)
		}
	}
	return Geometry{
		Dimensions: d,
		XMask:      d.XSize - 1,
		YMask:      d.YSize - 1,
		ZMask:      d.ZSize - 1,
		XLog:       uint(bits.TrailingZeros(uint(d.XSize))),
		YLog:       uint(bits.TrailingZeros(uint(d.YSize))),
		ZLog:       uint(bits.TrailingZeros(uint(d.ZSize))),
		MaxID:      block.MaxID,
	}, nil
}

// WithMaxID returns g limited to ids up to id.
func (g Geometry) WithMaxID(id block.ID) Geometry {
	g.MaxID = id
	return g
}

// MustGeometry is NewGeometry for compile-time constant dimensions.
func MustGeometry(d Dimensions) Geometry {
	g, err := NewGeometry(d)
	if err != nil {
		panic(err)
	}
	return g
}

// PosOf returns the chunk containing absolute block column (x, z).
func (g Geometry) PosOf(x, z int) Pos {
	return Pos{X: x >> g.XLog, Z: z >> g.ZLog}
}

// Volume is the number of blocks in one chunk.
func (g Geometry) Volume() int {
	return g.XSize * g.YSize * g.ZSize
}

// Chunk holds the block ids and data values of one chunk column.
// Index = y*XSize*ZSize + z*XSize + x, matching section order.
type Chunk struct {
	Pos              Pos
	TerrainPopulated bool

	// Raw carries codec-owned state (unparsed tags, light arrays) from load
	// to save. Nothing outside the codec that produced it reads it.
	Raw any

	geom  Geometry
	ids   []uint16
	data  []uint8
	dirty bool
}

// New returns an all-air chunk.
func New(pos Pos, geom Geometry) *Chunk {
	return &Chunk{
		Pos:  pos,
		geom: geom,
		ids:  make([]uint16, geom.Volume()),
		data: make([]uint8, geom.Volume()),
	}
}

// Geometry returns the chunk's dimensions.
func (c *Chunk) Geometry() Geometry {
	return c.geom
}

// Index returns the storage index of local coordinates. Callers mask first.
func (c *Chunk) Index(x, y, z int) int {
	return (y<<c.geom.ZLog+z)<<c.geom.XLog + x
}

// ID returns the block id at local coordinates.
func (c *Chunk) ID(x, y, z int) block.ID {
	return block.ID(c.ids[c.Index(x, y, z)])
}

// Data returns the data value at local coordinates.
func (c *Chunk) Data(x, y, z int) int {
	return int(c.data[c.Index(x, y, z)])
}

// SetID sets the block id at local coordinates, leaving data untouched.
func (c *Chunk) SetID(x, y, z int, id block.ID) {
	i := c.Index(x, y, z)
	if c.ids[i] == uint16(id) {
		return
	}
	c.ids[i] = uint16(id)
	c.dirty = true
}

// SetData sets the data value (low 4 bits) at local coordinates.
func (c *Chunk) SetData(x, y, z int, v int) {
	i := c.Index(x, y, z)
	if c.data[i] == uint8(v&0xF) {
		return
	}
	c.data[i] = uint8(v & 0xF)
	c.dirty = true
}

// SetBlock sets id and data at local coordinates.
func (c *Chunk) SetBlock(x, y, z int, id block.ID, v int) {
	c.SetID(x, y, z, id)
	c.SetData(x, y, z, v)
}

// IDAt and DataAt address the raw storage index directly; codecs use them.
func (c *Chunk) IDAt(i int) block.ID { return block.ID(c.ids[i]) }

// DataAt returns the data value at storage index i.
func (c *Chunk) DataAt(i int) int { return int(c.data[i]) }

// Load fills storage index i without marking the chunk dirty.
func (c *Chunk) Load(i int, id block.ID, v int) {
	c.ids[i] = uint16(id)
	c.data[i] = uint8(v & 0xF)
}

// Contains reports whether any block in the chunk has the given id.
func (c *Chunk) Contains(id block.ID) bool {
	for _, v := range c.ids {
		if v == uint16(id) {
			return true
		}
	}
	return false
}

// Dirty reports whether the chunk was modified since it was loaded or last
// marked clean.
func (c *Chunk) Dirty() bool {
	return c.dirty
}

// MarkClean resets the dirty flag after a save.
func (c *Chunk) MarkClean() {
	c.dirty = false
}

// HeightMap returns, for each x,z column in z*XSize+x order, one above the
// highest non-air block.
func (c *Chunk) HeightMap() []int {
	hm := make([]int, c.geom.XSize*c.geom.ZSize)
	for z := 0; z < c.geom.ZSize; z++ {
		for x := 0; x < c.geom.XSize; x++ {
			for y := c.geom.YSize - 1; y >= 0; y-- {
				if c.ids[c.Index(x, y, z)] != 0 {
					hm[z*c.geom.XSize+x] = y + 1
					break
				}
			}
		}
	}
	return hm
}
