// Package nbt keeps chunk and level NBT trees mostly opaque: tags are decoded
// only when a caller asks for them, and everything else is written back
// byte-for-byte.
package nbt

import (
	"errors"
	"fmt"

	mcnbt "github.com/Tnze/go-mc/nbt"
)

// NBT tag type IDs used by the codecs.
const (
	TagByte      byte = 1
	TagInt       byte = 3
	TagByteArray byte = 7
	TagList      byte = 9
	TagCompound  byte = 10
	TagIntArray  byte = 11
)

// ErrMissingTag is returned by Get when a compound has no tag of that name.
var ErrMissingTag = errors.New("missing tag")

// Compound is a decoded compound tag whose children stay in raw form.
type Compound map[string]mcnbt.RawMessage

// Unmarshal decodes a root compound.
func Unmarshal(data []byte) (Compound, error) {
	c := make(Compound)
	if err := mcnbt.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode nbt: %w", err)
	}
	return c, nil
}

// Marshal encodes c as an unnamed root compound.
func (c Compound) Marshal() ([]byte, error) {
	data, err := mcnbt.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode nbt: %w", err)
	}
	return data, nil
}

// Has reports whether a child tag exists.
func (c Compound) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// Get decodes the named child into v, which must be a pointer.
func (c Compound) Get(name string, v any) error {
	raw, ok := c[name]
	if !ok {
		return fmt.Errorf("%w %q", ErrMissingTag, name)
	}
	if err := raw.Unmarshal(v); err != nil {
		return fmt.Errorf("decode tag %q: %w", name, err)
	}
	return nil
}

// Compound decodes the named child compound.
func (c Compound) Compound(name string) (Compound, error) {
	sub := make(Compound)
	if err := c.Get(name, &sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Set encodes v and stores it as the named child.
func (c Compound) Set(name string, v any) error {
	raw, err := Raw(v)
	if err != nil {
		return fmt.Errorf("encode tag %q: %w", name, err)
	}
	c[name] = raw
	return nil
}

// Raw encodes v into a RawMessage.
func Raw(v any) (mcnbt.RawMessage, error) {
	data, err := mcnbt.Marshal(v)
	if err != nil {
		return mcnbt.RawMessage{}, err
	}
	// Marshal emits a named tag: type byte, empty name (uint16 0), payload.
	if len(data) < 3 {
		return mcnbt.RawMessage{}, fmt.Errorf("short encoding of %T", v)
	}
	return mcnbt.RawMessage{Type: data[0], Data: data[3:]}, nil
}

// Nibble returns the 4-bit value at index in a nibble array.
func Nibble(arr []byte, index int) byte {
	if index/2 >= len(arr) {
		return 0
	}
	if index%2 == 0 {
		return arr[index/2] & 0x0F
	}
	return arr[index/2] >> 4
}

// SetNibble sets a 4-bit value at the given block index in a nibble array.
func SetNibble(arr []byte, index int, val byte) {
	byteIdx := index / 2
	if index%2 == 0 {
		arr[byteIdx] = (arr[byteIdx] & 0xF0) | (val & 0x0F)
	} else {
		arr[byteIdx] = (arr[byteIdx] & 0x0F) | ((val & 0x0F) << 4)
	}
}

// Filled returns a byte array of length n with every byte set to v.
func Filled(n int, v byte) []byte {
	arr := make([]byte, n)
	for i := range arr {
		arr[i] = v
	}
	return arr
}
