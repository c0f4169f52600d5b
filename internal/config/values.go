package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/OCharnyshevich/oregen/pkg/world/block"
)

// BlockRef is a block given by number or by name.
type BlockRef block.ID

// UnmarshalYAML accepts 56, "56" or "diamond_ore".
func (b *BlockRef) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: block must be a number or a name", n.Line)
	}
	id, err := block.Parse(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*b = BlockRef(id)
	return nil
}

// IDList is a list of blocks. As a flag it may be repeated and each value may
// hold several comma-separated blocks.
type IDList []block.ID

// Set implements flag.Value.
func (l *IDList) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		id, err := block.Parse(part)
		if err != nil {
			return err
		}
		*l = append(*l, id)
	}
	return nil
}

func (l *IDList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(*l))
	for i, id := range *l {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ",")
}

// UnmarshalYAML accepts a single block or a sequence of blocks.
func (l *IDList) UnmarshalYAML(n *yaml.Node) error {
	nodes := []*yaml.Node{n}
	if n.Kind == yaml.SequenceNode {
		nodes = n.Content
	}
	out := make(IDList, 0, len(nodes))
	for _, item := range nodes {
		var ref BlockRef
		if err := item.Decode(&ref); err != nil {
			return err
		}
		out = append(out, block.ID(ref))
	}
	*l = out
	return nil
}

// DataList is a list of data values, repeatable and comma-separated as a flag.
type DataList []int

// Set implements flag.Value.
func (l *DataList) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("data value %q: %w", part, err)
		}
		*l = append(*l, v)
	}
	return nil
}

func (l *DataList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(*l))
	for i, v := range *l {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func optInt(p **int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*p = &v
		return nil
	}
}

func optFloat(p **float64) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*p = &v
		return nil
	}
}

func optUint(p **uint64) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		*p = &v
		return nil
	}
}

func optBlock(p **BlockRef) func(string) error {
	return func(s string) error {
		id, err := block.Parse(s)
		if err != nil {
			return err
		}
		ref := BlockRef(id)
		*p = &ref
		return nil
	}
}
