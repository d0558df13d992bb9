// Package dtree is the descriptor source consumed by driver probes: an
// ordered set of named hardware-description nodes with typed property
// lookup. Node keys follow the "<driver>@<id>" convention, e.g.
// "cs-armv7-timer@0"; the part before '@' is the name drivers match on.
//
// Trees are loaded from YAML or JSON (JSON being a subset of YAML), so the
// same loader accepts xboot-style JSON descriptor files.
package dtree

import (
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"boardcore/errcode"
)

// Node is the query interface probes see.
type Node interface {
	// Path is the full node key, e.g. "sensor-aht20@1".
	Path() string
	// ReadName returns the key up to the first '@'.
	ReadName() string
	// ReadID returns the integer after '@', or def when absent or malformed.
	ReadID(def int) int
	ReadString(key, def string) string
	ReadInt(key string, def int64) int64
	ReadBool(key string, def bool) bool
}

// MapNode is a Node backed by a property map.
type MapNode struct {
	path  string
	props map[string]any
}

// NewNode builds a node from a key and properties. props may be nil.
func NewNode(path string, props map[string]any) *MapNode {
	if props == nil {
		props = map[string]any{}
	}
	return &MapNode{path: path, props: props}
}

func (n *MapNode) Path() string { return n.path }

func (n *MapNode) ReadName() string {
	if i := strings.IndexByte(n.path, '@'); i >= 0 {
		return n.path[:i]
	}
	return n.path
}

func (n *MapNode) ReadID(def int) int {
	i := strings.IndexByte(n.path, '@')
	if i < 0 {
		return def
	}
	v, err := strconv.Atoi(n.path[i+1:])
	if err != nil || v < 0 {
		return def
	}
	return v
}

func (n *MapNode) ReadString(key, def string) string {
	if s, ok := n.props[key].(string); ok {
		return s
	}
	return def
}

// ReadInt accepts integers, integral floats and prefixed literal strings
// ("0x40000000"). Anything else yields def.
func (n *MapNode) ReadInt(key string, def int64) int64 {
	switch v := n.props[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case uint64:
		if v > math.MaxInt64 {
			return def
		}
		return int64(v)
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return def
		}
		return int64(v)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 0, 64)
		if err != nil {
			return def
		}
		return i
	}
	return def
}

func (n *MapNode) ReadBool(key string, def bool) bool {
	switch v := n.props[key].(type) {
	case bool:
		return v
	case string:
		switch v {
		case "true", "on", "okay":
			return true
		case "false", "off", "disabled":
			return false
		}
	}
	return def
}

// Enabled reports whether the node's "status" property allows probing.
// Nodes without a status are enabled.
func Enabled(n Node) bool {
	return n.ReadString("status", "okay") != "disabled"
}

// Tree is an ordered collection of nodes.
type Tree struct {
	nodes []Node
	index map[string]Node
}

// New builds a tree from nodes in order. Duplicate paths are rejected.
func New(nodes ...Node) (*Tree, error) {
	t := &Tree{index: make(map[string]Node, len(nodes))}
	for _, n := range nodes {
		if err := t.add(n); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tree) add(n Node) error {
	if n == nil || n.Path() == "" {
		return errcode.New(errcode.InvalidParams, "dtree.add", "empty node path")
	}
	if _, dup := t.index[n.Path()]; dup {
		return errcode.New(errcode.DuplicateName, "dtree.add", n.Path())
	}
	t.nodes = append(t.nodes, n)
	t.index[n.Path()] = n
	return nil
}

// Nodes returns the nodes in document order.
func (t *Tree) Nodes() []Node {
	if t == nil {
		return nil
	}
	return append([]Node(nil), t.nodes...)
}

func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Lookup finds a node by full path.
func (t *Tree) Lookup(path string) (Node, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.index[path]
	return n, ok
}

// Parse decodes a YAML or JSON document whose top level maps node keys to
// property maps. Document order is preserved.
func Parse(data []byte) (*Tree, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errcode.Wrap(errcode.InvalidParams, "dtree.Parse", err)
	}
	t := &Tree{index: map[string]Node{}}
	if doc.Kind == 0 {
		return t, nil // empty document
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, errcode.New(errcode.InvalidParams, "dtree.Parse", "top level must be a mapping")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		props := map[string]any{}
		if !(val.Kind == yaml.ScalarNode && val.Tag == "!!null") {
			if err := val.Decode(&props); err != nil {
				return nil, errcode.Wrap(errcode.InvalidParams, "dtree.Parse "+key.Value, err)
			}
		}
		if err := t.add(NewNode(key.Value, props)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Load reads and parses a descriptor file.
func Load(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errcode.Wrap(errcode.NotFound, "dtree.Load", err)
	}
	return Parse(data)
}
