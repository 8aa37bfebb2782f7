// Package tree implements the in-memory resource tree and its binary codec.
//
// Resources live in an arena owned by a Tree. A *File or *Directory is a
// lightweight handle (tree, id); parent links are stored as node IDs and
// ownership runs only from a directory to its children. Removing a resource
// detaches it: the node stays in the arena with no parent until Prune is
// called.
package tree

import (
	"bytes"
	"fmt"
	"strings"

	"simfs/internal/logging"
)

var (
	treeLogger = logging.GetLogger().WithPrefix("tree")
)

// NodeID identifies a node within its Tree. Zero is never a valid ID.
type NodeID uint32

// Kind distinguishes the two resource variants.
type Kind uint8

const (
	KindFile      Kind = 0x01
	KindDirectory Kind = 0x02
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Resource is either a *File or a *Directory.
type Resource interface {
	ID() NodeID
	Name() string
	Kind() Kind
	Parent() *Directory
	Path() string
	Serialize() ([]byte, error)

	handle() (*Tree, NodeID)
}

type node struct {
	kind     Kind
	name     string
	parent   NodeID
	contents []byte   // files only
	children []NodeID // directories only
}

// Tree owns every node reachable from its root plus any detached nodes.
type Tree struct {
	nodes map[NodeID]*node
	next  NodeID
	root  NodeID
}

// New returns a tree holding only an unnamed root directory.
func New() *Tree {
	t := &Tree{nodes: make(map[NodeID]*node)}
	t.root = t.alloc(&node{kind: KindDirectory})
	return t
}

// Root returns the root directory.
func (t *Tree) Root() *Directory {
	return &Directory{tree: t, id: t.root}
}

// Len returns the number of nodes in the arena, detached ones included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// NewFile constructs a detached file. Use Directory.AddFile to adopt it.
func (t *Tree) NewFile(name string, contents []byte) (*File, error) {
	if err := ValidateName(name); err != nil {
		return nil, newError(OpCreate, name, err)
	}
	if len(contents) > MaxContentLen {
		return nil, newError(OpCreate, name, fmt.Errorf("%w: %d bytes", ErrWriteTooLarge, len(contents)))
	}
	id := t.alloc(&node{kind: KindFile, name: name, contents: bytes.Clone(contents)})
	return &File{tree: t, id: id}, nil
}

// Resource returns a handle for id, or nil if the arena has no such node.
func (t *Tree) Resource(id NodeID) Resource {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	return t.wrap(id, n)
}

// Prune removes every node that is not reachable from the root and returns
// how many were dropped. Handles to pruned nodes must not be used afterwards.
func (t *Tree) Prune() int {
	return t.PruneExcept(nil)
}

// PruneExcept is Prune, but detached nodes for which keep returns true stay
// in the arena together with their descendants.
func (t *Tree) PruneExcept(keep func(NodeID) bool) int {
	reachable := make(map[NodeID]bool, len(t.nodes))
	stack := []NodeID{t.root}
	if keep != nil {
		for id := range t.nodes {
			if keep(id) {
				stack = append(stack, id)
			}
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable[id] {
			continue
		}
		reachable[id] = true
		stack = append(stack, t.nodes[id].children...)
	}

	dropped := 0
	for id := range t.nodes {
		if !reachable[id] {
			delete(t.nodes, id)
			dropped++
		}
	}
	if dropped > 0 {
		treeLogger.Debug("Pruned %d detached nodes", dropped)
	}
	return dropped
}

func (t *Tree) alloc(n *node) NodeID {
	t.next++
	t.nodes[t.next] = n
	return t.next
}

func (t *Tree) node(id NodeID) *node {
	n, ok := t.nodes[id]
	if !ok {
		panic(fmt.Sprintf("tree: node %d is not in the arena", id))
	}
	return n
}

func (t *Tree) wrap(id NodeID, n *node) Resource {
	switch n.kind {
	case KindFile:
		return &File{tree: t, id: id}
	case KindDirectory:
		return &Directory{tree: t, id: id}
	default:
		panic(fmt.Sprintf("tree: node %d has kind %v", id, n.kind))
	}
}

func (t *Tree) parentOf(id NodeID) *Directory {
	p := t.node(id).parent
	if p == 0 {
		return nil
	}
	return &Directory{tree: t, id: p}
}

// pathOf builds the slash path of id. Rooted nodes start with "/"; detached
// subtrees are reported relative to their topmost ancestor.
func (t *Tree) pathOf(id NodeID) string {
	if id == t.root {
		return "/"
	}
	var parts []string
	cur := id
	for cur != 0 && cur != t.root {
		n := t.node(cur)
		parts = append(parts, n.name)
		cur = n.parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	joined := strings.Join(parts, "/")
	if cur == t.root {
		return "/" + joined
	}
	return joined
}

// clone copies the subtree at id from src into t as a detached subtree.
func (t *Tree) clone(src *Tree, id NodeID) NodeID {
	n := src.node(id)
	cp := &node{kind: n.kind, name: n.name, contents: bytes.Clone(n.contents)}
	newID := t.alloc(cp)
	for _, child := range n.children {
		childID := t.clone(src, child)
		t.node(childID).parent = newID
		cp.children = append(cp.children, childID)
	}
	return newID
}

// Equal reports whether a and b have the same kind, name, contents and
// children in the same order. Parent links and node IDs are ignored.
func Equal(a, b Resource) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	at, aid := a.handle()
	bt, bid := b.handle()
	return equalNodes(at, aid, bt, bid)
}

func equalNodes(at *Tree, aid NodeID, bt *Tree, bid NodeID) bool {
	an, bn := at.node(aid), bt.node(bid)
	if an.kind != bn.kind || an.name != bn.name {
		return false
	}
	if an.kind == KindFile {
		return bytes.Equal(an.contents, bn.contents)
	}
	if len(an.children) != len(bn.children) {
		return false
	}
	for i := range an.children {
		if !equalNodes(at, an.children[i], bt, bn.children[i]) {
			return false
		}
	}
	return true
}
