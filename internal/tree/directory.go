package tree

import (
	"bytes"
	"fmt"
)

// Directory is a handle to a directory node.
type Directory struct {
	tree *Tree
	id   NodeID
}

func (d *Directory) handle() (*Tree, NodeID) { return d.tree, d.id }

// ID returns the arena identifier of this directory.
func (d *Directory) ID() NodeID { return d.id }

// Name returns the directory name. The root's name is empty.
func (d *Directory) Name() string { return d.tree.node(d.id).name }

// Kind returns KindDirectory.
func (d *Directory) Kind() Kind { return KindDirectory }

// Parent returns the containing directory, or nil for the root and for
// detached directories.
func (d *Directory) Parent() *Directory { return d.tree.parentOf(d.id) }

// Path returns the slash path of this directory.
func (d *Directory) Path() string { return d.tree.pathOf(d.id) }

// Tree returns the arena this directory belongs to.
func (d *Directory) Tree() *Tree { return d.tree }

// IsRoot reports whether d is its tree's root.
func (d *Directory) IsRoot() bool { return d.id == d.tree.root }

// Serialize encodes this directory and everything beneath it.
func (d *Directory) Serialize() ([]byte, error) { return Encode(d) }

// Len returns the number of direct children.
func (d *Directory) Len() int { return len(d.tree.node(d.id).children) }

// Children returns the direct children in insertion order.
func (d *Directory) Children() []Resource {
	ids := d.tree.node(d.id).children
	out := make([]Resource, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.tree.wrap(id, d.tree.node(id)))
	}
	return out
}

// Get returns the child called name, or nil if there is none.
func (d *Directory) Get(name string) Resource {
	id, ok := d.lookup(name)
	if !ok {
		return nil
	}
	return d.tree.wrap(id, d.tree.node(id))
}

// GetAs returns the child called name if it has the expected kind. It
// returns nil, nil when the child is absent and ErrKindMismatch when it
// exists with the other kind.
func (d *Directory) GetAs(name string, kind Kind) (Resource, error) {
	r := d.Get(name)
	if r == nil {
		return nil, nil
	}
	if r.Kind() != kind {
		return nil, newError(OpGet, r.Path(),
			fmt.Errorf("%w: want %v, found %v", ErrKindMismatch, kind, r.Kind()))
	}
	return r, nil
}

// GetFile is GetAs(name, KindFile) with a typed result.
func (d *Directory) GetFile(name string) (*File, error) {
	r, err := d.GetAs(name, KindFile)
	if r == nil {
		return nil, err
	}
	return r.(*File), nil
}

// GetDirectory is GetAs(name, KindDirectory) with a typed result.
func (d *Directory) GetDirectory(name string) (*Directory, error) {
	r, err := d.GetAs(name, KindDirectory)
	if r == nil {
		return nil, err
	}
	return r.(*Directory), nil
}

// CreateFile creates a file called name holding contents.
func (d *Directory) CreateFile(name string, contents []byte) (*File, error) {
	if err := d.checkNewChild(OpCreate, name); err != nil {
		return nil, err
	}
	if len(contents) > MaxContentLen {
		return nil, newError(OpCreate, d.childPath(name),
			fmt.Errorf("%w: %d bytes, limit is %d", ErrWriteTooLarge, len(contents), MaxContentLen))
	}

	id := d.tree.alloc(&node{kind: KindFile, name: name, parent: d.id, contents: bytes.Clone(contents)})
	d.appendChild(id)
	treeLogger.Trace("Created file %q (%d bytes)", d.childPath(name), len(contents))
	return &File{tree: d.tree, id: id}, nil
}

// CreateFileString creates a file whose contents are the single-byte
// encoding of s.
func (d *Directory) CreateFileString(name, s string) (*File, error) {
	b, err := EncodeString(s)
	if err != nil {
		return nil, newError(OpCreate, d.childPath(name), err)
	}
	return d.CreateFile(name, b)
}

// CreateDirectory creates an empty directory called name.
func (d *Directory) CreateDirectory(name string) (*Directory, error) {
	if err := d.checkNewChild(OpCreate, name); err != nil {
		return nil, err
	}

	id := d.tree.alloc(&node{kind: KindDirectory, name: name, parent: d.id})
	d.appendChild(id)
	treeLogger.Trace("Created directory %q", d.childPath(name))
	return &Directory{tree: d.tree, id: id}, nil
}

// AddFile inserts an already constructed file. With reparent set, the file
// is removed from any previous parent and its parent link points here.
// Without it, a file that already has a parent, or that belongs to another
// Tree, is copied and the copy is inserted; a detached file is listed as is
// and keeps no parent link. The returned handle refers to the inserted node.
func (d *Directory) AddFile(f *File, reparent bool) (*File, error) {
	if f == nil {
		return nil, newError(OpAdd, d.Path(), fmt.Errorf("%w: nil file", ErrNotFound))
	}
	name := f.Name()
	if err := d.checkNewChild(OpAdd, name); err != nil {
		return nil, err
	}

	id := f.id
	copied := false
	switch {
	case f.tree != d.tree:
		id, copied = d.tree.clone(f.tree, f.id), true
	case !reparent && f.tree.node(f.id).parent != 0:
		// a node is listed by exactly one directory
		id, copied = d.tree.clone(d.tree, f.id), true
	}

	n := d.tree.node(id)
	if reparent || copied {
		if n.parent != 0 {
			d.tree.removeChild(n.parent, id)
		}
		n.parent = d.id
	}
	d.appendChild(id)
	treeLogger.Trace("Added file %q", d.childPath(name))
	return &File{tree: d.tree, id: id}, nil
}

// Delete removes the child called name and clears its parent link.
func (d *Directory) Delete(name string) error {
	id, ok := d.lookup(name)
	if !ok {
		return newError(OpDelete, d.childPath(name), ErrNotFound)
	}
	d.tree.removeChild(d.id, id)
	if n := d.tree.node(id); n.parent == d.id {
		n.parent = 0
	}
	treeLogger.Trace("Deleted %q", d.childPath(name))
	return nil
}

// DeleteSelf removes this directory from its parent.
func (d *Directory) DeleteSelf() error {
	parent := d.Parent()
	if parent == nil {
		return newError(OpDelete, d.Path(), ErrCannotDelete)
	}
	return parent.Delete(d.Name())
}

// Rename changes the name of the child called name to newName.
func (d *Directory) Rename(name, newName string) error {
	path := d.childPath(name)
	if err := ValidateName(newName); err != nil {
		return newError(OpRename, path, err)
	}
	id, ok := d.lookup(name)
	if !ok {
		return newError(OpRename, path, ErrNotFound)
	}
	if name == newName {
		return nil
	}
	if _, taken := d.lookup(newName); taken {
		return newError(OpRename, d.childPath(newName), ErrAlreadyExists)
	}
	d.tree.node(id).name = newName
	treeLogger.Trace("Renamed %q to %q", path, newName)
	return nil
}

// RenameSelf renames this directory within its parent.
func (d *Directory) RenameSelf(newName string) error {
	parent := d.Parent()
	if parent == nil {
		return newError(OpRename, d.Path(), ErrCannotDelete)
	}
	return parent.Rename(d.Name(), newName)
}

// Write replaces the contents of the child file called name.
func (d *Directory) Write(name string, contents []byte) error {
	path := d.childPath(name)
	f, err := d.GetFile(name)
	if err != nil {
		return newError(OpWrite, path, unwrap(err))
	}
	if f == nil {
		return newError(OpWrite, path, ErrNotFound)
	}
	if len(contents) > MaxContentLen {
		return newError(OpWrite, path,
			fmt.Errorf("%w: %d bytes, limit is %d", ErrWriteTooLarge, len(contents), MaxContentLen))
	}
	d.tree.node(f.id).contents = bytes.Clone(contents)
	treeLogger.Trace("Wrote %d bytes to %q", len(contents), path)
	return nil
}

// WriteString replaces the contents of the child file called name with the
// single-byte encoding of s.
func (d *Directory) WriteString(name, s string) error {
	b, err := EncodeString(s)
	if err != nil {
		return newError(OpWrite, d.childPath(name), err)
	}
	return d.Write(name, b)
}

// WalkFunc is called by Walk for every resource beneath a directory.
type WalkFunc func(path string, r Resource) error

// Walk visits every resource beneath d depth-first, children in insertion
// order. The directory itself is not visited. A non-nil error from fn stops
// the walk and is returned.
func (d *Directory) Walk(fn WalkFunc) error {
	for _, child := range d.Children() {
		if err := fn(child.Path(), child); err != nil {
			return err
		}
		if sub, ok := child.(*Directory); ok {
			if err := sub.Walk(fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Directory) checkNewChild(op, name string) error {
	if err := ValidateName(name); err != nil {
		return newError(op, d.childPath(name), err)
	}
	if _, taken := d.lookup(name); taken {
		return newError(op, d.childPath(name), ErrAlreadyExists)
	}
	return nil
}

func (d *Directory) lookup(name string) (NodeID, bool) {
	for _, id := range d.tree.node(d.id).children {
		if d.tree.node(id).name == name {
			return id, true
		}
	}
	return 0, false
}

func (d *Directory) appendChild(id NodeID) {
	n := d.tree.node(d.id)
	n.children = append(n.children, id)
}

func (d *Directory) childPath(name string) string {
	p := d.Path()
	if p == "/" {
		return "/" + name
	}
	return p + "/" + name
}

func (t *Tree) removeChild(parent, child NodeID) {
	n := t.node(parent)
	for i, id := range n.children {
		if id == child {
			n.children = append(n.children[:i:i], n.children[i+1:]...)
			return
		}
	}
}

// unwrap strips a *Error so it can be re-wrapped with a different Op.
func unwrap(err error) error {
	if e, ok := err.(*Error); ok {
		return e.Err
	}
	return err
}
