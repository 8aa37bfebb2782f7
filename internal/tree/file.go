package tree

import (
	"bytes"
	"fmt"
)

// File is a handle to a file node.
type File struct {
	tree *Tree
	id   NodeID
}

func (f *File) handle() (*Tree, NodeID) { return f.tree, f.id }

// ID returns the arena identifier of this file.
func (f *File) ID() NodeID { return f.id }

// Name returns the file name.
func (f *File) Name() string { return f.tree.node(f.id).name }

// Kind returns KindFile.
func (f *File) Kind() Kind { return KindFile }

// Parent returns the containing directory, or nil for a detached file.
func (f *File) Parent() *Directory { return f.tree.parentOf(f.id) }

// Path returns the slash path of this file.
func (f *File) Path() string { return f.tree.pathOf(f.id) }

// Serialize encodes this file on its own.
func (f *File) Serialize() ([]byte, error) { return Encode(f) }

// Size returns the content length in bytes.
func (f *File) Size() int { return len(f.tree.node(f.id).contents) }

// Contents returns a copy of the file contents.
func (f *File) Contents() []byte {
	return bytes.Clone(f.tree.node(f.id).contents)
}

// String returns the contents decoded one character per byte.
func (f *File) String() string {
	return DecodeString(f.tree.node(f.id).contents)
}

// Delete removes this file from its parent directory.
func (f *File) Delete() error {
	parent := f.Parent()
	if parent == nil {
		return newError(OpDelete, f.Path(), ErrCannotDelete)
	}
	return parent.Delete(f.Name())
}

// Rename renames this file within its parent directory.
func (f *File) Rename(newName string) error {
	parent := f.Parent()
	if parent == nil {
		return newError(OpRename, f.Path(), ErrCannotDelete)
	}
	return parent.Rename(f.Name(), newName)
}

// Write replaces the contents through the parent directory.
func (f *File) Write(contents []byte) error {
	parent := f.Parent()
	if parent == nil {
		return newError(OpWrite, f.Path(), ErrCannotDelete)
	}
	return parent.Write(f.Name(), contents)
}

// Overwrite replaces the contents in place. Unlike Write it does not go
// through the parent, so it also works on a detached file.
func (f *File) Overwrite(contents []byte) error {
	if len(contents) > MaxContentLen {
		return newError(OpWrite, f.Path(),
			fmt.Errorf("%w: %d bytes, limit is %d", ErrWriteTooLarge, len(contents), MaxContentLen))
	}
	f.tree.node(f.id).contents = bytes.Clone(contents)
	return nil
}

// WriteString replaces the contents with the single-byte encoding of s.
func (f *File) WriteString(s string) error {
	parent := f.Parent()
	if parent == nil {
		return newError(OpWrite, f.Path(), ErrCannotDelete)
	}
	return parent.WriteString(f.Name(), s)
}
