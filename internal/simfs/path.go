package simfs

import (
	"path"
	"strings"

	"simfs/internal/logging"
)

var (
	pathLogger = logging.GetLogger().WithPrefix("path")
)

// VirtualPath is a normalized slash path inside a tree. It always starts
// with "/" and never contains "." or ".." elements.
type VirtualPath struct {
	path string
}

// NewVirtualPath cleans p and makes it absolute. Leading ".." elements are
// dropped, so a path can never climb above the root.
func NewVirtualPath(p string) *VirtualPath {
	cleaned := path.Clean("/" + p)
	pathLogger.Trace("Creating new virtual path: %q -> %q", p, cleaned)
	return &VirtualPath{path: cleaned}
}

// String returns the string representation of the path
func (vp *VirtualPath) String() string {
	return vp.path
}

// Parent returns the containing directory path. The root is its own parent.
func (vp *VirtualPath) Parent() *VirtualPath {
	return NewVirtualPath(path.Dir(vp.path))
}

// Base returns the last element of the path, or "/" for the root.
func (vp *VirtualPath) Base() string {
	return path.Base(vp.path)
}

// IsRoot returns true if this is the root virtual path "/"
func (vp *VirtualPath) IsRoot() bool {
	return vp.path == "/"
}

// Join appends elems and normalizes the result.
func (vp *VirtualPath) Join(elems ...string) *VirtualPath {
	return NewVirtualPath(path.Join(append([]string{vp.path}, elems...)...))
}

// Segments returns the path elements below the root. The root has none.
func (vp *VirtualPath) Segments() []string {
	if vp.IsRoot() {
		return nil
	}
	return strings.Split(strings.TrimPrefix(vp.path, "/"), "/")
}
