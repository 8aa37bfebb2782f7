// Package simfs is the entry point to a resource tree: it tracks a current
// directory, resolves slash paths and converts the tree to and from its
// encoded and compressed forms.
package simfs

import (
	"fmt"
	"path"

	"simfs/internal/compress"
	"simfs/internal/logging"
	"simfs/internal/tree"
)

var (
	fsLogger = logging.GetLogger().WithPrefix("simfs")
)

// Compressor turns an encoded stream into a text token and back. The
// round trip must be exact.
type Compressor interface {
	Compress(b []byte) (string, error)
	Decompress(token string) ([]byte, error)
}

// Option configures an FS.
type Option func(*FS)

// WithCompressor replaces the default zstd compressor.
func WithCompressor(c Compressor) Option {
	return func(fs *FS) {
		fs.compressor = c
	}
}

// FS wraps a tree with a working directory.
type FS struct {
	tree       *tree.Tree
	cwd        *VirtualPath
	compressor Compressor
}

// New returns an FS over an empty tree.
func New(opts ...Option) *FS {
	return FromTree(tree.New(), opts...)
}

// FromTree returns an FS over t with the working directory at the root.
func FromTree(t *tree.Tree, opts ...Option) *FS {
	fs := &FS{
		tree:       t,
		cwd:        NewVirtualPath("/"),
		compressor: &compress.Zstd{},
	}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// FromBytes decodes an uncompressed stream.
func FromBytes(b []byte, opts ...Option) (*FS, error) {
	t, err := tree.Decode(b)
	if err != nil {
		return nil, err
	}
	fsLogger.Debug("Loaded tree of %d nodes from %d bytes", t.Len(), len(b))
	return FromTree(t, opts...), nil
}

// FromToken decompresses token with the configured compressor and decodes
// the result.
func FromToken(token string, opts ...Option) (*FS, error) {
	fs := New(opts...)
	b, err := fs.compressor.Decompress(token)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	t, err := tree.Decode(b)
	if err != nil {
		return nil, err
	}
	fs.tree = t
	return fs, nil
}

// Tree returns the underlying arena.
func (fs *FS) Tree() *tree.Tree { return fs.tree }

// Root returns the root directory.
func (fs *FS) Root() *tree.Directory { return fs.tree.Root() }

// CwdPath returns the normalized working directory path.
func (fs *FS) CwdPath() string { return fs.cwd.String() }

// Cwd resolves the working directory. If the directory was removed since
// the last cd, the working directory falls back to the root.
func (fs *FS) Cwd() *tree.Directory {
	if d, ok := fs.Resolve(fs.cwd.String()).(*tree.Directory); ok {
		return d
	}
	fsLogger.Warn("Working directory %q no longer exists, returning to /", fs.cwd)
	fs.cwd = NewVirtualPath("/")
	return fs.Root()
}

// Cd joins each segment onto the working directory in turn. It returns
// false and leaves the working directory unchanged if the target is
// missing or is a file.
func (fs *FS) Cd(segments []string) bool {
	return fs.moveTo(fs.cwd.Join(segments...))
}

// Chdir changes to p. Absolute paths start from the root, anything else
// from the working directory.
func (fs *FS) Chdir(p string) bool {
	if path.IsAbs(p) {
		return fs.moveTo(NewVirtualPath(p))
	}
	return fs.moveTo(fs.cwd.Join(p))
}

func (fs *FS) moveTo(target *VirtualPath) bool {
	if _, ok := fs.Resolve(target.String()).(*tree.Directory); !ok {
		fsLogger.Debug("cd to %q refused: not a directory", target)
		return false
	}
	fsLogger.Trace("cd %q -> %q", fs.cwd, target)
	fs.cwd = target
	return true
}

// Resolve walks p from the root. It returns nil when a component is
// missing. A file reached before the path is exhausted is returned as is
// and the remaining components are ignored.
func (fs *FS) Resolve(p string) tree.Resource {
	vp := NewVirtualPath(p)
	dir := fs.Root()
	for _, name := range vp.Segments() {
		switch r := dir.Get(name).(type) {
		case nil:
			return nil
		case *tree.File:
			return r
		case *tree.Directory:
			dir = r
		}
	}
	return dir
}

// Lookup is Resolve with relative paths taken from the working directory.
func (fs *FS) Lookup(p string) tree.Resource {
	if path.IsAbs(p) {
		return fs.Resolve(p)
	}
	return fs.Resolve(fs.cwd.Join(p).String())
}

// Serialize encodes the whole tree.
func (fs *FS) Serialize() ([]byte, error) {
	return tree.Encode(fs.Root())
}

// SerializeToken encodes the whole tree and compresses the result.
func (fs *FS) SerializeToken() (string, error) {
	b, err := fs.Serialize()
	if err != nil {
		return "", err
	}
	token, err := fs.compressor.Compress(b)
	if err != nil {
		return "", fmt.Errorf("compress snapshot: %w", err)
	}
	return token, nil
}
