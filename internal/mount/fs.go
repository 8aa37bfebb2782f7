// Package mount exposes a resource tree as a FUSE filesystem.
package mount

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"simfs/internal/logging"
	"simfs/internal/tree"
)

var (
	vfsLogger = logging.GetLogger().WithPrefix("vfs")
)

// Option configures an FS.
type Option func(*FS)

// WithOnChange registers fn to run after every successful mutation, while
// the tree lock is still held. A failing fn turns the request into EIO but
// does not roll the mutation back.
func WithOnChange(fn func(*tree.Tree) error) Option {
	return func(f *FS) {
		f.onChange = fn
	}
}

// WithOwner sets the uid and gid reported for every node.
func WithOwner(uid, gid uint32) Option {
	return func(f *FS) {
		f.uid, f.gid = uid, gid
	}
}

// FS serves a tree over FUSE. Every node method takes mu, so the tree sees
// one caller at a time.
type FS struct {
	tree     *tree.Tree
	onChange func(*tree.Tree) error
	uid      uint32
	gid      uint32
	mtime    time.Time
	conn     *fuse.Conn
	mu       sync.Mutex

	// open counts handles per node. An unlinked file stays in the arena
	// until its last handle is released.
	open map[tree.NodeID]int
}

// New creates a FUSE filesystem over t.
func New(t *tree.Tree, opts ...Option) *FS {
	vfsLogger.Info("Creating new virtual filesystem")

	// Get UID/GID from environment if set
	uid := safeIntToUint32(os.Getuid())
	gid := safeIntToUint32(os.Getgid())

	if puidStr := os.Getenv("PUID"); puidStr != "" {
		if puid, err := strconv.ParseUint(puidStr, 10, 32); err == nil {
			uid = uint32(puid)
			vfsLogger.Debug("Using PUID from environment: %d", uid)
		}
	}
	if pgidStr := os.Getenv("PGID"); pgidStr != "" {
		if pgid, err := strconv.ParseUint(pgidStr, 10, 32); err == nil {
			gid = uint32(pgid)
			vfsLogger.Debug("Using PGID from environment: %d", gid)
		}
	}

	f := &FS{
		tree:  t,
		uid:   uid,
		gid:   gid,
		mtime: time.Now(),
		open:  make(map[tree.NodeID]int),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Root implements the fusefs.FS interface, returning the root directory node.
func (f *FS) Root() (fusefs.Node, error) {
	vfsLogger.Trace("Getting root directory node")
	return &Dir{fs: f, id: f.tree.Root().ID()}, nil
}

// node wraps a tree resource in its FUSE node type.
func (f *FS) node(r tree.Resource) fusefs.Node {
	switch r := r.(type) {
	case *tree.Directory:
		return &Dir{fs: f, id: r.ID()}
	case *tree.File:
		return &File{fs: f, id: r.ID()}
	default:
		return nil
	}
}

// changed runs the change hook. Callers hold mu.
func (f *FS) changed() error {
	if f.onChange == nil {
		return nil
	}
	if err := f.onChange(f.tree); err != nil {
		vfsLogger.Error("Change hook failed: %v", err)
		return fuse.Errno(syscall.EIO)
	}
	return nil
}

// reclaim drops detached nodes that no handle refers to. Callers hold mu.
func (f *FS) reclaim() {
	f.tree.PruneExcept(func(id tree.NodeID) bool { return f.open[id] > 0 })
}

func (f *FS) attr(a *fuse.Attr, id tree.NodeID) {
	a.Inode = uint64(id)
	a.Uid = f.uid
	a.Gid = f.gid
	a.Mtime = f.mtime
	a.Atime = f.mtime
	a.Ctime = f.mtime
}

// Mount attaches the filesystem at mountpoint and serves requests in the
// background until Unmount. fuse.Mount returns once the kernel has accepted
// the mount, so no readiness polling is needed.
func (f *FS) Mount(mountpoint string) (<-chan error, error) {
	vfsLogger.Info("Mounting virtual filesystem")
	vfsLogger.Debug("Mount point: %s", mountpoint)
	vfsLogger.Debug("UID: %d, GID: %d", f.uid, f.gid)

	mountOpts := []fuse.MountOption{
		fuse.FSName("simfs"),
		fuse.Subtype("simfs"),
		fuse.DefaultPermissions(),
	}

	c, err := fuse.Mount(mountpoint, mountOpts...)
	if err != nil {
		return nil, fmt.Errorf("mount failed: %w", err)
	}
	f.conn = c

	done := make(chan error, 1)
	go func() {
		defer close(done)
		if err := fusefs.Serve(c, f); err != nil {
			vfsLogger.Error("FUSE server error: %v", err)
			done <- err
		}
		vfsLogger.Debug("FUSE server stopped")
	}()

	vfsLogger.Info("Filesystem mounted successfully")
	return done, nil
}

// Unmount cleanly unmounts the filesystem.
func (f *FS) Unmount(mountpoint string) error {
	vfsLogger.Info("Unmounting filesystem from: %s", mountpoint)
	if f.conn == nil {
		return nil
	}
	if err := fuse.Unmount(mountpoint); err != nil {
		vfsLogger.Error("Unmount failed: %v", err)
		return err
	}
	err := f.conn.Close()
	f.conn = nil
	vfsLogger.Info("Unmount completed successfully")
	return err
}

// Serve mounts the filesystem and blocks until ctx is cancelled or the
// server stops on its own.
func (f *FS) Serve(ctx context.Context, mountpoint string) error {
	done, err := f.Mount(mountpoint)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		vfsLogger.Info("Shutting down: %v", context.Cause(ctx))
		if err := f.Unmount(mountpoint); err != nil {
			return err
		}
		// drain the server goroutine
		if err, ok := <-done; ok && err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case err, ok := <-done:
		if ok && err != nil {
			return err
		}
		return nil
	}
}

func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	return uint32(n)
}
