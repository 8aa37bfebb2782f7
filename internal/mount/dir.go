package mount

import (
	"context"
	"os"
	"syscall"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"simfs/internal/logging"
	"simfs/internal/tree"
)

var (
	dirLogger = logging.GetLogger().WithPrefix("dir")
)

// Dir is the FUSE node for a tree directory.
type Dir struct {
	fs *FS
	id tree.NodeID
}

// dir returns the tree handle. Callers hold fs.mu.
func (d *Dir) dir() (*tree.Directory, error) {
	dir, ok := d.fs.tree.Resource(d.id).(*tree.Directory)
	if !ok {
		return nil, fuse.Errno(syscall.ENOENT)
	}
	return dir, nil
}

// Attr implements the Node interface, returning directory attributes.
func (d *Dir) Attr(_ context.Context, a *fuse.Attr) error {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	dir, err := d.dir()
	if err != nil {
		return err
	}
	dirLogger.Trace("Getting attributes for directory: %q", dir.Path())

	d.fs.attr(a, d.id)
	a.Mode = os.ModeDir | 0755
	a.Nlink = 2
	return nil
}

// Lookup implements the NodeStringLookuper interface, finding a child node.
func (d *Dir) Lookup(_ context.Context, name string) (fusefs.Node, error) {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	dir, err := d.dir()
	if err != nil {
		return nil, err
	}
	dirLogger.Debug("Looking up %q in directory %q", name, dir.Path())

	child := dir.Get(name)
	if child == nil {
		dirLogger.Debug("Path not found: %q", name)
		return nil, fuse.Errno(syscall.ENOENT)
	}
	return d.fs.node(child), nil
}

// ReadDirAll implements the HandleReadDirAller interface, listing directory contents.
func (d *Dir) ReadDirAll(_ context.Context) ([]fuse.Dirent, error) {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	dir, err := d.dir()
	if err != nil {
		return nil, err
	}
	dirLogger.Debug("Reading directory contents: %q", dir.Path())

	parent := dir.Parent()
	parentID := d.id
	if parent != nil {
		parentID = parent.ID()
	}

	entries := []fuse.Dirent{
		{Inode: uint64(d.id), Name: ".", Type: fuse.DT_Dir},
		{Inode: uint64(parentID), Name: "..", Type: fuse.DT_Dir},
	}
	for _, child := range dir.Children() {
		ent := fuse.Dirent{Inode: uint64(child.ID()), Name: child.Name()}
		switch child.Kind() {
		case tree.KindDirectory:
			ent.Type = fuse.DT_Dir
		case tree.KindFile:
			ent.Type = fuse.DT_File
		}
		entries = append(entries, ent)
	}

	dirLogger.Debug("Directory %q contains %d entries", dir.Path(), len(entries))
	return entries, nil
}

// Mkdir implements the NodeMkdirer interface, creating a new directory.
func (d *Dir) Mkdir(_ context.Context, req *fuse.MkdirRequest) (fusefs.Node, error) {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	dir, err := d.dir()
	if err != nil {
		return nil, err
	}
	dirLogger.Info("Creating new directory %q in %q", req.Name, dir.Path())

	sub, err := dir.CreateDirectory(req.Name)
	if err != nil {
		dirLogger.Warn("mkdir failed: %v", err)
		return nil, ToFuseError(err)
	}
	if err := d.fs.changed(); err != nil {
		return nil, err
	}

	dirLogger.Info("Successfully created directory: %s", sub.Path())
	return &Dir{fs: d.fs, id: sub.ID()}, nil
}

// Create implements the NodeCreater interface, creating an empty file.
func (d *Dir) Create(_ context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fusefs.Node, fusefs.Handle, error) {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	dir, err := d.dir()
	if err != nil {
		return nil, nil, err
	}
	dirLogger.Info("Creating new file %q in %q", req.Name, dir.Path())

	f, err := dir.CreateFile(req.Name, nil)
	if err != nil {
		dirLogger.Warn("create failed: %v", err)
		return nil, nil, ToFuseError(err)
	}
	if err := d.fs.changed(); err != nil {
		return nil, nil, err
	}

	node := &File{fs: d.fs, id: f.ID()}
	resp.Flags |= fuse.OpenDirectIO
	return node, d.fs.newHandle(node), nil
}

// Remove implements the NodeRemover interface, removing a file or directory.
func (d *Dir) Remove(_ context.Context, req *fuse.RemoveRequest) error {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	dir, err := d.dir()
	if err != nil {
		return err
	}
	dirLogger.Info("Removing %q from directory %q (isDir=%v)", req.Name, dir.Path(), req.Dir)

	child := dir.Get(req.Name)
	switch c := child.(type) {
	case nil:
		return fuse.Errno(syscall.ENOENT)
	case *tree.Directory:
		if !req.Dir {
			return fuse.Errno(syscall.EISDIR)
		}
		if c.Len() > 0 {
			dirLogger.Warn("Directory not empty: %q", c.Path())
			return fuse.Errno(syscall.ENOTEMPTY)
		}
	case *tree.File:
		if req.Dir {
			return fuse.Errno(syscall.ENOTDIR)
		}
	}

	if err := dir.Delete(req.Name); err != nil {
		return ToFuseError(err)
	}
	d.fs.reclaim()
	if err := d.fs.changed(); err != nil {
		return err
	}

	dirLogger.Info("Successfully removed %q", req.Name)
	return nil
}

// Rename implements the NodeRenamer interface. Directories can only be
// renamed in place; files may also move between directories. An existing
// file at the target name is replaced.
func (d *Dir) Rename(_ context.Context, req *fuse.RenameRequest, newDir fusefs.Node) error {
	target, ok := newDir.(*Dir)
	if !ok {
		dirLogger.Error("Target is not a valid directory type")
		return fuse.Errno(syscall.EINVAL)
	}

	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	src, err := d.dir()
	if err != nil {
		return err
	}
	dst, err := target.dir()
	if err != nil {
		return err
	}
	dirLogger.Info("Renaming %q to %q", req.OldName, req.NewName)

	child := src.Get(req.OldName)
	if child == nil {
		return fuse.Errno(syscall.ENOENT)
	}
	if err := tree.ValidateName(req.NewName); err != nil {
		return ToFuseError(err)
	}
	if src.ID() == dst.ID() && req.OldName == req.NewName {
		return nil
	}

	crossDir := src.ID() != dst.ID()
	if crossDir {
		if child.Kind() == tree.KindDirectory {
			dirLogger.Warn("Cannot move directory %q across directories", child.Path())
			return fuse.Errno(syscall.EXDEV)
		}
		// the file is renamed in place before it moves
		if req.OldName != req.NewName && src.Get(req.NewName) != nil {
			return fuse.Errno(syscall.EXDEV)
		}
	}

	// POSIX rename replaces an existing target of a compatible kind
	if existing := dst.Get(req.NewName); existing != nil {
		switch {
		case existing.Kind() != child.Kind() && existing.Kind() == tree.KindDirectory:
			return fuse.Errno(syscall.EISDIR)
		case existing.Kind() != child.Kind():
			return fuse.Errno(syscall.ENOTDIR)
		case existing.Kind() == tree.KindDirectory && existing.(*tree.Directory).Len() > 0:
			return fuse.Errno(syscall.ENOTEMPTY)
		}
		if err := dst.Delete(req.NewName); err != nil {
			return ToFuseError(err)
		}
	}

	if crossDir {
		err = d.move(dst, child.(*tree.File), req.NewName)
	} else {
		err = src.Rename(req.OldName, req.NewName)
	}
	if err != nil {
		return ToFuseError(err)
	}
	d.fs.reclaim()
	if err := d.fs.changed(); err != nil {
		return err
	}

	dirLogger.Info("Successfully completed rename operation")
	return nil
}

func (d *Dir) move(dst *tree.Directory, f *tree.File, newName string) error {
	if f.Name() != newName {
		if err := f.Rename(newName); err != nil {
			return err
		}
	}
	dirLogger.Debug("Moving file %q to %q", f.Path(), dst.Path())
	_, err := dst.AddFile(f, true)
	return err
}
