package mount

import (
	"context"
	"syscall"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"simfs/internal/logging"
	"simfs/internal/tree"
)

var (
	fileLogger = logging.GetLogger().WithPrefix("file")
)

// File is the FUSE node for a tree file.
type File struct {
	fs *FS
	id tree.NodeID
}

// file returns the tree handle. Callers hold fs.mu.
func (f *File) file() (*tree.File, error) {
	file, ok := f.fs.tree.Resource(f.id).(*tree.File)
	if !ok {
		return nil, fuse.Errno(syscall.ENOENT)
	}
	return file, nil
}

// Attr implements the Node interface, returning the file's attributes.
func (f *File) Attr(_ context.Context, a *fuse.Attr) error {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	file, err := f.file()
	if err != nil {
		return err
	}

	f.fs.attr(a, f.id)
	a.Mode = 0644
	a.Nlink = 1
	a.Size = uint64(file.Size())
	a.BlockSize = 512
	a.Blocks = (a.Size + 511) / 512

	fileLogger.Trace("File attributes for %q: mode=%v, size=%d", file.Path(), a.Mode, a.Size)
	return nil
}

// Open implements the NodeOpener interface. Contents live in memory, so the
// handle only needs to know which node it belongs to.
func (f *File) Open(_ context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	file, err := f.file()
	if err != nil {
		return nil, err
	}
	fileLogger.Debug("Opening file %q with flags %v", file.Path(), req.Flags)

	if req.Flags&fuse.OpenTruncate != 0 {
		if err := f.truncate(file, 0); err != nil {
			return nil, err
		}
	}

	// Enable direct IO so reads always see the current contents
	resp.Flags |= fuse.OpenDirectIO
	return f.fs.newHandle(f), nil
}

// Setattr implements the NodeSetattrer interface. Only size changes are
// meaningful; mode, owner and time updates are accepted and ignored.
func (f *File) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	f.fs.mu.Lock()
	file, err := f.file()
	if err == nil && req.Valid.Size() {
		fileLogger.Debug("Truncating %q to %d bytes", file.Path(), req.Size)
		err = f.truncate(file, req.Size)
	}
	f.fs.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Attr(ctx, &resp.Attr)
}

// Fsync implements the NodeFsyncer interface. Writes are applied
// immediately, so there is nothing to flush.
func (f *File) Fsync(_ context.Context, _ *fuse.FsyncRequest) error {
	return nil
}

// truncate resizes the contents, padding with zeros. Callers hold fs.mu.
func (f *File) truncate(file *tree.File, size uint64) error {
	if size > tree.MaxContentLen {
		return fuse.Errno(syscall.EFBIG)
	}
	contents := file.Contents()
	if uint64(len(contents)) == size {
		return nil
	}
	resized := make([]byte, size)
	copy(resized, contents)
	return f.fs.store(file, resized)
}

// FileHandle is an open file. Reads and writes go straight to the tree.
type FileHandle struct {
	file *File
}

// ReadAll implements the HandleReadAller interface.
func (fh *FileHandle) ReadAll(_ context.Context) ([]byte, error) {
	fs := fh.file.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, err := fh.file.file()
	if err != nil {
		return nil, err
	}
	fileLogger.Trace("Reading %d bytes from file %q", file.Size(), file.Path())
	return file.Contents(), nil
}

// Write implements the HandleWriter interface. A write that would grow the
// file beyond the content limit fails with EFBIG and changes nothing.
func (fh *FileHandle) Write(_ context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	fs := fh.file.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, err := fh.file.file()
	if err != nil {
		return err
	}
	fileLogger.Trace("Writing %d bytes to file %q at offset %d", len(req.Data), file.Path(), req.Offset)

	end := req.Offset + int64(len(req.Data))
	if req.Offset < 0 || end > tree.MaxContentLen {
		fileLogger.Warn("Write to %q would exceed %d bytes", file.Path(), tree.MaxContentLen)
		return fuse.Errno(syscall.EFBIG)
	}

	contents := file.Contents()
	if int64(len(contents)) < end {
		grown := make([]byte, end)
		copy(grown, contents)
		contents = grown
	}
	copy(contents[req.Offset:], req.Data)

	if err := fs.store(file, contents); err != nil {
		return err
	}
	resp.Size = len(req.Data)
	return nil
}

// Flush implements the HandleFlusher interface.
func (fh *FileHandle) Flush(_ context.Context, _ *fuse.FlushRequest) error {
	return nil
}

// Release implements the HandleReleaser interface. Releasing the last
// handle of an unlinked file frees it.
func (fh *FileHandle) Release(_ context.Context, _ *fuse.ReleaseRequest) error {
	fs := fh.file.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fileLogger.Trace("Releasing handle for node %d", fh.file.id)
	id := fh.file.id
	if fs.open[id]--; fs.open[id] <= 0 {
		delete(fs.open, id)
		fs.reclaim()
	}
	return nil
}

// newHandle opens a handle on node. Callers hold mu.
func (f *FS) newHandle(node *File) *FileHandle {
	f.open[node.id]++
	return &FileHandle{file: node}
}

// store replaces the contents of file. An unlinked file is still open
// somewhere, so it is written in place and the change hook is skipped since
// nothing reachable changed. Callers hold mu.
func (f *FS) store(file *tree.File, contents []byte) error {
	if file.Parent() == nil {
		if err := file.Overwrite(contents); err != nil {
			return ToFuseError(err)
		}
		return nil
	}
	if err := file.Write(contents); err != nil {
		return ToFuseError(err)
	}
	return f.changed()
}
