package mount

import (
	fusefs "bazil.org/fuse/fs"
)

// Directory is the set of FUSE interfaces a directory node serves.
type Directory interface {
	fusefs.Node
	fusefs.NodeStringLookuper
	fusefs.HandleReadDirAller
	fusefs.NodeMkdirer
	fusefs.NodeCreater
	fusefs.NodeRemover
	fusefs.NodeRenamer
}

// FileNode is the set of FUSE interfaces a file node serves.
type FileNode interface {
	fusefs.Node
	fusefs.NodeSetattrer
	fusefs.NodeOpener
	fusefs.NodeFsyncer
}

// FileHandleInterface represents an open file handle
type FileHandleInterface interface {
	fusefs.Handle
	fusefs.HandleReadAller
	fusefs.HandleWriter
	fusefs.HandleFlusher
	fusefs.HandleReleaser
}

var (
	_ fusefs.FS           = (*FS)(nil)
	_ Directory           = (*Dir)(nil)
	_ FileNode            = (*File)(nil)
	_ FileHandleInterface = (*FileHandle)(nil)
)
