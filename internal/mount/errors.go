package mount

import (
	"errors"
	"os"
	"syscall"

	"bazil.org/fuse"

	"simfs/internal/logging"
	"simfs/internal/tree"
)

var (
	errLogger = logging.GetLogger().WithPrefix("error")
)

// ToFuseError converts a tree error to the errno FUSE reports to the
// caller. Errors that carry no tree sentinel become EIO.
func ToFuseError(err error) error {
	if err == nil {
		return nil
	}

	var treeErr *tree.Error
	if errors.As(err, &treeErr) {
		errLogger.Trace("Converting tree error to FUSE error: %v", treeErr)
	}

	switch {
	case errors.Is(err, tree.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return fuse.Errno(syscall.ENOENT)
	case errors.Is(err, tree.ErrAlreadyExists):
		return fuse.Errno(syscall.EEXIST)
	case errors.Is(err, tree.ErrInvalidName), errors.Is(err, tree.ErrUnsupportedEncoding):
		return fuse.Errno(syscall.EINVAL)
	case errors.Is(err, tree.ErrCannotDelete), errors.Is(err, os.ErrPermission):
		return fuse.Errno(syscall.EPERM)
	case errors.Is(err, tree.ErrWriteTooLarge):
		return fuse.Errno(syscall.EFBIG)
	case errors.Is(err, tree.ErrDirectoryTooLarge):
		return fuse.Errno(syscall.ENOSPC)
	case errors.Is(err, tree.ErrKindMismatch):
		return fuse.Errno(syscall.ENOTDIR)
	default:
		errLogger.Debug("Unknown error type, returning EIO: %v", err)
		return fuse.Errno(syscall.EIO)
	}
}
