package tree

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidName indicates a name that breaks the length or character rules
	ErrInvalidName = errors.New("invalid name")

	// ErrAlreadyExists indicates a sibling already uses the name
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrNotFound indicates the named child does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrKindMismatch indicates a typed lookup found the other kind of resource
	ErrKindMismatch = errors.New("resource kind mismatch")

	// ErrCannotDelete indicates an operation that needs a parent on a parentless resource
	ErrCannotDelete = errors.New("resource has no parent")

	// ErrWriteTooLarge indicates file contents above MaxContentLen bytes
	ErrWriteTooLarge = errors.New("write too large")

	// ErrUnsupportedEncoding indicates a character outside the single-byte range
	ErrUnsupportedEncoding = errors.New("unsupported encoding")

	// ErrTruncatedInput indicates a stream that ended inside a declared length
	ErrTruncatedInput = errors.New("truncated input")

	// ErrMalformedStream indicates an unknown type tag or inconsistent framing
	ErrMalformedStream = errors.New("malformed stream")

	// ErrDirectoryTooLarge indicates encoded children that do not fit a 16-bit length
	ErrDirectoryTooLarge = errors.New("directory too large to encode")
)

// Error wraps tree errors with the operation and the slash path of the
// resource it was applied to.
type Error struct {
	Op   string // Operation that failed (e.g., "create", "rename")
	Path string // Affected path
	Err  error  // Underlying error
}

// Error implements the error interface, providing a formatted error message
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements error unwrapping for the errors.Is/As functions
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, path string, err error) *Error {
	treeLogger.Debug("%s %s failed: %v", op, path, err)
	return &Error{Op: op, Path: path, Err: err}
}

// Operation names used in Error.Op
const (
	OpCreate = "create"
	OpAdd    = "add"
	OpGet    = "get"
	OpDelete = "delete"
	OpRename = "rename"
	OpWrite  = "write"
	OpEncode = "encode"
	OpDecode = "decode"
)
