package tree

import (
	"encoding/binary"
	"fmt"
	"io"

	"simfs/internal/logging"
)

var (
	codecLogger = logging.GetLogger().WithPrefix("codec")
)

type decodeState uint8

const (
	stateType decodeState = iota
	stateNameLength
	stateName
	stateContentLength
	stateContent
	stateDone
)

func (s decodeState) String() string {
	switch s {
	case stateType:
		return "TYPE"
	case stateNameLength:
		return "NAME_LENGTH"
	case stateName:
		return "NAME"
	case stateContentLength:
		return "CONTENT_LENGTH"
	case stateContent:
		return "CONTENT"
	default:
		return "DONE"
	}
}

// frame tracks one open directory and how many of its content bytes are
// still to come.
type frame struct {
	dir       *Directory
	remaining int
}

// Decoder rebuilds a tree from the wire format one byte at a time. It is an
// io.Writer, so the stream may arrive in arbitrary chunks; call Tree once
// the input is exhausted.
type Decoder struct {
	tree   *Tree
	state  decodeState
	frames []frame
	offset int64
	err    error

	kind     Kind
	need     int // bytes left in the current name or content field
	name     []byte
	lenBuf   [2]byte
	lenGot   int
	contents []byte
}

// NewDecoder returns a decoder expecting a root directory.
func NewDecoder() *Decoder {
	return &Decoder{tree: New(), state: stateType}
}

// Decode parses a complete encoded stream.
func Decode(b []byte) (*Tree, error) {
	dec := NewDecoder()
	if _, err := dec.Write(b); err != nil {
		return nil, err
	}
	return dec.Tree()
}

// DecodeReader parses an encoded stream read from r until EOF.
func DecodeReader(r io.Reader) (*Tree, error) {
	dec := NewDecoder()
	if _, err := io.Copy(dec, r); err != nil {
		return nil, err
	}
	return dec.Tree()
}

// Write feeds p to the state machine. After the first error every further
// call returns that error.
func (dec *Decoder) Write(p []byte) (int, error) {
	for i, b := range p {
		if dec.err != nil {
			return i, dec.err
		}
		dec.err = dec.step(b)
		dec.offset++
		if dec.err != nil {
			return i + 1, dec.err
		}
	}
	return len(p), dec.err
}

// Tree returns the decoded tree. It fails with ErrTruncatedInput if the
// stream stopped before the root directory was complete.
func (dec *Decoder) Tree() (*Tree, error) {
	if dec.err != nil {
		return nil, dec.err
	}
	if dec.state != stateDone {
		return nil, dec.fail(ErrTruncatedInput, "stream ended in %v with %d open directories", dec.state, len(dec.frames))
	}
	codecLogger.Debug("Decoded %d bytes into %d nodes", dec.offset, dec.tree.Len())
	return dec.tree, nil
}

func (dec *Decoder) step(b byte) error {
	if dec.state == stateDone {
		return dec.fail(ErrMalformedStream, "trailing byte %#02x after root directory", b)
	}
	if err := dec.charge(); err != nil {
		return err
	}

	switch dec.state {
	case stateType:
		switch Kind(b) {
		case KindFile:
			if len(dec.frames) == 0 {
				return dec.fail(ErrMalformedStream, "stream must start with a directory")
			}
		case KindDirectory:
		default:
			return dec.fail(ErrMalformedStream, "unknown type tag %#02x", b)
		}
		dec.kind = Kind(b)
		dec.state = stateNameLength

	case stateNameLength:
		dec.need = int(b)
		dec.name = dec.name[:0]
		if dec.need == 0 {
			return dec.nameComplete()
		}
		dec.state = stateName

	case stateName:
		dec.name = append(dec.name, b)
		dec.need--
		if dec.need == 0 {
			return dec.nameComplete()
		}

	case stateContentLength:
		if dec.kind == KindFile {
			return dec.fileLength(int(b))
		}
		dec.lenBuf[dec.lenGot] = b
		dec.lenGot++
		if dec.lenGot == len(dec.lenBuf) {
			return dec.directoryLength(int(binary.BigEndian.Uint16(dec.lenBuf[:])))
		}

	case stateContent:
		dec.contents = append(dec.contents, b)
		dec.need--
		if dec.need == 0 {
			return dec.finishFile()
		}
	}
	return nil
}

// charge counts the current byte against the innermost open directory.
func (dec *Decoder) charge() error {
	if len(dec.frames) == 0 {
		return nil
	}
	top := &dec.frames[len(dec.frames)-1]
	if top.remaining == 0 {
		return dec.fail(ErrMalformedStream, "entry overruns directory %q", top.dir.Path())
	}
	top.remaining--
	return nil
}

func (dec *Decoder) nameComplete() error {
	dec.state = stateContentLength
	dec.lenGot = 0
	codecLogger.Trace("Name %q complete at offset %d", dec.name, dec.offset)
	return nil
}

// errOverrun is reported when a declared length runs past the enclosing
// directory. Read with the parent's framing, the child's input ends early.
var errOverrun = fmt.Errorf("%w: %w", ErrMalformedStream, ErrTruncatedInput)

func (dec *Decoder) fileLength(n int) error {
	if top := dec.frames[len(dec.frames)-1]; n > top.remaining {
		return dec.fail(errOverrun, "file declares %d bytes but directory %q has %d left", n, top.dir.Path(), top.remaining)
	}
	dec.need = n
	dec.contents = make([]byte, 0, n)
	if n == 0 {
		return dec.finishFile()
	}
	dec.state = stateContent
	return nil
}

func (dec *Decoder) directoryLength(n int) error {
	name := DecodeString(dec.name)

	var dir *Directory
	if len(dec.frames) == 0 {
		dir = dec.tree.Root()
		dec.tree.node(dir.id).name = name
	} else {
		top := &dec.frames[len(dec.frames)-1]
		if n > top.remaining {
			return dec.fail(errOverrun, "directory %q declares %d bytes but %q has %d left", name, n, top.dir.Path(), top.remaining)
		}
		var err error
		if dir, err = top.dir.CreateDirectory(name); err != nil {
			return err
		}
		top.remaining -= n
	}

	dec.frames = append(dec.frames, frame{dir: dir, remaining: n})
	dec.state = stateType
	dec.popFinished()
	return nil
}

func (dec *Decoder) finishFile() error {
	top := dec.frames[len(dec.frames)-1]
	if _, err := top.dir.CreateFile(DecodeString(dec.name), dec.contents); err != nil {
		return err
	}
	dec.state = stateType
	dec.popFinished()
	return nil
}

// popFinished closes every directory whose content is exhausted.
func (dec *Decoder) popFinished() {
	for len(dec.frames) > 0 && dec.frames[len(dec.frames)-1].remaining == 0 {
		dec.frames = dec.frames[:len(dec.frames)-1]
	}
	if len(dec.frames) == 0 {
		dec.state = stateDone
	}
}

func (dec *Decoder) fail(sentinel error, format string, args ...interface{}) error {
	path := ""
	if len(dec.frames) > 0 {
		path = dec.frames[len(dec.frames)-1].dir.Path()
	}
	msg := fmt.Sprintf(format, args...)
	return newError(OpDecode, path, fmt.Errorf("%w at offset %d: %s", sentinel, dec.offset, msg))
}

var _ io.Writer = (*Decoder)(nil)
