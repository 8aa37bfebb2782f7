package tree

import (
	"encoding/binary"
	"fmt"
)

// Encode serializes r depth-first, children in insertion order:
//
//	File      := 0x01 nameLen(1) name contentLen(1) content
//	Directory := 0x02 nameLen(1) name contentLen(2, big-endian) children...
//
// A directory's contentLen counts the encoded bytes of its children.
func Encode(r Resource) ([]byte, error) {
	t, id := r.handle()
	out, err := appendNode(nil, t, id)
	if err != nil {
		return nil, err
	}
	codecLogger.Debug("Encoded %q into %d bytes", r.Path(), len(out))
	return out, nil
}

func appendNode(dst []byte, t *Tree, id NodeID) ([]byte, error) {
	n := t.node(id)
	name, err := EncodeString(n.name)
	if err != nil {
		return nil, newError(OpEncode, t.pathOf(id), err)
	}
	if len(name) > MaxNameLen {
		return nil, newError(OpEncode, t.pathOf(id), fmt.Errorf("%w: %d bytes", ErrInvalidName, len(name)))
	}

	dst = append(dst, byte(n.kind), byte(len(name)))
	dst = append(dst, name...)

	switch n.kind {
	case KindFile:
		if len(n.contents) > MaxContentLen {
			return nil, newError(OpEncode, t.pathOf(id), ErrWriteTooLarge)
		}
		dst = append(dst, byte(len(n.contents)))
		return append(dst, n.contents...), nil

	case KindDirectory:
		lenAt := len(dst)
		dst = append(dst, 0, 0)
		for _, child := range n.children {
			if dst, err = appendNode(dst, t, child); err != nil {
				return nil, err
			}
		}
		size := len(dst) - lenAt - 2
		if size > MaxDirectoryContentLen {
			return nil, newError(OpEncode, t.pathOf(id),
				fmt.Errorf("%w: %d bytes of children, limit is %d", ErrDirectoryTooLarge, size, MaxDirectoryContentLen))
		}
		binary.BigEndian.PutUint16(dst[lenAt:], uint16(size))
		return dst, nil

	default:
		return nil, newError(OpEncode, t.pathOf(id), fmt.Errorf("%w: kind %v", ErrMalformedStream, n.kind))
	}
}
