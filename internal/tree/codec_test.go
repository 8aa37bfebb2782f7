package tree

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleStream is root{ hello.txt="hi", sub{ x="" } }.
var sampleStream = []byte{
	0x02, 0x00, 0x00, 0x19,
	0x01, 0x09, 'h', 'e', 'l', 'l', 'o', '.', 't', 'x', 't', 0x02, 'h', 'i',
	0x02, 0x03, 's', 'u', 'b', 0x00, 0x04,
	0x01, 0x01, 'x', 0x00,
}

func sampleTree(t *testing.T) *Tree {
	t.Helper()
	tr := New()
	_, err := tr.Root().CreateFileString("hello.txt", "hi")
	require.NoError(t, err)
	sub, err := tr.Root().CreateDirectory("sub")
	require.NoError(t, err)
	_, err = sub.CreateFile("x", nil)
	require.NoError(t, err)
	return tr
}

func TestEncodeSample(t *testing.T) {
	got, err := sampleTree(t).Root().Serialize()
	require.NoError(t, err)
	assert.Equal(t, sampleStream, got)
}

func TestEncodeFile(t *testing.T) {
	f, err := New().Root().CreateFileString("a", "z")
	require.NoError(t, err)
	got, err := f.Serialize()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x01, 'a', 0x01, 'z'}, got)
}

func TestEncodeEmptyRoot(t *testing.T) {
	got, err := Encode(New().Root())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x00, 0x00, 0x00}, got)
}

func TestDecodeSample(t *testing.T) {
	tr, err := Decode(sampleStream)
	require.NoError(t, err)
	assert.True(t, Equal(sampleTree(t).Root(), tr.Root()))

	f, err := tr.Root().GetFile("hello.txt")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "hi", f.String())

	sub, err := tr.Root().GetDirectory("sub")
	require.NoError(t, err)
	require.NotNil(t, sub)
	x, err := sub.GetFile("x")
	require.NoError(t, err)
	require.NotNil(t, x)
	assert.Equal(t, 0, x.Size())
	assert.Equal(t, "/sub/x", x.Path())
}

func TestDecodeChunking(t *testing.T) {
	want := sampleTree(t).Root()

	t.Run("byte at a time", func(t *testing.T) {
		dec := NewDecoder()
		for _, b := range sampleStream {
			n, err := dec.Write([]byte{b})
			require.NoError(t, err)
			require.Equal(t, 1, n)
		}
		tr, err := dec.Tree()
		require.NoError(t, err)
		assert.True(t, Equal(want, tr.Root()))
	})

	t.Run("reader", func(t *testing.T) {
		tr, err := DecodeReader(iotest.HalfReader(bytes.NewReader(sampleStream)))
		require.NoError(t, err)
		assert.True(t, Equal(want, tr.Root()))
	})

	t.Run("uneven chunks", func(t *testing.T) {
		dec := NewDecoder()
		for _, chunk := range [][]byte{sampleStream[:3], sampleStream[3:17], sampleStream[17:]} {
			_, err := dec.Write(chunk)
			require.NoError(t, err)
		}
		tr, err := dec.Tree()
		require.NoError(t, err)
		assert.True(t, Equal(want, tr.Root()))
	})
}

func TestDecodeTruncated(t *testing.T) {
	for i := 0; i < len(sampleStream); i++ {
		_, err := Decode(sampleStream[:i])
		assert.ErrorIs(t, err, ErrTruncatedInput, "prefix of %d bytes", i)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{name: "unknown tag", input: []byte{0x03, 0x00, 0x00, 0x00}},
		{name: "top-level file", input: []byte{0x01, 0x01, 'a', 0x00}},
		{name: "trailing bytes", input: append(bytes.Clone(sampleStream), 0x00)},
		{name: "unknown child tag", input: []byte{0x02, 0x00, 0x00, 0x01, 0x07}},
		{name: "child header overruns parent", input: []byte{0x02, 0x00, 0x00, 0x02, 0x01, 0x01, 'a', 0x00}},
		{name: "file content overruns parent", input: []byte{0x02, 0x00, 0x00, 0x04, 0x01, 0x01, 'a', 0x05, 'h', 'e', 'l', 'l', 'o'}},
		{name: "child directory overruns parent", input: []byte{0x02, 0x00, 0x00, 0x05, 0x02, 0x01, 'd', 0x00, 0x09}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			require.ErrorIs(t, err, ErrMalformedStream)

			var tErr *Error
			require.ErrorAs(t, err, &tErr)
			assert.Equal(t, OpDecode, tErr.Op)
		})
	}
}

func TestDecodeLengthOverrunIsTruncation(t *testing.T) {
	inputs := map[string][]byte{
		"file":      {0x02, 0x00, 0x00, 0x04, 0x01, 0x01, 'a', 0x05, 'h', 'e', 'l', 'l', 'o'},
		"directory": {0x02, 0x00, 0x00, 0x05, 0x02, 0x01, 'd', 0x00, 0x09},
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(input)
			assert.ErrorIs(t, err, ErrTruncatedInput)
			assert.ErrorIs(t, err, ErrMalformedStream)
		})
	}

	_, err := Decode([]byte{0x02, 0x00, 0x00, 0x02, 0x01, 0x01, 'a', 0x00})
	require.ErrorIs(t, err, ErrMalformedStream)
	assert.NotErrorIs(t, err, ErrTruncatedInput, "a header overrun is not a length overrun")
}

func TestDecoderStopsAfterError(t *testing.T) {
	dec := NewDecoder()
	n, err := dec.Write([]byte{0x07, 0x02})
	require.ErrorIs(t, err, ErrMalformedStream)
	assert.Equal(t, 1, n)

	_, err = dec.Write([]byte{0x02})
	assert.ErrorIs(t, err, ErrMalformedStream)
	_, err = dec.Tree()
	assert.ErrorIs(t, err, ErrMalformedStream)
}

func TestDecodeRejectsDuplicateNames(t *testing.T) {
	input := []byte{
		0x02, 0x00, 0x00, 0x08,
		0x01, 0x01, 'a', 0x00,
		0x01, 0x01, 'a', 0x00,
	}
	_, err := Decode(input)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestDecodeKeepsRootName(t *testing.T) {
	tr, err := Decode([]byte{0x02, 0x04, 'h', 'o', 'm', 'e', 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, "home", tr.Root().Name())
	assert.Equal(t, "/", tr.Root().Path())
}

func TestRoundTrip(t *testing.T) {
	tr := New()
	root := tr.Root()

	docs, err := root.CreateDirectory("docs")
	require.NoError(t, err)
	_, err = docs.CreateFileString("café.txt", "naïve ÿ")
	require.NoError(t, err)
	_, err = docs.CreateFile("binary", []byte{0x00, 0x01, 0xfe, 0xff})
	require.NoError(t, err)
	_, err = docs.CreateDirectory("empty")
	require.NoError(t, err)
	_, err = root.CreateFile(strings.Repeat("n", MaxNameLen), bytes.Repeat([]byte{'c'}, MaxContentLen))
	require.NoError(t, err)

	deep := root
	for i := 0; i < 20; i++ {
		deep, err = deep.CreateDirectory(fmt.Sprintf("level%d", i))
		require.NoError(t, err)
	}
	_, err = deep.CreateFileString("leaf", "bottom")
	require.NoError(t, err)

	encoded, err := root.Serialize()
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.True(t, Equal(root, decoded.Root()))

	again, err := decoded.Root().Serialize()
	require.NoError(t, err)
	assert.Equal(t, encoded, again)
}

func TestEncodeDirectoryTooLarge(t *testing.T) {
	root := New().Root()
	contents := bytes.Repeat([]byte{'x'}, MaxContentLen)
	// each entry encodes to 513 bytes, so 128 of them overflow 16 bits
	for i := 0; i < 128; i++ {
		name := fmt.Sprintf("%03d", i) + strings.Repeat("n", MaxNameLen-3)
		_, err := root.CreateFile(name, contents)
		require.NoError(t, err)
	}

	_, err := root.Serialize()
	require.ErrorIs(t, err, ErrDirectoryTooLarge)

	require.NoError(t, root.Delete(root.Children()[0].Name()))
	_, err = root.Serialize()
	assert.NoError(t, err)
}

func TestEqual(t *testing.T) {
	a := sampleTree(t).Root()
	b := sampleTree(t).Root()
	assert.True(t, Equal(a, b))

	require.NoError(t, b.WriteString("hello.txt", "ho"))
	assert.False(t, Equal(a, b))

	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(a, nil))
}
