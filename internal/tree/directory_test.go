package tree

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFile(t *testing.T) {
	root := New().Root()

	f, err := root.CreateFileString("hello.txt", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello.txt", f.Name())
	assert.Equal(t, []byte{104, 105}, f.Contents())
	assert.Equal(t, "hi", f.String())
	assert.Equal(t, "/hello.txt", f.Path())
	require.NotNil(t, f.Parent())
	assert.Equal(t, root.ID(), f.Parent().ID())

	_, err = root.CreateFile("hello.txt", nil)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = root.CreateDirectory("hello.txt")
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, 1, root.Len())
}

func TestCreateRejectsBeforeMutation(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		contents string
		want     error
	}{
		{name: "invalid name", fileName: "a/b", want: ErrInvalidName},
		{name: "too large", fileName: "big", contents: strings.Repeat("x", 256), want: ErrWriteTooLarge},
		{name: "wide character", fileName: "wide", contents: "snow ☃", want: ErrUnsupportedEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New()
			_, err := tr.Root().CreateFileString(tt.fileName, tt.contents)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, tr.Root().Len())
			assert.Equal(t, 1, tr.Len())
		})
	}
}

func TestSizeBoundaries(t *testing.T) {
	root := New().Root()

	_, err := root.CreateFile("exact", make([]byte, 255))
	require.NoError(t, err)

	_, err = root.CreateFile("over", make([]byte, 256))
	require.ErrorIs(t, err, ErrWriteTooLarge)

	f, err := root.GetFile("exact")
	require.NoError(t, err)
	require.ErrorIs(t, f.Write(make([]byte, 256)), ErrWriteTooLarge)
	assert.Equal(t, 255, f.Size(), "failed write must leave contents untouched")

	_, err = root.CreateDirectory(strings.Repeat("n", 255))
	require.NoError(t, err)

	_, err = root.CreateDirectory(strings.Repeat("n", 256))
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestGetAs(t *testing.T) {
	root := New().Root()
	_, err := root.CreateFile("f", nil)
	require.NoError(t, err)
	_, err = root.CreateDirectory("d")
	require.NoError(t, err)

	t.Run("absent", func(t *testing.T) {
		assert.Nil(t, root.Get("missing"))
		r, err := root.GetAs("missing", KindFile)
		require.NoError(t, err)
		assert.Nil(t, r)
	})

	t.Run("matching kind", func(t *testing.T) {
		f, err := root.GetFile("f")
		require.NoError(t, err)
		require.NotNil(t, f)
		d, err := root.GetDirectory("d")
		require.NoError(t, err)
		require.NotNil(t, d)
	})

	t.Run("kind mismatch", func(t *testing.T) {
		_, err := root.GetDirectory("f")
		assert.ErrorIs(t, err, ErrKindMismatch)
		_, err = root.GetFile("d")
		assert.ErrorIs(t, err, ErrKindMismatch)
	})

	t.Run("all children in order", func(t *testing.T) {
		children := root.Children()
		require.Len(t, children, 2)
		assert.Equal(t, "f", children[0].Name())
		assert.Equal(t, KindFile, children[0].Kind())
		assert.Equal(t, "d", children[1].Name())
		assert.Equal(t, KindDirectory, children[1].Kind())
	})
}

func TestDeleteIntegrity(t *testing.T) {
	root := New().Root()
	sub, err := root.CreateDirectory("sub")
	require.NoError(t, err)
	f, err := sub.CreateFile("x", []byte("data"))
	require.NoError(t, err)

	require.NoError(t, sub.Delete("x"))
	assert.Nil(t, sub.Get("x"))
	assert.Nil(t, f.Parent())

	var tErr *Error
	err = sub.Delete("x")
	require.ErrorAs(t, err, &tErr)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, OpDelete, tErr.Op)
	assert.Equal(t, "/sub/x", tErr.Path)

	require.NoError(t, sub.DeleteSelf())
	assert.Nil(t, root.Get("sub"))
	assert.Nil(t, sub.Parent())

	assert.ErrorIs(t, root.DeleteSelf(), ErrCannotDelete)
	assert.ErrorIs(t, sub.DeleteSelf(), ErrCannotDelete)
}

func TestFileOperationsDelegateToParent(t *testing.T) {
	tr := New()
	root := tr.Root()
	f, err := root.CreateFileString("a.txt", "one")
	require.NoError(t, err)

	require.NoError(t, f.WriteString("two"))
	assert.Equal(t, "two", f.String())

	require.NoError(t, f.Rename("b.txt"))
	assert.Nil(t, root.Get("a.txt"))
	assert.NotNil(t, root.Get("b.txt"))

	require.NoError(t, f.Delete())
	assert.Nil(t, root.Get("b.txt"))

	assert.ErrorIs(t, f.Delete(), ErrCannotDelete)
	assert.ErrorIs(t, f.Rename("c.txt"), ErrCannotDelete)
	assert.ErrorIs(t, f.Write([]byte("x")), ErrCannotDelete)
	assert.ErrorIs(t, f.WriteString("x"), ErrCannotDelete)

	standalone, err := tr.NewFile("loose", []byte("x"))
	require.NoError(t, err)
	assert.ErrorIs(t, standalone.Delete(), ErrCannotDelete)
}

func TestRename(t *testing.T) {
	root := New().Root()
	_, err := root.CreateFile("a", nil)
	require.NoError(t, err)
	d, err := root.CreateDirectory("b")
	require.NoError(t, err)

	assert.ErrorIs(t, root.Rename("a", "b"), ErrAlreadyExists)
	assert.ErrorIs(t, root.Rename("a", "bad:name"), ErrInvalidName)
	assert.ErrorIs(t, root.Rename("missing", "c"), ErrNotFound)
	assert.NoError(t, root.Rename("a", "a"))

	require.NoError(t, d.RenameSelf("c"))
	assert.Equal(t, "/c", d.Path())
	assert.ErrorIs(t, root.RenameSelf("x"), ErrCannotDelete)
}

func TestDirectoryWrite(t *testing.T) {
	root := New().Root()
	_, err := root.CreateDirectory("d")
	require.NoError(t, err)
	_, err = root.CreateFile("f", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, root.Write("missing", nil), ErrNotFound)
	assert.ErrorIs(t, root.Write("d", nil), ErrKindMismatch)
	assert.ErrorIs(t, root.WriteString("f", "é世"), ErrUnsupportedEncoding)

	require.NoError(t, root.WriteString("f", "café"))
	f, err := root.GetFile("f")
	require.NoError(t, err)
	assert.Equal(t, []byte{'c', 'a', 'f', 0xe9}, f.Contents())
	assert.Equal(t, "café", f.String())
}

func TestAddFile(t *testing.T) {
	tr := New()
	root := tr.Root()
	a, err := root.CreateDirectory("a")
	require.NoError(t, err)

	t.Run("standalone file", func(t *testing.T) {
		f, err := tr.NewFile("new.txt", []byte("x"))
		require.NoError(t, err)
		assert.Nil(t, f.Parent())

		added, err := a.AddFile(f, true)
		require.NoError(t, err)
		assert.Equal(t, f.ID(), added.ID())
		assert.Equal(t, "/a/new.txt", f.Path())
	})

	t.Run("collision", func(t *testing.T) {
		f, err := tr.NewFile("new.txt", nil)
		require.NoError(t, err)
		_, err = a.AddFile(f, true)
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("reparent moves the file", func(t *testing.T) {
		f, err := root.CreateFile("move.txt", nil)
		require.NoError(t, err)
		_, err = a.AddFile(f, true)
		require.NoError(t, err)
		assert.Nil(t, root.Get("move.txt"))
		assert.Equal(t, a.ID(), f.Parent().ID())
	})

	t.Run("without reparent", func(t *testing.T) {
		f, err := tr.NewFile("orphan.txt", nil)
		require.NoError(t, err)
		_, err = a.AddFile(f, false)
		require.NoError(t, err)
		assert.NotNil(t, a.Get("orphan.txt"))
		assert.Nil(t, f.Parent())
	})

	t.Run("without reparent an attached file is copied", func(t *testing.T) {
		b, err := root.CreateDirectory("b")
		require.NoError(t, err)
		f, err := a.CreateFileString("shared.txt", "one")
		require.NoError(t, err)

		added, err := b.AddFile(f, false)
		require.NoError(t, err)
		assert.NotEqual(t, f.ID(), added.ID())
		assert.Equal(t, "/b/shared.txt", added.Path())
		assert.Equal(t, "/a/shared.txt", f.Path())

		require.NoError(t, b.WriteString("shared.txt", "changed"))
		assert.Equal(t, "one", f.String(), "writes through b do not reach a")

		require.NoError(t, b.Delete("shared.txt"))
		assert.NotNil(t, a.Get("shared.txt"))
		require.NotNil(t, f.Parent())
		assert.Equal(t, a.ID(), f.Parent().ID())
		assert.NoError(t, f.WriteString("two"))
	})

	t.Run("delete keeps a parent link owned elsewhere", func(t *testing.T) {
		c, err := root.CreateDirectory("c")
		require.NoError(t, err)
		f, err := tr.NewFile("listed.txt", nil)
		require.NoError(t, err)
		_, err = c.AddFile(f, false)
		require.NoError(t, err)

		_, err = a.AddFile(f, true)
		require.NoError(t, err)
		require.NoError(t, c.Delete("listed.txt"))
		require.NotNil(t, f.Parent())
		assert.Equal(t, "/a/listed.txt", f.Path())
	})

	t.Run("foreign tree is copied", func(t *testing.T) {
		other := New()
		f, err := other.NewFile("foreign.txt", []byte("abc"))
		require.NoError(t, err)

		added, err := a.AddFile(f, true)
		require.NoError(t, err)
		assert.Equal(t, "/a/foreign.txt", added.Path())
		assert.Equal(t, []byte("abc"), added.Contents())
		assert.Nil(t, f.Parent())
	})
}

func TestWalkAndPrune(t *testing.T) {
	tr := New()
	root := tr.Root()
	a, err := root.CreateDirectory("a")
	require.NoError(t, err)
	_, err = a.CreateFile("1", nil)
	require.NoError(t, err)
	_, err = root.CreateFile("2", nil)
	require.NoError(t, err)

	var visited []string
	require.NoError(t, root.Walk(func(path string, _ Resource) error {
		visited = append(visited, path)
		return nil
	}))
	assert.Equal(t, []string{"/a", "/a/1", "/2"}, visited)

	stop := errors.New("stop")
	assert.ErrorIs(t, root.Walk(func(string, Resource) error { return stop }), stop)

	require.NoError(t, root.Delete("a"))
	assert.Equal(t, "a/1", tr.Resource(a.ID()+1).Path())
	assert.Equal(t, 2, tr.Prune())
	assert.Equal(t, 2, tr.Len())
	assert.Nil(t, tr.Resource(a.ID()))
}

func TestPruneExcept(t *testing.T) {
	tr := New()
	root := tr.Root()
	open, err := root.CreateFileString("open", "still readable")
	require.NoError(t, err)
	gone, err := root.CreateFile("gone", nil)
	require.NoError(t, err)
	require.NoError(t, root.Delete("open"))
	require.NoError(t, root.Delete("gone"))

	dropped := tr.PruneExcept(func(id NodeID) bool { return id == open.ID() })
	assert.Equal(t, 1, dropped)
	assert.Nil(t, tr.Resource(gone.ID()))
	require.NotNil(t, tr.Resource(open.ID()))

	// a detached file accepts writes only through Overwrite
	assert.ErrorIs(t, open.WriteString("x"), ErrCannotDelete)
	require.NoError(t, open.Overwrite([]byte("new")))
	assert.Equal(t, "new", open.String())
	assert.ErrorIs(t, open.Overwrite(make([]byte, MaxContentLen+1)), ErrWriteTooLarge)

	assert.Equal(t, 1, tr.Prune())
	assert.Equal(t, 1, tr.Len())
}

func TestUniquenessInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tr := New()
	dirs := []*Directory{tr.Root()}
	names := []string{"a", "b", "c", "d"}

	for i := 0; i < 500; i++ {
		d := dirs[rng.Intn(len(dirs))]
		name := names[rng.Intn(len(names))]
		other := names[rng.Intn(len(names))]

		switch rng.Intn(5) {
		case 0:
			_, _ = d.CreateFile(name, []byte(fmt.Sprint(i)))
		case 1:
			if sub, err := d.CreateDirectory(name); err == nil {
				dirs = append(dirs, sub)
			}
		case 2:
			_ = d.Delete(name)
		case 3:
			_ = d.Rename(name, other)
		case 4:
			if f, err := tr.NewFile(name, nil); err == nil {
				_, _ = d.AddFile(f, true)
			}
		}

		for _, dir := range dirs {
			seen := map[string]bool{}
			for _, child := range dir.Children() {
				require.False(t, seen[child.Name()], "duplicate %q in %q after step %d", child.Name(), dir.Path(), i)
				seen[child.Name()] = true
			}
		}
	}
}
