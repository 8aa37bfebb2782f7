package simfs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"simfs/internal/tree"
)

// Entry is one item of a host directory listing.
type Entry struct {
	Name        string
	IsDirectory bool
}

// Host is the host filesystem as seen by Load and Save.
type Host interface {
	ListEntries(dir string) ([]Entry, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
	MakeDirectory(dir string) error
}

// NewHost adapts an afero filesystem.
func NewHost(fsys afero.Fs) Host {
	return aferoHost{afero.Afero{Fs: fsys}}
}

type aferoHost struct {
	fs afero.Afero
}

func (h aferoHost) ListEntries(dir string) ([]Entry, error) {
	infos, err := h.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{Name: info.Name(), IsDirectory: info.IsDir()})
	}
	return entries, nil
}

func (h aferoHost) ReadFile(name string) ([]byte, error) {
	return h.fs.ReadFile(name)
}

func (h aferoHost) WriteFile(name string, data []byte) error {
	return h.fs.WriteFile(name, data, 0644)
}

func (h aferoHost) MakeDirectory(dir string) error {
	return h.fs.MkdirAll(dir, os.ModeDir|0755)
}

// Load builds an FS from the contents of dir on fsys.
func Load(fsys afero.Fs, dir string, opts ...Option) (*FS, error) {
	return LoadHost(NewHost(fsys), dir, opts...)
}

// LoadHost builds an FS by walking dir through h. Host names and file sizes
// must satisfy the same rules as any other create.
func LoadHost(h Host, dir string, opts ...Option) (*FS, error) {
	fsLogger.Info("Loading tree from host directory %s", dir)
	fs := New(opts...)
	if err := loadDir(h, dir, fs.Root()); err != nil {
		return nil, err
	}
	fsLogger.Debug("Loaded %d nodes from %s", fs.tree.Len(), dir)
	return fs, nil
}

func loadDir(h Host, hostDir string, dir *tree.Directory) error {
	entries, err := h.ListEntries(hostDir)
	if err != nil {
		return fmt.Errorf("list %s: %w", hostDir, err)
	}
	for _, e := range entries {
		hostPath := filepath.Join(hostDir, e.Name)
		if e.IsDirectory {
			sub, err := dir.CreateDirectory(e.Name)
			if err != nil {
				return fmt.Errorf("load %s: %w", hostPath, err)
			}
			if err := loadDir(h, hostPath, sub); err != nil {
				return err
			}
			continue
		}

		data, err := h.ReadFile(hostPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", hostPath, err)
		}
		if _, err := dir.CreateFile(e.Name, data); err != nil {
			return fmt.Errorf("load %s: %w", hostPath, err)
		}
	}
	return nil
}

// Save writes the tree beneath dir on fsys. Existing files with the same
// names are overwritten.
func (fs *FS) Save(fsys afero.Fs, dir string) error {
	return fs.SaveHost(NewHost(fsys), dir)
}

// SaveHost writes the tree beneath dir through h.
func (fs *FS) SaveHost(h Host, dir string) error {
	fsLogger.Info("Saving tree to host directory %s", dir)
	if err := h.MakeDirectory(dir); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return fs.Root().Walk(func(p string, r tree.Resource) error {
		hostPath := filepath.Join(dir, filepath.FromSlash(p))
		switch r := r.(type) {
		case *tree.Directory:
			if err := h.MakeDirectory(hostPath); err != nil {
				return fmt.Errorf("mkdir %s: %w", hostPath, err)
			}
		case *tree.File:
			if err := h.WriteFile(hostPath, r.Contents()); err != nil {
				return fmt.Errorf("write %s: %w", hostPath, err)
			}
		}
		return nil
	})
}
