package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"simfs/internal/compress"
	"simfs/internal/logging"
	"simfs/internal/simfs"
)

var (
	logger = logging.GetLogger().WithPrefix("state")
)

// DefaultBackupCount is how many previous snapshots are kept unless
// WithBackupCount says otherwise.
const DefaultBackupCount = 5

const (
	backupDirName  = ".simfs-backups"
	backupPrefix   = "state-"
	backupExt      = ".json"
	backupStampFmt = "20060102-150405.000000000"
)

// Option configures a Manager.
type Option func(*Manager)

// WithBackupCount sets how many backups to keep. Zero disables backups.
func WithBackupCount(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.backupCount = n
		}
	}
}

// WithCodec selects the codec used for new snapshots. Existing snapshots
// are always read with the codec recorded in them.
func WithCodec(c compress.Codec) Option {
	return func(m *Manager) {
		m.codec = c
	}
}

// Manager handles loading and saving filesystem snapshots
type Manager struct {
	fs          afero.Afero
	statePath   string
	backupDir   string
	backupCount int
	codec       compress.Codec
	now         func() time.Time
	mu          sync.Mutex
}

// NewManager creates a new state manager for the given state file path.
// It ensures the state directory exists and is writable.
func NewManager(fsys afero.Fs, statePath string, opts ...Option) (*Manager, error) {
	logger.Debug("Creating new state manager with path: %s", statePath)

	absPath, err := filepath.Abs(statePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve state path %s: %w", statePath, err)
	}
	logger.Debug("Resolved state path: %s", absPath)

	m := &Manager{
		fs:          afero.Afero{Fs: fsys},
		statePath:   absPath,
		backupDir:   filepath.Join(filepath.Dir(absPath), backupDirName),
		backupCount: DefaultBackupCount,
		codec:       &compress.Zstd{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	stateDir := filepath.Dir(absPath)
	logger.Debug("Ensuring state directory exists: %s", stateDir)
	if err := m.fs.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}

	// Verify we have write permissions without truncating an existing file
	f, err := m.fs.OpenFile(absPath, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create state file %s: %w", absPath, err)
	}
	f.Close()

	if m.backupCount > 0 {
		if err := m.fs.MkdirAll(m.backupDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create backup directory %s: %w", m.backupDir, err)
		}
	}

	logger.Info("State manager initialization complete")
	return m, nil
}

// Path returns the absolute path of the state file.
func (m *Manager) Path() string { return m.statePath }

// Load reads the snapshot and rebuilds the filesystem, restoring the saved
// working directory when it still exists. An empty or missing state file
// yields an empty filesystem.
func (m *Manager) Load(opts ...simfs.Option) (*simfs.FS, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger.Debug("Loading state from: %s", m.statePath)
	data, err := m.fs.ReadFile(m.statePath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if len(data) == 0 {
		logger.Info("No valid state file, starting with an empty tree")
		return simfs.New(opts...), nil
	}

	logger.Debug("Parsing existing state file (%d bytes)", len(data))
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if snap.Version > CurrentVersion {
		return nil, fmt.Errorf("state file version %d is newer than supported version %d", snap.Version, CurrentVersion)
	}

	codec, err := compress.ForName(snap.Codec)
	if err != nil {
		return nil, fmt.Errorf("state file: %w", err)
	}
	raw, err := codec.Decompress(snap.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}
	fs, err := simfs.FromBytes(raw, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	if snap.Cwd != "" && !fs.Chdir(snap.Cwd) {
		logger.Warn("Saved working directory %q no longer exists", snap.Cwd)
	}

	logger.Info("State loaded successfully (saved %s)", snap.SavedAt.Format(time.RFC3339))
	return fs, nil
}

// Save writes a snapshot of fs. It automatically creates a backup of the
// previous snapshot before saving.
func (m *Manager) Save(fs *simfs.FS) error {
	raw, err := fs.Serialize()
	if err != nil {
		return fmt.Errorf("failed to encode tree: %w", err)
	}
	token, err := m.codec.Compress(raw)
	if err != nil {
		return fmt.Errorf("failed to compress tree: %w", err)
	}

	snap := Snapshot{
		Version: CurrentVersion,
		Codec:   m.codec.Name(),
		Data:    token,
		Cwd:     fs.CwdPath(),
		SavedAt: m.now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	logger.Debug("Saving state to: %s", m.statePath)
	if err := m.createBackup(); err != nil {
		logger.Warn("Failed to create backup: %v", err)
		// Continue with save even if backup fails
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	logger.Trace("Writing %d bytes of state data", len(data))
	if err := m.fs.WriteFile(m.statePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	logger.Debug("State saved (%d encoded bytes, codec %s)", len(raw), snap.Codec)
	return nil
}

// Backups lists backup files, newest first.
func (m *Manager) Backups() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listBackups()
}

// createBackup copies the current state file into the backup directory
func (m *Manager) createBackup() error {
	if m.backupCount == 0 {
		return nil
	}

	data, err := m.fs.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	// Skip the placeholder written by NewManager
	if len(data) == 0 {
		return nil
	}

	name := backupPrefix + m.now().UTC().Format(backupStampFmt) + backupExt
	backupPath := filepath.Join(m.backupDir, name)

	logger.Debug("Creating backup: %s", backupPath)
	if err := m.fs.WriteFile(backupPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	return m.cleanupOldBackups()
}

// cleanupOldBackups removes old backup files, keeping only the most recent ones
func (m *Manager) cleanupOldBackups() error {
	backups, err := m.listBackups()
	if err != nil {
		return err
	}

	for i := m.backupCount; i < len(backups); i++ {
		logger.Debug("Removing old backup: %s", backups[i])
		if err := m.fs.Remove(backups[i]); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i], err)
		}
	}
	return nil
}

// listBackups returns backup paths sorted newest first. Names embed a
// fixed-width UTC timestamp, so lexical order is chronological order.
func (m *Manager) listBackups() ([]string, error) {
	entries, err := m.fs.ReadDir(m.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, backupPrefix) || filepath.Ext(name) != backupExt {
			continue
		}
		backups = append(backups, filepath.Join(m.backupDir, name))
	}

	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}
