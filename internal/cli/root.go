// Package cli wires the simfs commands together.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"simfs/internal/config"
	"simfs/internal/logging"
	"simfs/internal/simfs"
	"simfs/internal/state"
)

var (
	logger = logging.GetLogger()

	// hostFs is where host directories and the state file live.
	hostFs afero.Fs = afero.NewOsFs()

	// settings is resolved once per invocation before any command runs.
	settings = config.Default()
)

var rootFlags struct {
	verbose    bool
	configPath string
	stateFile  string
}

var rootCmd = &cobra.Command{
	Use:   "simfs",
	Short: "A small in-memory filesystem with a compact binary encoding",
	Long: `simfs keeps a tree of directories and small files (at most 255 bytes each)
in memory and encodes it into a compact binary stream.

Without a subcommand simfs starts the interactive shell on the tree stored in
the state file. The tree can also be encoded from and decoded to host
directories, or mounted as a real filesystem through FUSE.

Settings are read from simfs.yaml, then .env, then SIMFS_* environment
variables, then flags.`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
	RunE:              runShell,
}

// Execute runs the root command
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Enable verbose output for all commands")
	rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", "", "Path to simfs.yaml (default: ./simfs.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.stateFile, "state", "", "State file path (overrides state_file)")
}

func loadSettings(_ *cobra.Command, _ []string) error {
	cfg, err := config.Resolve(".", rootFlags.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if rootFlags.stateFile != "" {
		cfg.StateFile = rootFlags.stateFile
	}

	level := cfg.Level()
	if rootFlags.verbose {
		level = logging.LevelDebug
	}
	logger.SetLevel(level)
	logger.Debug("Configuration: state=%s compress=%v backups=%d", cfg.StateFile, cfg.Compress, cfg.BackupCount)

	settings = cfg
	return nil
}

func fsOptions() []simfs.Option {
	return []simfs.Option{simfs.WithCompressor(settings.Codec())}
}

// openState opens the configured state file and loads the tree stored in it.
func openState() (*state.Manager, *simfs.FS, error) {
	store, err := state.NewManager(hostFs, settings.StateFile,
		state.WithBackupCount(settings.BackupCount),
		state.WithCodec(settings.Codec()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize state manager: %w", err)
	}
	fs, err := store.Load(fsOptions()...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load state: %w", err)
	}
	return store, fs, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
