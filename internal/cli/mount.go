package cli

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"simfs/internal/mount"
	"simfs/internal/tree"
)

var mountFlags struct {
	sync bool
}

var mountCmd = &cobra.Command{
	Use:   "mount <mountpoint>",
	Short: "Mount the stored tree through FUSE",
	Long: `Mount the tree from the state file at mountpoint until interrupted.

Changes are written back to the state file on unmount, or after every change
with --sync. Writes that would grow a file past 255 bytes fail with EFBIG.`,
	Args: cobra.ExactArgs(1),
	RunE: runMount,
}

func init() {
	mountCmd.Flags().BoolVar(&mountFlags.sync, "sync", false, "Save the state file after every change")
	rootCmd.AddCommand(mountCmd)
}

func runMount(cmd *cobra.Command, args []string) error {
	mountpoint := filepath.Clean(args[0])

	store, fs, err := openState()
	if err != nil {
		return err
	}

	dirty := false
	vfs := mount.New(fs.Tree(), mount.WithOnChange(func(*tree.Tree) error {
		if mountFlags.sync {
			return store.Save(fs)
		}
		dirty = true
		return nil
	}))

	logger.Debug("Setting up signal handlers...")
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Serving %s at %s", store.Path(), mountpoint)
	serveErr := vfs.Serve(ctx, mountpoint)

	if dirty {
		logger.Info("Saving changes to %s", store.Path())
		if err := store.Save(fs); err != nil {
			return err
		}
	}
	if serveErr != nil {
		return serveErr
	}
	logger.Info("Clean shutdown complete")
	return nil
}
