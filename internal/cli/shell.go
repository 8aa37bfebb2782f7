package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"simfs/internal/shell"
	"simfs/internal/simfs"
)

var shellFlags struct {
	ephemeral bool
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive shell (default command)",
	Long: `Start the interactive shell on the tree stored in the state file.

The tree is written back to the state file when the shell exits. Use 'save'
inside the shell to persist earlier, or --ephemeral to start from an empty
tree that is never written.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	shellCmd.Flags().BoolVar(&shellFlags.ephemeral, "ephemeral", false, "Start empty and do not touch the state file")
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, _ []string) error {
	opts := []shell.Option{
		shell.WithHost(hostFs),
		shell.WithPrompt(settings.Prompt),
		shell.WithFSOptions(fsOptions()...),
	}

	fs := simfs.New(fsOptions()...)
	var store shell.Store
	if !shellFlags.ephemeral {
		manager, loaded, err := openState()
		if err != nil {
			return err
		}
		fs, store = loaded, manager
		opts = append(opts, shell.WithStore(manager))
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := shell.NewSession(fs, cmd.OutOrStdout(), opts...)
	err := session.Run(ctx, cmd.InOrStdin())
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if store != nil {
		logger.Debug("Persisting tree to state file")
		return store.Save(session.FS())
	}
	return nil
}
