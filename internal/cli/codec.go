package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"simfs/internal/simfs"
)

var encodeFlags struct {
	output string
}

var encodeCmd = &cobra.Command{
	Use:   "encode <hostdir>",
	Short: "Encode a host directory",
	Long: `Read a host directory into a tree and print its compressed token.

With --output the uncompressed wire bytes are written to a file instead.
Every name and file on the host must be valid in simfs: names of at most 255
single-byte characters and files of at most 255 bytes.`,
	Args: cobra.ExactArgs(1),
	RunE: runEncode,
}

var decodeCmd = &cobra.Command{
	Use:   "decode <token|file> <outdir>",
	Short: "Decode a token or wire file into a host directory",
	Long: `Decode a tree and write it beneath a host directory.

If the first argument names an existing file it is read as uncompressed wire
bytes, otherwise it is taken as a compressed token. Existing files in the
output directory with the same names are overwritten.`,
	Args: cobra.ExactArgs(2),
	RunE: runDecode,
}

func init() {
	encodeCmd.Flags().StringVarP(&encodeFlags.output, "output", "o", "", "Write raw wire bytes to this file")
	rootCmd.AddCommand(encodeCmd, decodeCmd)
}

func runEncode(cmd *cobra.Command, args []string) error {
	fs, err := simfs.Load(hostFs, args[0], fsOptions()...)
	if err != nil {
		return err
	}

	if encodeFlags.output != "" {
		b, err := fs.Serialize()
		if err != nil {
			return err
		}
		if err := afero.WriteFile(hostFs, encodeFlags.output, b, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", encodeFlags.output, err)
		}
		logger.Info("Wrote %d bytes to %s", len(b), encodeFlags.output)
		return nil
	}

	token, err := fs.SerializeToken()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	input, outDir := args[0], args[1]

	var (
		fs  *simfs.FS
		err error
	)
	isFile, statErr := afero.Exists(hostFs, input)
	if statErr == nil && isFile {
		b, readErr := afero.ReadFile(hostFs, input)
		if readErr != nil {
			return fmt.Errorf("failed to read %s: %w", input, readErr)
		}
		fs, err = simfs.FromBytes(b, fsOptions()...)
	} else {
		fs, err = simfs.FromToken(input, fsOptions()...)
	}
	if err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}

	if err := fs.Save(hostFs, outDir); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d resources to %s\n", fs.Tree().Len()-1, outDir)
	return nil
}
