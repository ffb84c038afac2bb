package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete (-d) or organise (-s) the source directory without converting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(false)
		if err != nil {
			return err
		}
		defer s.Close()

		mode := s.cfg.Cleanup.Kind
		n, err := s.conv.Cleanup()
		if err != nil {
			s.logger.Error("cleanup failed", "err", err, "handled", n)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleanup (%s) handled %d file(s) in %s\n", mode, n, s.cfg.SourceDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
