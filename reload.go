package main

import (
	"github.com/spf13/cobra"
)

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask the running daemon to re-read its config file",
		Long: `Send SIGHUP to the running daemon. The daemon re-reads the config file and
applies the new timeouts on its next sweep. If the file does not parse, the
daemon keeps its current settings and logs the error.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if err := sendSIGHUP(cc.pidPath); err != nil {
				return err
			}

			cc.Statusf("Reload requested.\n")

			return nil
		},
	}
}
