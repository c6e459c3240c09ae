package main

import (
	"fmt"

	"github.com/jrsteele09/payslip-server/cleanup"
	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge-sessions",
	Short: "Delete expired sessions once and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), c)
		if err != nil {
			return err
		}
		defer a.Close()

		deleted, err := cleanup.New(a.manager, c.GetSessionCleanupInterval()).RunOnce(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired sessions\n", deleted)
		return err
	},
}
