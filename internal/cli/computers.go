package cli

import (
	"github.com/spf13/cobra"

	"github.com/redhat-eets/glpi-helper-scripts/internal/report"
)

func newComputersCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "computers",
		Short: "List the computers GLPI knows about",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeSession(ctx, client)

			computers, err := client.Computers(ctx)
			if err != nil {
				return err
			}
			report.ComputerTable(cmd.OutOrStdout(), computers)
			return nil
		},
	}
}
