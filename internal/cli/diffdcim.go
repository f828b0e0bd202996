package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/redhat-eets/glpi-helper-scripts/internal/recon"
	"github.com/redhat-eets/glpi-helper-scripts/internal/report"
)

func newDiffDCIMCommand(opts *rootOptions) *cobra.Command {
	var (
		dcimURL  string
		username string
		password string
		email    report.EmailSettings
	)

	cmd := &cobra.Command{
		Use:   "diff-dcim",
		Short: "Reconcile GLPI serials against the DCIM inventory",
		Long: `Reconcile GLPI serials against the DCIM inventory.

Serials are compared case-insensitively. When --recipient, --sender, and
--email-server are all given, the result is also mailed; giving only some
of the three is an error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := email.Validate(); err != nil {
				return err
			}

			client, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeSession(ctx, client)

			computers, err := client.Computers(ctx)
			if err != nil {
				return err
			}
			var glpiSerials []string
			for _, c := range computers {
				if c.Serial != "" {
					glpiSerials = append(glpiSerials, c.Serial)
				}
			}

			dcim := recon.NewDCIMClient(dcimURL, username, password, opts.noVerify)
			dcimSerials, err := dcim.Serials(ctx)
			if err != nil {
				return err
			}

			upper := func(s string) string { return strings.ToUpper(s) }
			onlyGLPI, onlyDCIM := recon.Diff(glpiSerials, dcimSerials, upper)

			report.DiffTable(cmd.OutOrStdout(), "glpi", "dcim", onlyGLPI, onlyDCIM)

			if email.Enabled() {
				body := report.DiffText("glpi", "dcim", onlyGLPI, onlyDCIM)
				if err := email.Send("GLPI/DCIM inventory diff", body); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dcimURL, "dcim-url", "", "DCIM API root (required)")
	cmd.Flags().StringVar(&username, "username", "", "DCIM username")
	cmd.Flags().StringVar(&password, "password", "", "DCIM password")
	cmd.Flags().StringVar(&email.Recipient, "recipient", "", "email report recipient")
	cmd.Flags().StringVar(&email.Sender, "sender", "", "email report sender")
	cmd.Flags().StringVar(&email.Server, "email-server", "", "SMTP server for the email report")
	cobra.CheckErr(cmd.MarkFlagRequired("dcim-url"))
	return cmd
}
