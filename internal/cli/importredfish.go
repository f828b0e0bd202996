package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/redhat-eets/glpi-helper-scripts/internal/config"
	"github.com/redhat-eets/glpi-helper-scripts/internal/inventory"
	"github.com/redhat-eets/glpi-helper-scripts/internal/snapshot"
)

func newImportRedfishCommand(opts *rootOptions) *cobra.Command {
	var (
		bmcList   string
		username  string
		password  string
		overwrite bool
		dbPath    string
	)

	cmd := &cobra.Command{
		Use:   "import-redfish",
		Short: "Import machines out of band through their BMCs",
		Long: `Import machines out of band through their BMCs.

The BMC list is a YAML sequence of {endpoint, username, password}. Entries
without credentials fall back to --username/--password. A BMC that cannot
be probed is logged and skipped; only session or configuration problems
fail the command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			bmcs, err := config.LoadBMCs(bmcList)
			if err != nil {
				return err
			}

			client, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeSession(ctx, client)

			var records []inventory.MachineRecord
			failures := 0
			for _, bmc := range bmcs {
				user, pass := bmc.Username, bmc.Password
				if user == "" {
					user, pass = username, password
				}
				collector := inventory.RedfishCollector{
					Endpoint: bmc.Endpoint,
					Username: user,
					Password: pass,
					Insecure: opts.noVerify,
				}
				rec, err := collector.Collect()
				if err != nil {
					slog.Error("probe bmc", "endpoint", bmc.Endpoint, "error", err)
					failures++
					continue
				}
				if _, err := pushRecord(ctx, client, rec, overwrite, ""); err != nil {
					slog.Error("register machine", "endpoint", bmc.Endpoint, "serial", rec.Identifier, "error", err)
					failures++
					continue
				}
				records = append(records, rec)
			}

			if dbPath != "" && len(records) > 0 {
				store, err := snapshot.New(dbPath)
				if err != nil {
					return err
				}
				defer store.Close()
				runID, err := store.SaveRun("redfish", time.Now(), records)
				if err != nil {
					return err
				}
				slog.Info("saved snapshot", "run", runID, "machines", len(records))
			}

			slog.Info("redfish import done", "imported", len(records), "failed", failures)
			if len(records) == 0 && failures > 0 {
				return fmt.Errorf("all %d BMCs failed", failures)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bmcList, "bmc-list", "", "YAML list of BMC endpoints (required)")
	cmd.Flags().StringVar(&username, "username", "", "default BMC username")
	cmd.Flags().StringVar(&password, "password", "", "default BMC password")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "update computers that already exist")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite snapshot database to record the import in")
	cobra.CheckErr(cmd.MarkFlagRequired("bmc-list"))
	return cmd
}
