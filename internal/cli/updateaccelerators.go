package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/redhat-eets/glpi-helper-scripts/internal/config"
	"github.com/redhat-eets/glpi-helper-scripts/internal/glpi"
	"github.com/redhat-eets/glpi-helper-scripts/internal/inventory"
)

func newUpdateAcceleratorsCommand(opts *rootOptions) *cobra.Command {
	var (
		bmcList      string
		accelerators string
		username     string
		password     string
	)

	cmd := &cobra.Command{
		Use:   "update-accelerators",
		Short: "Re-probe machines over Redfish and refresh their accelerator names",
		Long: `Re-probe machines over Redfish and refresh their accelerator names.

Each listed BMC is probed with the accelerator map applied, and the
machine's existing GLPI record is updated in place. Machines not yet in
GLPI are skipped; registering new ones is the import commands' job.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			accMap, err := config.LoadAcceleratorMap(accelerators)
			if err != nil {
				return err
			}
			bmcs, err := config.LoadBMCs(bmcList)
			if err != nil {
				return err
			}

			client, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeSession(ctx, client)

			updated, skipped, failed := 0, 0, 0
			for _, bmc := range bmcs {
				user, pass := bmc.Username, bmc.Password
				if user == "" {
					user, pass = username, password
				}
				collector := inventory.RedfishCollector{
					Endpoint:     bmc.Endpoint,
					Username:     user,
					Password:     pass,
					Insecure:     opts.noVerify,
					Accelerators: accMap,
				}
				rec, err := collector.Collect()
				if err != nil {
					slog.Error("probe bmc", "endpoint", bmc.Endpoint, "error", err)
					failed++
					continue
				}
				ok, err := refreshRecord(ctx, client, rec)
				if err != nil {
					slog.Error("refresh machine", "endpoint", bmc.Endpoint, "serial", rec.Identifier, "error", err)
					failed++
					continue
				}
				if !ok {
					slog.Warn("machine not in GLPI, skipping", "endpoint", bmc.Endpoint, "serial", rec.Identifier)
					skipped++
					continue
				}
				updated++
			}

			slog.Info("accelerator update done", "updated", updated, "skipped", skipped, "failed", failed)
			if updated == 0 && failed > 0 {
				return fmt.Errorf("all %d BMCs failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bmcList, "bmc-list", "", "YAML list of BMC endpoints (required)")
	cmd.Flags().StringVar(&accelerators, "accelerators", "", "YAML map of PCI id to accelerator name (required)")
	cmd.Flags().StringVar(&username, "username", "", "default BMC username")
	cmd.Flags().StringVar(&password, "password", "", "default BMC password")
	cobra.CheckErr(cmd.MarkFlagRequired("bmc-list"))
	cobra.CheckErr(cmd.MarkFlagRequired("accelerators"))
	return cmd
}

// refreshRecord updates an already-registered machine in place. The second
// return is false when the machine is not in GLPI.
func refreshRecord(ctx context.Context, client *glpi.Client, rec inventory.MachineRecord) (bool, error) {
	_, found, err := client.SearchID(ctx, "Computer", map[string]any{"serial": rec.Identifier})
	if err != nil {
		return false, fmt.Errorf("search computer %q: %w", rec.Identifier, err)
	}
	if !found {
		return false, nil
	}
	if _, err := pushRecord(ctx, client, rec, true, ""); err != nil {
		return false, err
	}
	return true, nil
}
