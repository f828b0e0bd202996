package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/redhat-eets/glpi-helper-scripts/internal/config"
	"github.com/redhat-eets/glpi-helper-scripts/internal/inventory"
	"github.com/redhat-eets/glpi-helper-scripts/internal/snapshot"
	"github.com/redhat-eets/glpi-helper-scripts/internal/switchport"
)

func newImportCommand(opts *rootOptions) *cobra.Command {
	var (
		test         bool
		overwrite    bool
		accelerators string
		dbPath       string
		switchConfig string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Probe the local machine and register it in GLPI",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			collector := inventory.LocalCollector{}
			if accelerators != "" {
				m, err := config.LoadAcceleratorMap(accelerators)
				if err != nil {
					return err
				}
				collector.Accelerators = m
			}

			rec, err := collector.Collect(ctx)
			if err != nil {
				return err
			}
			if test {
				rec.Identifier += "-TEST"
			}

			portComment := ""
			if switchConfig != "" {
				portComment, err = locatePorts(ctx, switchConfig, rec.MACs)
				if err != nil {
					return err
				}
			}

			client, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeSession(ctx, client)

			if _, err := pushRecord(ctx, client, rec, overwrite, portComment); err != nil {
				return err
			}

			if dbPath != "" {
				store, err := snapshot.New(dbPath)
				if err != nil {
					return err
				}
				defer store.Close()
				runID, err := store.SaveRun("import", time.Now(), []inventory.MachineRecord{rec})
				if err != nil {
					return err
				}
				slog.Info("saved snapshot", "run", runID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&test, "test", false, "suffix the serial with -TEST to keep trial imports separate")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "update the computer when it already exists")
	cmd.Flags().StringVar(&accelerators, "accelerators", "", "YAML map of PCI id to accelerator name")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite snapshot database to record the import in")
	cmd.Flags().StringVar(&switchConfig, "switch-config", "", "switch inventory YAML for port location lookup")
	return cmd
}

// locatePorts asks every configured switch for its MAC table and reports
// which ports carry the machine's interfaces. A switch that cannot be
// reached is logged and skipped.
func locatePorts(ctx context.Context, switchConfig string, macs []string) (string, error) {
	inv, err := config.LoadSwitches(switchConfig)
	if err != nil {
		return "", err
	}

	var lines []string
	for lab, switches := range inv {
		for addr, sw := range switches {
			runner := switchport.NewSSHRunner(addr, sw.Username, sw.Password)
			ports, err := switchport.MapPorts(ctx, runner, sw.Type)
			if err != nil {
				slog.Warn("switch unreachable, skipping", "lab", lab, "switch", addr, "error", err)
				continue
			}
			for _, mac := range macs {
				iface, ok := ports.Lookup(mac)
				if !ok {
					continue
				}
				lines = append(lines, fmt.Sprintf("port: %s %s (%s)", sw.Name, iface, mac))
			}
		}
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n"), nil
}
