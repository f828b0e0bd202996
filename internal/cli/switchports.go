package cli

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/redhat-eets/glpi-helper-scripts/internal/config"
	"github.com/redhat-eets/glpi-helper-scripts/internal/report"
	"github.com/redhat-eets/glpi-helper-scripts/internal/switchport"
)

func newSwitchPortsCommand() *cobra.Command {
	var switchConfig string

	cmd := &cobra.Command{
		Use:   "switch-ports",
		Short: "Dump the MAC tables of the configured lab switches",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			inv, err := config.LoadSwitches(switchConfig)
			if err != nil {
				return err
			}

			failed := 0
			reached := 0
			for lab, switches := range inv {
				for addr, sw := range switches {
					runner := switchport.NewSSHRunner(addr, sw.Username, sw.Password)
					ports, err := switchport.MapPorts(ctx, runner, sw.Type)
					if err != nil {
						slog.Error("switch unreachable, skipping", "lab", lab, "switch", addr, "error", err)
						failed++
						continue
					}
					reached++

					fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", lab, sw.Name, addr)
					pairs := make([][2]string, 0, len(ports.ByMAC))
					for mac, iface := range ports.ByMAC {
						pairs = append(pairs, [2]string{mac, iface})
					}
					sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
					report.PairTable(cmd.OutOrStdout(), "MAC", "Interface", pairs)
				}
			}

			if reached == 0 && failed > 0 {
				return fmt.Errorf("all %d switches failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&switchConfig, "switch-config", "", "switch inventory YAML (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("switch-config"))
	return cmd
}
