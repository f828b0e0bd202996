package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/redhat-eets/glpi-helper-scripts/internal/config"
	"github.com/redhat-eets/glpi-helper-scripts/internal/glpi"
	"github.com/redhat-eets/glpi-helper-scripts/internal/inventory"
	"github.com/redhat-eets/glpi-helper-scripts/internal/match"
	"github.com/redhat-eets/glpi-helper-scripts/internal/report"
	"github.com/redhat-eets/glpi-helper-scripts/internal/reserve"
	"github.com/redhat-eets/glpi-helper-scripts/internal/snapshot"
)

func newFilterCommand(opts *rootOptions) *cobra.Command {
	var (
		requirementsPath string
		recordsPath      string
		dbPath           string
		source           string
		all              bool
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Match machine records against resource requirements",
		Long: `Match machine records against resource requirements.

Records come from a YAML file (--records) or the latest snapshot in a
SQLite database written by the import commands (--db). Requirements with a
time window also check reservation conflicts against GLPI. Without --all,
each requirement gets the tightest-fitting machine that no earlier
requirement already claimed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			requirements, err := config.LoadRequirements(requirementsPath)
			if err != nil {
				return err
			}
			if len(requirements) == 0 {
				return fmt.Errorf("no requirements in %s", requirementsPath)
			}

			records, err := loadRecords(recordsPath, dbPath, source)
			if err != nil {
				return err
			}

			// Reservation conflicts only matter when a requirement names a
			// window; skip the session entirely otherwise.
			existing := map[string][]reserve.Reservation{}
			if anyWindow(requirements) {
				client, err := opts.openSession(ctx)
				if err != nil {
					return err
				}
				defer closeSession(ctx, client)
				existing, err = reservationsBySerial(cmd, client)
				if err != nil {
					return err
				}
			}

			candidates := make(map[string][]match.Candidate, len(requirements))
			keys := make([]string, 0, len(requirements))
			var allRows []report.CandidateRow
			for _, named := range requirements {
				keys = append(keys, named.Key)
				req := named.Requirement
				window := reserve.Window{Start: req.Start, End: req.End}

				for _, rec := range records {
					if !match.Matches(rec, req) {
						continue
					}
					if !req.Start.IsZero() && !reserve.Available(rec, existing[rec.Identifier], window) {
						continue
					}
					c := match.Candidate{
						Identifier: rec.Identifier,
						Name:       rec.Hostname,
						Weight:     match.Weight(rec, req),
					}
					candidates[named.Key] = append(candidates[named.Key], c)
					allRows = append(allRows, report.CandidateRow{
						Requirement: named.Key,
						Identifier:  c.Identifier,
						Name:        c.Name,
						Weight:      c.Weight,
					})
				}
			}

			if all {
				report.CandidateTable(cmd.OutOrStdout(), allRows)
				return nil
			}

			assignment := match.Assign(keys, candidates)
			var rows []report.CandidateRow
			for _, key := range keys {
				choice, ok := assignment.Choices[key]
				if !ok {
					slog.Warn("requirement unfulfillable", "requirement", key)
					continue
				}
				rows = append(rows, report.CandidateRow{
					Requirement: key,
					Identifier:  choice.Identifier,
					Name:        choice.Name,
					Weight:      choice.Weight,
				})
			}
			report.CandidateTable(cmd.OutOrStdout(), rows)
			if !assignment.Fulfilled {
				return fmt.Errorf("not every requirement could be assigned a machine")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&requirementsPath, "requirements", "", "requirement YAML file (required)")
	cmd.Flags().StringVar(&recordsPath, "records", "", "machine record YAML file")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite snapshot database written by the import commands")
	cmd.Flags().StringVar(&source, "source", "import", "snapshot source to read with --db")
	cmd.Flags().BoolVar(&all, "all", false, "list every matching machine instead of a recommendation")
	cobra.CheckErr(cmd.MarkFlagRequired("requirements"))
	return cmd
}

func loadRecords(recordsPath, dbPath, source string) ([]inventory.MachineRecord, error) {
	switch {
	case recordsPath != "":
		data, err := os.ReadFile(recordsPath)
		if err != nil {
			return nil, fmt.Errorf("read records: %w", err)
		}
		var records []inventory.MachineRecord
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse records %s: %w", recordsPath, err)
		}
		return records, nil
	case dbPath != "":
		store, err := snapshot.New(dbPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		run, err := store.LatestRun(source)
		if err != nil {
			return nil, fmt.Errorf("no snapshot for source %q in %s: %w", source, dbPath, err)
		}
		return store.Records(run.ID)
	default:
		return nil, fmt.Errorf("machine records missing: pass --records or --db")
	}
}

func anyWindow(requirements []config.NamedRequirement) bool {
	for _, named := range requirements {
		if !named.Requirement.Start.IsZero() {
			return true
		}
	}
	return false
}

// reservationsBySerial maps computer serial to that machine's reservations
// with parsed windows. Reservations with unparseable timestamps are logged
// and skipped.
func reservationsBySerial(cmd *cobra.Command, client *glpi.Client) (map[string][]reserve.Reservation, error) {
	ctx := cmd.Context()

	reservations, err := client.Reservations(ctx)
	if err != nil {
		return nil, err
	}
	items, err := client.ReservationItems(ctx)
	if err != nil {
		return nil, err
	}
	computers, err := client.Computers(ctx)
	if err != nil {
		return nil, err
	}

	serials := make(map[int]string, len(computers))
	for _, c := range computers {
		serials[c.ID] = c.Serial
	}
	itemSerial := make(map[int]string, len(items))
	for _, item := range items {
		if item.ItemType != "Computer" {
			continue
		}
		itemSerial[item.ID] = serials[item.ItemsID]
	}

	out := make(map[string][]reserve.Reservation)
	for _, r := range reservations {
		serial, ok := itemSerial[r.ReservationItemsID]
		if !ok || serial == "" {
			continue
		}
		begin, err := glpi.ParseTime(r.Begin)
		if err != nil {
			slog.Warn("skipping reservation with bad begin", "id", r.ID, "error", err)
			continue
		}
		end, err := glpi.ParseTime(r.End)
		if err != nil {
			slog.Warn("skipping reservation with bad end", "id", r.ID, "error", err)
			continue
		}
		out[serial] = append(out[serial], reserve.Reservation{
			Machine: serial,
			Window:  reserve.Window{Start: begin, End: end},
			Comment: r.Comment,
		})
	}
	return out, nil
}
