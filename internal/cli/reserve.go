package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/redhat-eets/glpi-helper-scripts/internal/glpi"
	"github.com/redhat-eets/glpi-helper-scripts/internal/reserve"
)

func newReserveCommand(opts *rootOptions) *cobra.Command {
	var listPath string

	cmd := &cobra.Command{
		Use:   "reserve",
		Short: "Create reservations from a batch YAML file",
		Long: `Create reservations from a batch YAML file.

The file sets global username, start, end, comment, and jira values, and a
servers mapping of machine name to per-machine overrides. An override set
to null drops the field for that machine; username, start, and end must
resolve to a value. Machines are processed in file order; one that fails
(unknown name, window conflict) is logged and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(listPath)
			if err != nil {
				return fmt.Errorf("read reservation file: %w", err)
			}
			spec, err := reserve.ParseBatchSpec(data)
			if err != nil {
				return err
			}
			reservations, err := spec.Resolve()
			if err != nil {
				return err
			}

			client, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeSession(ctx, client)

			created, failed, err := createReservations(ctx, client, reservations)
			if err != nil {
				return err
			}
			slog.Info("reservation batch done", "created", created, "failed", failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&listPath, "list", "", "batch reservation YAML file (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("list"))
	return cmd
}

// createReservations books each resolved reservation, checking conflicts
// client-side because GLPI accepts overlapping reservations. Reservations
// created earlier in the same batch count as existing.
func createReservations(ctx context.Context, client *glpi.Client, reservations []reserve.Reservation) (created, failed int, err error) {
	computers, err := client.Computers(ctx)
	if err != nil {
		return 0, 0, err
	}
	items, err := client.ReservationItems(ctx)
	if err != nil {
		return 0, 0, err
	}
	users, err := client.Users(ctx)
	if err != nil {
		return 0, 0, err
	}
	existing, err := client.Reservations(ctx)
	if err != nil {
		return 0, 0, err
	}

	computerByName := make(map[string]int, len(computers))
	for _, c := range computers {
		computerByName[c.Name] = c.ID
	}
	itemByComputer := make(map[int]glpi.ReservationItem, len(items))
	for _, item := range items {
		if item.ItemType == "Computer" {
			itemByComputer[item.ItemsID] = item
		}
	}
	userByName := make(map[string]int, len(users))
	for _, u := range users {
		userByName[u.Name] = u.ID
	}

	booked := make(map[int][]reserve.Reservation)
	for _, r := range existing {
		begin, err := glpi.ParseTime(r.Begin)
		if err != nil {
			continue
		}
		end, err := glpi.ParseTime(r.End)
		if err != nil {
			continue
		}
		booked[r.ReservationItemsID] = append(booked[r.ReservationItemsID],
			reserve.Reservation{Window: reserve.Window{Start: begin, End: end}})
	}

	for _, r := range reservations {
		computerID, ok := computerByName[r.Machine]
		if !ok {
			slog.Error("machine not in GLPI, skipping", "machine", r.Machine)
			failed++
			continue
		}
		item, ok := itemByComputer[computerID]
		if !ok || item.IsActive != 1 {
			slog.Error("machine not reservable, skipping", "machine", r.Machine)
			failed++
			continue
		}
		userID, ok := userByName[r.User]
		if !ok {
			slog.Error("user not in GLPI, skipping", "machine", r.Machine, "user", r.User)
			failed++
			continue
		}
		if reserve.Conflicts(booked[item.ID], r.Window) {
			slog.Error("window conflicts with an existing reservation, skipping",
				"machine", r.Machine,
				"start", glpi.FormatTime(r.Window.Start),
				"end", glpi.FormatTime(r.Window.End))
			failed++
			continue
		}

		_, err := client.Create(ctx, "Reservation", glpi.Reservation{
			ReservationItemsID: item.ID,
			UsersID:            userID,
			Begin:              glpi.FormatTime(r.Window.Start),
			End:                glpi.FormatTime(r.Window.End),
			Comment:            r.Comment,
		})
		if err != nil {
			slog.Error("create reservation, skipping", "machine", r.Machine, "error", err)
			failed++
			continue
		}
		booked[item.ID] = append(booked[item.ID], r)
		slog.Info("reserved", "machine", r.Machine, "user", r.User,
			"start", glpi.FormatTime(r.Window.Start), "end", glpi.FormatTime(r.Window.End))
		created++
	}
	return created, failed, nil
}
