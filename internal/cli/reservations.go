package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/redhat-eets/glpi-helper-scripts/internal/glpi"
	"github.com/redhat-eets/glpi-helper-scripts/internal/report"
)

func newReservationsCommand(opts *rootOptions) *cobra.Command {
	var (
		identifier string
		user       string
		jira       string
		asYAML     bool
	)

	cmd := &cobra.Command{
		Use:   "reservations",
		Short: "List reservations with their machines and users resolved",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeSession(ctx, client)

			rows, err := fetchReservationRows(cmd, client)
			if err != nil {
				return err
			}

			filtered := filterReservationRows(rows, identifier, user, jira)

			if asYAML {
				out, err := yaml.Marshal(filtered)
				if err != nil {
					return fmt.Errorf("encode reservations: %w", err)
				}
				cmd.Print(string(out))
				return nil
			}
			report.ReservationTable(cmd.OutOrStdout(), filtered)
			return nil
		},
	}

	cmd.Flags().StringVar(&identifier, "identifier", "", "only reservations for this machine name")
	cmd.Flags().StringVar(&user, "user", "", "only reservations held by this user")
	cmd.Flags().StringVar(&jira, "jira", "", "only reservations tagged with this work item")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print YAML instead of a table")
	return cmd
}

// filterReservationRows keeps rows matching every given filter. The work-item
// tag is the first line of the comment, the way the reserve command writes it.
func filterReservationRows(rows []report.ReservationRow, identifier, user, jira string) []report.ReservationRow {
	var filtered []report.ReservationRow
	for _, row := range rows {
		if identifier != "" && row.Machine != identifier {
			continue
		}
		if user != "" && row.User != user {
			continue
		}
		if jira != "" && commentTag(row.Comment) != jira {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered
}

// commentTag returns the first line of a reservation comment.
func commentTag(comment string) string {
	tag, _, _ := strings.Cut(comment, "\n")
	return strings.TrimSpace(tag)
}

// fetchReservationRows joins reservations through reservation items to
// computer names and through users_id to login names. Dangling references
// keep the raw id so the row is still visible.
func fetchReservationRows(cmd *cobra.Command, client *glpi.Client) ([]report.ReservationRow, error) {
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
	users, err := client.Users(ctx)
	if err != nil {
		return nil, err
	}

	computerNames := make(map[int]string, len(computers))
	for _, c := range computers {
		computerNames[c.ID] = c.Name
	}
	itemMachine := make(map[int]string, len(items))
	for _, item := range items {
		if item.ItemType != "Computer" {
			continue
		}
		name, ok := computerNames[item.ItemsID]
		if !ok {
			name = fmt.Sprintf("computer #%d", item.ItemsID)
		}
		itemMachine[item.ID] = name
	}
	userNames := make(map[int]string, len(users))
	for _, u := range users {
		userNames[u.ID] = u.Name
	}

	rows := make([]report.ReservationRow, 0, len(reservations))
	for _, r := range reservations {
		machine, ok := itemMachine[r.ReservationItemsID]
		if !ok {
			machine = fmt.Sprintf("item #%d", r.ReservationItemsID)
		}
		userName, ok := userNames[r.UsersID]
		if !ok {
			userName = fmt.Sprintf("user #%d", r.UsersID)
		}
		rows = append(rows, report.ReservationRow{
			Machine: machine,
			User:    userName,
			Begin:   r.Begin,
			End:     r.End,
			Comment: r.Comment,
		})
	}
	return rows, nil
}
