package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redhat-eets/glpi-helper-scripts/internal/glpi"
	"github.com/redhat-eets/glpi-helper-scripts/internal/inventory"
)

// pushRecord ensures a machine record exists in GLPI: dropdown values first
// (manufacturer, model), then the computer itself keyed by serial, then its
// reservation item. Returns the computer id.
func pushRecord(ctx context.Context, client *glpi.Client, rec inventory.MachineRecord, overwrite bool, extraComment string) (int, error) {
	comment := specComment(rec)
	if extraComment != "" {
		comment += "\n" + extraComment
	}
	input := map[string]any{
		"name":    rec.Hostname,
		"serial":  rec.Identifier,
		"comment": comment,
	}
	if rec.UUID != "" && rec.UUID != inventory.Unspecified {
		input["uuid"] = rec.UUID
	}

	if rec.Manufacturer != inventory.Unspecified {
		id, _, err := client.EnsureItem(ctx, "Manufacturer",
			map[string]any{"name": rec.Manufacturer}, map[string]any{"name": rec.Manufacturer})
		if err != nil {
			return 0, fmt.Errorf("ensure manufacturer %q: %w", rec.Manufacturer, err)
		}
		input["manufacturers_id"] = id
	}
	if rec.Model != inventory.Unspecified {
		id, _, err := client.EnsureItem(ctx, "ComputerModel",
			map[string]any{"name": rec.Model}, map[string]any{"name": rec.Model})
		if err != nil {
			return 0, fmt.Errorf("ensure model %q: %w", rec.Model, err)
		}
		input["computermodels_id"] = id
	}

	computerID, found, err := client.SearchID(ctx, "Computer", map[string]any{"serial": rec.Identifier})
	if err != nil {
		return 0, fmt.Errorf("search computer %q: %w", rec.Identifier, err)
	}
	switch {
	case !found:
		computerID, err = client.Create(ctx, "Computer", input)
		if err != nil {
			return 0, fmt.Errorf("create computer %q: %w", rec.Identifier, err)
		}
		slog.Info("created computer", "serial", rec.Identifier, "id", computerID)
	case overwrite:
		if err := client.Update(ctx, "Computer", computerID, input); err != nil {
			return 0, fmt.Errorf("update computer %q: %w", rec.Identifier, err)
		}
		slog.Info("updated computer", "serial", rec.Identifier, "id", computerID)
	default:
		slog.Info("computer exists, skipping update", "serial", rec.Identifier, "id", computerID)
	}

	itemInput := glpi.ReservationItem{ItemType: "Computer", ItemsID: computerID, IsActive: 1}
	if _, _, err := client.EnsureItem(ctx, "ReservationItem",
		map[string]any{"itemtype": "Computer", "items_id": computerID}, itemInput); err != nil {
		return 0, fmt.Errorf("ensure reservation item for %q: %w", rec.Identifier, err)
	}
	return computerID, nil
}

// specComment renders the hardware summary stored in the computer's comment
// field, where reservation emails and the web UI surface it.
func specComment(rec inventory.MachineRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "sockets=%d cores=%d ram_mb=%d\n", rec.Sockets, rec.Cores, rec.RAMMB)
	if len(rec.GPUs) > 0 {
		fmt.Fprintf(&b, "gpus: %s\n", strings.Join(rec.GPUs, ", "))
	}
	if len(rec.NICs) > 0 {
		fmt.Fprintf(&b, "nics: %s\n", strings.Join(rec.NICs, ", "))
	}
	for _, disk := range rec.Disks {
		fmt.Fprintf(&b, "disk: %s %s %dMB\n", disk.Name, disk.Type, disk.CapacityMB)
	}
	return strings.TrimRight(b.String(), "\n")
}
