package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/redhat-eets/glpi-helper-scripts/internal/report"
)

func newCountTagsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count-tags",
		Short: "Count how many assets carry each tag",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeSession(ctx, client)

			tags, err := client.Tags(ctx)
			if err != nil {
				return err
			}
			tagItems, err := client.TagItems(ctx)
			if err != nil {
				return err
			}

			names := make(map[int]string, len(tags))
			counts := make(map[string]int, len(tags))
			for _, tag := range tags {
				names[tag.ID] = tag.Name
				counts[tag.Name] = 0
			}
			for _, item := range tagItems {
				name, ok := names[item.PluginTagTags]
				if !ok {
					continue
				}
				counts[name]++
			}

			report.CountTable(cmd.OutOrStdout(), "Tag", counts)
			return nil
		},
	}
}

func newTagUnreservableCommand(opts *rootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "tag-unreservable",
		Short: "Deactivate the reservation items of every computer carrying a tag",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeSession(ctx, client)

			tagID, found, err := client.SearchID(ctx, "PluginTagTag", map[string]any{"name": name})
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("tag %q does not exist", name)
			}

			tagItems, err := client.TagItems(ctx)
			if err != nil {
				return err
			}
			tagged := make(map[int]bool)
			for _, item := range tagItems {
				if item.PluginTagTags == tagID && item.ItemType == "Computer" {
					tagged[item.ItemsID] = true
				}
			}
			if len(tagged) == 0 {
				slog.Info("no computers carry the tag", "tag", name)
				return nil
			}

			items, err := client.ReservationItems(ctx)
			if err != nil {
				return err
			}

			updated, failed := 0, 0
			for _, item := range items {
				if item.ItemType != "Computer" || !tagged[item.ItemsID] || item.IsActive == 0 {
					continue
				}
				err := client.Update(ctx, "ReservationItem", item.ID, map[string]any{"is_active": 0})
				if err != nil {
					slog.Error("deactivate reservation item, skipping", "computer", item.ItemsID, "error", err)
					failed++
					continue
				}
				slog.Info("made unreservable", "computer", item.ItemsID)
				updated++
			}
			slog.Info("tag-unreservable done", "tag", name, "updated", updated, "failed", failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "tag name (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("name"))
	return cmd
}
