// Package cli wires the glpictl subcommands. Commands exit nonzero only on
// configuration or connectivity failures; per-machine failures are logged
// and skipped so one broken asset never aborts a batch.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/redhat-eets/glpi-helper-scripts/internal/glpi"
)

type rootOptions struct {
	glpiURL  string
	token    string
	noVerify bool
	verbose  bool
}

// NewRootCommand builds the glpictl command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "glpictl",
		Short:        "Manage lab machines in a GLPI asset database",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.glpiURL, "glpi-url", os.Getenv("GLPI_INSTANCE"),
		"GLPI API root, e.g. https://glpi.example.com/apirest.php (default $GLPI_INSTANCE)")
	flags.StringVar(&opts.token, "token", os.Getenv("GLPI_TOKEN"),
		"GLPI user API token (default $GLPI_TOKEN)")
	flags.BoolVar(&opts.noVerify, "no-verify", false,
		"skip TLS certificate verification")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"enable debug logging")

	root.AddCommand(
		newImportCommand(opts),
		newImportRedfishCommand(opts),
		newUpdateAcceleratorsCommand(opts),
		newComputersCommand(opts),
		newReservationsCommand(opts),
		newFilterCommand(opts),
		newReserveCommand(opts),
		newSwitchPortsCommand(),
		newDiffLDAPCommand(opts),
		newDiffDCIMCommand(opts),
		newCountTagsCommand(opts),
		newTagUnreservableCommand(opts),
		newExporterCommand(opts),
	)
	return root
}

// openSession validates the connection flags and opens a GLPI session. The
// caller closes it.
func (o *rootOptions) openSession(ctx context.Context) (*glpi.Client, error) {
	if o.glpiURL == "" {
		return nil, fmt.Errorf("GLPI URL missing: set --glpi-url or GLPI_INSTANCE")
	}
	if o.token == "" {
		return nil, fmt.Errorf("GLPI token missing: set --token or GLPI_TOKEN")
	}
	client := glpi.NewClient(o.glpiURL, o.token, o.noVerify)
	if err := client.Open(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// closeSession closes the session, logging rather than failing the command;
// the work is already done by the time the session is killed.
func closeSession(ctx context.Context, client *glpi.Client) {
	if err := client.Close(ctx); err != nil {
		slog.Warn("close session", "error", err)
	}
}
