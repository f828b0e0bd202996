package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/redhat-eets/glpi-helper-scripts/internal/config"
	"github.com/redhat-eets/glpi-helper-scripts/internal/ldapsync"
	"github.com/redhat-eets/glpi-helper-scripts/internal/report"
)

func newDiffLDAPCommand(opts *rootOptions) *cobra.Command {
	var (
		groupMapPath string
		ldapServer   string
		baseDN       string
		bindDN       string
		bindPassword string
		apply        bool
	)

	cmd := &cobra.Command{
		Use:   "diff-ldap",
		Short: "Compare directory group membership against GLPI groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			groupMap, err := config.LoadGroupMap(groupMapPath)
			if err != nil {
				return err
			}
			cns := make([]string, 0, len(groupMap))
			for cn := range groupMap {
				cns = append(cns, cn)
			}

			dir, err := ldapsync.Connect(ldapServer, bindDN, bindPassword)
			if err != nil {
				return err
			}
			defer dir.Close()

			dirGroups, err := ldapsync.FetchGroups(dir, baseDN, cns)
			if err != nil {
				return err
			}

			client, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeSession(ctx, client)

			groups, err := client.Groups(ctx)
			if err != nil {
				return err
			}
			users, err := client.Users(ctx)
			if err != nil {
				return err
			}
			memberships, err := client.GroupMemberships(ctx)
			if err != nil {
				return err
			}

			plan := ldapsync.BuildPlan(dirGroups, groupMap, groups, users, memberships)

			out := cmd.OutOrStdout()
			pairs := make([][2]string, 0, len(plan.Additions))
			for _, add := range plan.Additions {
				pairs = append(pairs, [2]string{add.Group, add.User})
			}
			fmt.Fprintln(out, "Members missing from GLPI groups:")
			report.PairTable(out, "Group", "User", pairs)
			for _, uid := range plan.MissingUsers {
				fmt.Fprintf(out, "no GLPI account for directory uid %q\n", uid)
			}
			for _, group := range plan.MissingGroups {
				fmt.Fprintf(out, "GLPI group %q does not exist\n", group)
			}

			if !apply {
				return nil
			}
			if failures := ldapsync.Apply(ctx, client, plan, slog.Default()); failures > 0 {
				return fmt.Errorf("%d membership additions failed", failures)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&groupMapPath, "ldap-config", "", "YAML map of directory CN to GLPI group name (required)")
	cmd.Flags().StringVar(&ldapServer, "ldap-server", "", "directory URL, e.g. ldaps://ldap.example.com (required)")
	cmd.Flags().StringVar(&baseDN, "base-dn", "", "search base for group lookups (required)")
	cmd.Flags().StringVar(&bindDN, "bind-dn", "", "bind DN; empty binds anonymously")
	cmd.Flags().StringVar(&bindPassword, "bind-password", "", "bind password")
	cmd.Flags().BoolVar(&apply, "apply", false, "create the missing memberships instead of only reporting")
	cobra.CheckErr(cmd.MarkFlagRequired("ldap-config"))
	cobra.CheckErr(cmd.MarkFlagRequired("ldap-server"))
	cobra.CheckErr(cmd.MarkFlagRequired("base-dn"))
	return cmd
}
