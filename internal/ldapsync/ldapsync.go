// Package ldapsync keeps asset-database group membership aligned with the
// directory service. Group CNs come from a configured map of directory group
// to asset-database group; members are collected from owner and uniqueMember
// attributes.
package ldapsync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/redhat-eets/glpi-helper-scripts/internal/glpi"
)

// Directory is the slice of *ldap.Conn the fetcher needs.
type Directory interface {
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
}

// Connect dials the directory and binds. An empty bindDN performs an
// anonymous bind.
func Connect(url, bindDN, bindPassword string) (*ldap.Conn, error) {
	conn, err := ldap.DialURL(url)
	if err != nil {
		return nil, fmt.Errorf("dial directory %s: %w", url, err)
	}
	if bindDN != "" {
		if err := conn.Bind(bindDN, bindPassword); err != nil {
			conn.Close()
			return nil, fmt.Errorf("bind as %s: %w", bindDN, err)
		}
	}
	return conn, nil
}

// FetchGroups looks up each directory group by CN under baseDN and returns
// its member uids, sorted and deduplicated. A group missing from the
// directory is an error; the configured map is expected to be accurate.
func FetchGroups(dir Directory, baseDN string, cns []string) (map[string][]string, error) {
	out := make(map[string][]string, len(cns))
	for _, cn := range cns {
		req := ldap.NewSearchRequest(
			baseDN,
			ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
			fmt.Sprintf("(cn=%s)", ldap.EscapeFilter(cn)),
			[]string{"owner", "uniqueMember"},
			nil,
		)
		res, err := dir.Search(req)
		if err != nil {
			return nil, fmt.Errorf("search group %q: %w", cn, err)
		}
		if len(res.Entries) == 0 {
			return nil, fmt.Errorf("group %q: not found under %s", cn, baseDN)
		}

		seen := make(map[string]bool)
		for _, entry := range res.Entries {
			for _, attr := range []string{"owner", "uniqueMember"} {
				for _, dn := range entry.GetAttributeValues(attr) {
					uid, ok := UIDFromDN(dn)
					if !ok {
						continue
					}
					seen[uid] = true
				}
			}
		}
		members := make([]string, 0, len(seen))
		for uid := range seen {
			members = append(members, uid)
		}
		sort.Strings(members)
		out[cn] = members
	}
	return out, nil
}

// UIDFromDN extracts the uid value from a member DN such as
// "uid=alice,ou=users,dc=example,dc=com". The second return is false when
// the DN has no uid RDN.
func UIDFromDN(dn string) (string, bool) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return "", false
	}
	for _, rdn := range parsed.RDNs {
		for _, attr := range rdn.Attributes {
			if strings.EqualFold(attr.Type, "uid") {
				return attr.Value, true
			}
		}
	}
	return "", false
}

// Addition is one membership the asset database is missing.
type Addition struct {
	Group   string
	GroupID int
	User    string
	UserID  int
}

// Plan is the computed difference between directory membership and
// asset-database membership.
type Plan struct {
	// Additions are memberships to create, in group then user order.
	Additions []Addition
	// MissingUsers are directory uids with no asset-database account. They
	// are reported, never auto-created.
	MissingUsers []string
	// MissingGroups are configured asset-database groups that do not exist.
	MissingGroups []string
}

// BuildPlan compares directory membership against current state. groupMap
// maps directory CN to asset-database group name.
func BuildPlan(dirGroups map[string][]string, groupMap map[string]string,
	groups []glpi.Group, users []glpi.User, memberships []glpi.GroupMembership) Plan {

	groupIDs := make(map[string]int, len(groups))
	for _, g := range groups {
		groupIDs[g.Name] = g.ID
	}
	userIDs := make(map[string]int, len(users))
	for _, u := range users {
		userIDs[u.Name] = u.ID
	}
	member := make(map[[2]int]bool, len(memberships))
	for _, m := range memberships {
		member[[2]int{m.GroupsID, m.UsersID}] = true
	}

	var plan Plan
	missingUser := make(map[string]bool)

	cns := make([]string, 0, len(dirGroups))
	for cn := range dirGroups {
		cns = append(cns, cn)
	}
	sort.Strings(cns)

	for _, cn := range cns {
		groupName, ok := groupMap[cn]
		if !ok {
			continue
		}
		groupID, ok := groupIDs[groupName]
		if !ok {
			plan.MissingGroups = append(plan.MissingGroups, groupName)
			continue
		}
		for _, uid := range dirGroups[cn] {
			userID, ok := userIDs[uid]
			if !ok {
				if !missingUser[uid] {
					missingUser[uid] = true
					plan.MissingUsers = append(plan.MissingUsers, uid)
				}
				continue
			}
			if member[[2]int{groupID, userID}] {
				continue
			}
			plan.Additions = append(plan.Additions, Addition{
				Group: groupName, GroupID: groupID, User: uid, UserID: userID,
			})
		}
	}
	sort.Strings(plan.MissingUsers)
	return plan
}

// Apply creates the planned memberships. A failed addition is logged and
// skipped; the error count comes back so the caller can set the exit status.
func Apply(ctx context.Context, client *glpi.Client, plan Plan, logger *slog.Logger) int {
	failures := 0
	for _, add := range plan.Additions {
		_, err := client.Create(ctx, "Group_User", glpi.GroupMembership{
			GroupsID: add.GroupID,
			UsersID:  add.UserID,
		})
		if err != nil {
			logger.Error("add group member", "group", add.Group, "user", add.User, "error", err)
			failures++
			continue
		}
		logger.Info("added group member", "group", add.Group, "user", add.User)
	}
	return failures
}
