package ldapsync_test

import (
	"reflect"
	"testing"

	"github.com/go-ldap/ldap/v3"

	"github.com/redhat-eets/glpi-helper-scripts/internal/glpi"
	"github.com/redhat-eets/glpi-helper-scripts/internal/ldapsync"
)

func TestUIDFromDN(t *testing.T) {
	tests := []struct {
		dn     string
		want   string
		wantOK bool
	}{
		{"uid=alice,ou=users,dc=example,dc=com", "alice", true},
		{"UID=bob,ou=users,dc=example,dc=com", "bob", true},
		{"cn=some service,ou=robots,dc=example,dc=com", "", false},
		{"not a dn", "", false},
	}
	for _, tt := range tests {
		got, ok := ldapsync.UIDFromDN(tt.dn)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("UIDFromDN(%q): got %q, %v; want %q, %v", tt.dn, got, ok, tt.want, tt.wantOK)
		}
	}
}

type fakeDirectory struct {
	entries map[string][]*ldap.Entry
}

func (f *fakeDirectory) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	return &ldap.SearchResult{Entries: f.entries[req.Filter]}, nil
}

func groupEntry(dn string, members ...string) *ldap.Entry {
	return &ldap.Entry{
		DN: dn,
		Attributes: []*ldap.EntryAttribute{
			{Name: "uniqueMember", Values: members},
		},
	}
}

func TestFetchGroups(t *testing.T) {
	dir := &fakeDirectory{entries: map[string][]*ldap.Entry{
		"(cn=lab-operators)": {groupEntry(
			"cn=lab-operators,ou=groups,dc=example,dc=com",
			"uid=alice,ou=users,dc=example,dc=com",
			"uid=bob,ou=users,dc=example,dc=com",
			"uid=alice,ou=users,dc=example,dc=com",
			"cn=pipeline,ou=robots,dc=example,dc=com",
		)},
	}}

	got, err := ldapsync.FetchGroups(dir, "dc=example,dc=com", []string{"lab-operators"})
	if err != nil {
		t.Fatalf("FetchGroups: %v", err)
	}
	want := map[string][]string{"lab-operators": {"alice", "bob"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFetchGroups_MissingGroupIsAnError(t *testing.T) {
	dir := &fakeDirectory{entries: map[string][]*ldap.Entry{}}
	_, err := ldapsync.FetchGroups(dir, "dc=example,dc=com", []string{"no-such-group"})
	if err == nil {
		t.Fatal("expected error for missing group")
	}
}

func TestBuildPlan(t *testing.T) {
	dirGroups := map[string][]string{
		"lab-operators": {"alice", "bob", "ghost"},
		"lab-admins":    {"alice"},
		"unmapped":      {"carol"},
	}
	groupMap := map[string]string{
		"lab-operators": "Lab Operators",
		"lab-admins":    "Lab Admins",
	}
	groups := []glpi.Group{{ID: 10, Name: "Lab Operators"}}
	users := []glpi.User{{ID: 1, Name: "alice"}, {ID: 2, Name: "bob"}}
	memberships := []glpi.GroupMembership{{GroupsID: 10, UsersID: 1}}

	plan := ldapsync.BuildPlan(dirGroups, groupMap, groups, users, memberships)

	// alice is already a member; only bob needs adding.
	wantAdd := []ldapsync.Addition{{Group: "Lab Operators", GroupID: 10, User: "bob", UserID: 2}}
	if !reflect.DeepEqual(plan.Additions, wantAdd) {
		t.Errorf("Additions: got %v, want %v", plan.Additions, wantAdd)
	}
	if !reflect.DeepEqual(plan.MissingUsers, []string{"ghost"}) {
		t.Errorf("MissingUsers: got %v", plan.MissingUsers)
	}
	if !reflect.DeepEqual(plan.MissingGroups, []string{"Lab Admins"}) {
		t.Errorf("MissingGroups: got %v", plan.MissingGroups)
	}
}

func TestBuildPlan_NothingToDo(t *testing.T) {
	plan := ldapsync.BuildPlan(
		map[string][]string{"g": {"alice"}},
		map[string]string{"g": "Group"},
		[]glpi.Group{{ID: 1, Name: "Group"}},
		[]glpi.User{{ID: 1, Name: "alice"}},
		[]glpi.GroupMembership{{GroupsID: 1, UsersID: 1}},
	)
	if len(plan.Additions) != 0 || len(plan.MissingUsers) != 0 || len(plan.MissingGroups) != 0 {
		t.Errorf("expected empty plan, got %+v", plan)
	}
}
