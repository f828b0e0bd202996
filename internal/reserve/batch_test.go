package reserve_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/redhat-eets/glpi-helper-scripts/internal/reserve"
)

const batchYAML = `username: alice
start: 2026-09-01 08:00:00
end: 2026-09-05 18:00:00
comment: perf testing
jira: LAB-101
servers:
  host-a:
  host-b:
    username: bob
  host-c:
    comment: null
  host-d:
    start: 2026-09-02 08:00:00
    epic: LAB-202
`

func TestBatchSpec_ResolveInheritance(t *testing.T) {
	spec, err := reserve.ParseBatchSpec([]byte(batchYAML))
	if err != nil {
		t.Fatalf("ParseBatchSpec: %v", err)
	}
	reservations, err := spec.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(reservations) != 4 {
		t.Fatalf("got %d reservations, want 4", len(reservations))
	}

	// File order is preserved.
	wantOrder := []string{"host-a", "host-b", "host-c", "host-d"}
	for i, want := range wantOrder {
		if reservations[i].Machine != want {
			t.Errorf("reservations[%d].Machine: got %q, want %q", i, reservations[i].Machine, want)
		}
	}

	hostA := reservations[0]
	if hostA.User != "alice" {
		t.Errorf("host-a user: got %q, want alice", hostA.User)
	}
	if hostA.Window.Start.Hour() != 8 || hostA.Window.End.Day() != 5 {
		t.Errorf("host-a window: got %+v", hostA.Window)
	}
	if hostA.Comment != "LAB-101\nperf testing" {
		t.Errorf("host-a comment: got %q", hostA.Comment)
	}

	// Override replaces only the named field; the window is inherited.
	hostB := reservations[1]
	if hostB.User != "bob" {
		t.Errorf("host-b user: got %q, want bob", hostB.User)
	}
	if !hostB.Window.Start.Equal(hostA.Window.Start) {
		t.Errorf("host-b should inherit the global window, got %+v", hostB.Window)
	}
}

func TestBatchSpec_ExplicitNullOmitsComment(t *testing.T) {
	spec, err := reserve.ParseBatchSpec([]byte(batchYAML))
	if err != nil {
		t.Fatalf("ParseBatchSpec: %v", err)
	}
	reservations, err := spec.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// host-c sets comment to null: the global comment must not leak in.
	hostC := reservations[2]
	if strings.Contains(hostC.Comment, "perf testing") {
		t.Errorf("host-c comment should omit the global comment, got %q", hostC.Comment)
	}
	if hostC.Comment != "LAB-101" {
		t.Errorf("host-c comment: got %q, want work-item tag only", hostC.Comment)
	}

	// host-d overrides the epic and start but inherits the comment.
	hostD := reservations[3]
	if hostD.Comment != "LAB-202\nperf testing" {
		t.Errorf("host-d comment: got %q", hostD.Comment)
	}
	if hostD.Window.Start.Day() != 2 {
		t.Errorf("host-d start: got %v, want the overridden day", hostD.Window.Start)
	}
}

func TestBatchSpec_NullMandatoryFieldIsConfigError(t *testing.T) {
	spec, err := reserve.ParseBatchSpec([]byte(
		"username: alice\nstart: 2026-09-01\nend: 2026-09-02\nservers:\n  host-a:\n    username: null\n"))
	if err != nil {
		t.Fatalf("ParseBatchSpec: %v", err)
	}
	_, err = spec.Resolve()
	var verr *reserve.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Machine != "host-a" || verr.Field != "username" {
		t.Errorf("got %+v", verr)
	}
}

func TestBatchSpec_MissingGlobalFieldIsConfigError(t *testing.T) {
	spec, err := reserve.ParseBatchSpec([]byte(
		"start: 2026-09-01\nend: 2026-09-02\nservers:\n  host-a:\n"))
	if err != nil {
		t.Fatalf("ParseBatchSpec: %v", err)
	}
	_, err = spec.Resolve()
	var verr *reserve.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "username" {
		t.Errorf("Field: got %q, want username", verr.Field)
	}
}

func TestBatchSpec_InvertedWindowRejected(t *testing.T) {
	spec, err := reserve.ParseBatchSpec([]byte(
		"username: alice\nstart: 2026-09-05\nend: 2026-09-01\nservers:\n  host-a:\n"))
	if err != nil {
		t.Fatalf("ParseBatchSpec: %v", err)
	}
	if _, err := spec.Resolve(); err == nil {
		t.Error("expected validation error for start after end")
	}
}

func TestParseBatchSpec_RejectsNonMappingServers(t *testing.T) {
	_, err := reserve.ParseBatchSpec([]byte("username: a\nservers:\n  - host-a\n"))
	if err == nil {
		t.Error("expected error for servers given as a sequence")
	}
}
