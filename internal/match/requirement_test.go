package match_test

import (
	"testing"
	"time"

	"github.com/redhat-eets/glpi-helper-scripts/internal/inventory"
	"github.com/redhat-eets/glpi-helper-scripts/internal/match"
)

func record(sockets, cores int, ramMB int64, disks ...inventory.Disk) inventory.MachineRecord {
	return inventory.MachineRecord{
		Identifier: "test",
		Sockets:    sockets,
		Cores:      cores,
		RAMMB:      ramMB,
		Disks:      disks,
		Reservable: true,
	}
}

func TestMatches_ConjunctiveClauses(t *testing.T) {
	base := record(2, 32, 64000)
	base.GPUs = []string{"GA100 [A100 PCIe 40GB]"}
	base.NICs = []string{"Ethernet Controller X710"}

	tests := []struct {
		name string
		req  match.Requirement
		want bool
	}{
		{"all satisfied", match.Requirement{CPUs: 2, Cores: 16, RAMMB: 32000}, true},
		{"cpu short", match.Requirement{CPUs: 4}, false},
		{"cores short", match.Requirement{Cores: 64}, false},
		{"ram short", match.Requirement{RAMMB: 128000}, false},
		{"gpu substring", match.Requirement{GPU: "A100"}, true},
		{"gpu case sensitive", match.Requirement{GPU: "a100"}, false},
		{"gpu absent", match.Requirement{GPU: "H100"}, false},
		{"nic substring", match.Requirement{NIC: "X710"}, true},
		{"nic absent", match.Requirement{NIC: "ConnectX"}, false},
		{"zero requirement always passes", match.Requirement{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := match.Matches(base, tt.req); got != tt.want {
				t.Errorf("Matches: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatches_GPURequiredButNoneDiscovered(t *testing.T) {
	rec := record(2, 32, 64000)
	if match.Matches(rec, match.Requirement{GPU: "A100"}) {
		t.Error("machine without GPUs should not match a GPU requirement")
	}
}

func TestMatches_DiskAssignment(t *testing.T) {
	tests := []struct {
		name      string
		available []inventory.Disk
		required  []match.DiskRequirement
		want      bool
	}{
		{
			name:      "zero disk requirements always satisfied",
			available: nil,
			required:  nil,
			want:      true,
		},
		{
			name: "feasible adversarial set",
			available: []inventory.Disk{
				{CapacityMB: 500}, {CapacityMB: 150}, {CapacityMB: 90},
			},
			required: []match.DiskRequirement{
				{MinCapacityMB: 400}, {MinCapacityMB: 100},
			},
			want: true,
		},
		{
			name: "infeasible when second large requirement starves",
			available: []inventory.Disk{
				{CapacityMB: 500}, {CapacityMB: 390},
			},
			required: []match.DiskRequirement{
				{MinCapacityMB: 400}, {MinCapacityMB: 400},
			},
			want: false,
		},
		{
			name: "distinct disks required",
			available: []inventory.Disk{
				{CapacityMB: 1000},
			},
			required: []match.DiskRequirement{
				{MinCapacityMB: 100}, {MinCapacityMB: 100},
			},
			want: false,
		},
		{
			name: "type constraint must match verbatim",
			available: []inventory.Disk{
				{Type: "scsi", CapacityMB: 1000},
			},
			required: []match.DiskRequirement{
				{Type: "nvme", MinCapacityMB: 100},
			},
			want: false,
		},
		{
			name: "typed and untyped requirements mix",
			available: []inventory.Disk{
				{Type: "scsi", CapacityMB: 500},
				{Type: "nvme", CapacityMB: 1000},
			},
			required: []match.DiskRequirement{
				{Type: "nvme", MinCapacityMB: 800},
				{MinCapacityMB: 400},
			},
			want: true,
		},
		{
			name: "best fit leaves large disk for large requirement",
			available: []inventory.Disk{
				{CapacityMB: 450}, {CapacityMB: 1000},
			},
			required: []match.DiskRequirement{
				{MinCapacityMB: 100}, {MinCapacityMB: 800},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := record(8, 64, 256000, tt.available...)
			got := match.Matches(rec, match.Requirement{Disks: tt.required})
			if got != tt.want {
				t.Errorf("Matches: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatches_ZeroDiskListIgnoresDisks(t *testing.T) {
	// With no disk requirements the result depends only on the other clauses.
	withDisks := record(2, 32, 64000, inventory.Disk{CapacityMB: 10})
	withoutDisks := record(2, 32, 64000)
	req := match.Requirement{CPUs: 2, RAMMB: 32000}

	if match.Matches(withDisks, req) != match.Matches(withoutDisks, req) {
		t.Error("disk inventory changed the result of a requirement with no disk entries")
	}
}

func TestValidate_RejectsMalformedRequirement(t *testing.T) {
	tests := []struct {
		name string
		req  match.Requirement
	}{
		{"negative ram", match.Requirement{RAMMB: -1}},
		{"negative cpu", match.Requirement{CPUs: -2}},
		{"negative disk capacity", match.Requirement{Disks: []match.DiskRequirement{{MinCapacityMB: -5}}}},
		{"inverted window", match.Requirement{
			Start: time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		}},
		{"end without start", match.Requirement{
			End: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		}},
		{"start without end", match.Requirement{
			Start: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); err == nil {
				t.Error("Validate: expected error, got nil")
			}
		})
	}
}

func TestValidate_AcceptsZeroValues(t *testing.T) {
	if err := (match.Requirement{}).Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestAssign_TightestFitWinsWithoutReuse(t *testing.T) {
	candidates := map[string][]match.Candidate{
		"1": {
			{Identifier: "big", Weight: 4.0},
			{Identifier: "small", Weight: 1.1},
		},
		"2": {
			{Identifier: "small", Weight: 1.3},
			{Identifier: "big", Weight: 2.0},
		},
	}

	got := match.Assign([]string{"1", "2"}, candidates)
	if !got.Fulfilled {
		t.Fatal("expected both requirements fulfilled")
	}
	if got.Choices["1"].Identifier != "small" {
		t.Errorf("requirement 1: got %q, want small", got.Choices["1"].Identifier)
	}
	if got.Choices["2"].Identifier != "big" {
		t.Errorf("requirement 2: got %q, want big (small already taken)", got.Choices["2"].Identifier)
	}
}

func TestAssign_UnfulfillableRequirementReported(t *testing.T) {
	candidates := map[string][]match.Candidate{
		"1": {{Identifier: "only", Weight: 1.0}},
		"2": {{Identifier: "only", Weight: 1.0}},
	}
	got := match.Assign([]string{"1", "2"}, candidates)
	if got.Fulfilled {
		t.Error("expected Fulfilled=false when machines run out")
	}
	if len(got.Choices) != 1 {
		t.Errorf("got %d choices, want 1", len(got.Choices))
	}
}

func TestWeight_ZeroMinimumsContributeNothing(t *testing.T) {
	rec := record(2, 32, 64000)
	if w := match.Weight(rec, match.Requirement{}); w != 0 {
		t.Errorf("Weight: got %v, want 0", w)
	}
	w := match.Weight(rec, match.Requirement{CPUs: 1, Cores: 16, RAMMB: 32000})
	if w != 2+2+2 {
		t.Errorf("Weight: got %v, want 6", w)
	}
}
