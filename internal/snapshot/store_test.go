package snapshot_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/redhat-eets/glpi-helper-scripts/internal/inventory"
	"github.com/redhat-eets/glpi-helper-scripts/internal/snapshot"
)

// newTestStore opens a fresh in-memory SQLite database for each test.
func newTestStore(t *testing.T) *snapshot.Store {
	t.Helper()
	s, err := snapshot.New(":memory:")
	if err != nil {
		t.Fatalf("snapshot.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(id string) inventory.MachineRecord {
	return inventory.MachineRecord{
		Identifier:   id,
		Hostname:     "host-" + id,
		Manufacturer: "Dell Inc.",
		Model:        "PowerEdge R640",
		Sockets:      2,
		Cores:        32,
		RAMMB:        64000,
		GPUs:         []string{"GA100 [A100 PCIe 40GB]"},
		Disks: []inventory.Disk{
			{Name: "sda", Type: "scsi", CapacityMB: 500000},
		},
		Reservable: true,
	}
}

func TestSaveRun_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	taken := time.Now().UTC().Truncate(time.Second)
	records := []inventory.MachineRecord{sampleRecord("SN-001"), sampleRecord("SN-002")}

	runID, err := s.SaveRun("glpi", taken, records)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	run, err := s.LatestRun("glpi")
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run.ID != runID {
		t.Errorf("run ID: got %q, want %q", run.ID, runID)
	}
	if run.Source != "glpi" {
		t.Errorf("Source: got %q, want glpi", run.Source)
	}
	if !run.TakenAt.Equal(taken) {
		t.Errorf("TakenAt: got %v, want %v", run.TakenAt, taken)
	}
	if run.Count != 2 {
		t.Errorf("Count: got %d, want 2", run.Count)
	}

	got, err := s.Records(runID)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	first := got[0]
	if first.Identifier != "SN-001" {
		t.Errorf("Identifier: got %q, want SN-001", first.Identifier)
	}
	if first.Sockets != 2 || first.Cores != 32 || first.RAMMB != 64000 {
		t.Errorf("resources: got %+v", first)
	}
	if len(first.Disks) != 1 || first.Disks[0].CapacityMB != 500000 {
		t.Errorf("Disks: got %+v", first.Disks)
	}
	if !first.Reservable {
		t.Error("Reservable: got false, want true")
	}
}

func TestLatestRun_PicksNewest(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().UTC().Truncate(time.Second)

	if _, err := s.SaveRun("glpi", base.Add(-time.Hour), []inventory.MachineRecord{sampleRecord("old")}); err != nil {
		t.Fatalf("SaveRun old: %v", err)
	}
	newID, err := s.SaveRun("glpi", base, []inventory.MachineRecord{sampleRecord("new")})
	if err != nil {
		t.Fatalf("SaveRun new: %v", err)
	}

	run, err := s.LatestRun("glpi")
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run.ID != newID {
		t.Errorf("latest run: got %q, want %q", run.ID, newID)
	}
}

func TestLatestRun_SourcesAreIndependent(t *testing.T) {
	s := newTestStore(t)
	taken := time.Now().UTC().Truncate(time.Second)
	if _, err := s.SaveRun("glpi", taken, []inventory.MachineRecord{sampleRecord("a")}); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	if _, err := s.LatestRun("dcim"); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows for unseen source, got %v", err)
	}
}

func TestSaveRun_DuplicateIdentifiersKeepFirst(t *testing.T) {
	s := newTestStore(t)
	first := sampleRecord("dup")
	second := sampleRecord("dup")
	second.Hostname = "host-renamed"

	runID, err := s.SaveRun("glpi", time.Now().UTC(), []inventory.MachineRecord{first, second})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.Records(runID)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].Hostname != "host-dup" {
		t.Errorf("Hostname: got %q, want host-dup", got[0].Hostname)
	}
}

func TestDeleteRun(t *testing.T) {
	s := newTestStore(t)
	runID, err := s.SaveRun("glpi", time.Now().UTC(), []inventory.MachineRecord{sampleRecord("a")})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	if err := s.DeleteRun(runID); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	if _, err := s.LatestRun("glpi"); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows after delete, got %v", err)
	}
	got, err := s.Records(runID)
	if err != nil {
		t.Fatalf("Records after delete: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("records not removed: got %d", len(got))
	}
}

func TestDeleteRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.DeleteRun("nonexistent"); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}
