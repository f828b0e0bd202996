package reserve_test

import (
	"testing"
	"time"

	"github.com/redhat-eets/glpi-helper-scripts/internal/inventory"
	"github.com/redhat-eets/glpi-helper-scripts/internal/reserve"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 9, 1, hour, min, 0, 0, time.UTC)
}

func window(startHour, startMin, endHour, endMin int) reserve.Window {
	return reserve.Window{Start: at(startHour, startMin), End: at(endHour, endMin)}
}

func TestWindow_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b reserve.Window
		want bool
	}{
		{"touching endpoints do not conflict", window(10, 0, 11, 0), window(11, 0, 12, 0), false},
		{"one minute over the boundary conflicts", window(10, 0, 11, 1), window(11, 0, 12, 0), true},
		{"identical windows conflict", window(10, 0, 11, 0), window(10, 0, 11, 0), true},
		{"contained window conflicts", window(9, 0, 13, 0), window(10, 0, 11, 0), true},
		{"disjoint windows do not conflict", window(8, 0, 9, 0), window(10, 0, 11, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("a.Overlaps(b): got %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("b.Overlaps(a): got %v, want %v (overlap must be symmetric)", got, tt.want)
			}
		})
	}
}

func TestWindow_Validate(t *testing.T) {
	if err := window(10, 0, 11, 0).Validate(); err != nil {
		t.Errorf("valid window: %v", err)
	}
	if err := window(11, 0, 10, 0).Validate(); err == nil {
		t.Error("inverted window: expected error")
	}
	if err := window(10, 0, 10, 0).Validate(); err == nil {
		t.Error("empty window: expected error")
	}
}

func TestConflicts_LinearScanAnyOrder(t *testing.T) {
	existing := []reserve.Reservation{
		{Machine: "m1", Window: window(14, 0, 16, 0)},
		{Machine: "m1", Window: window(8, 0, 9, 0)},
		{Machine: "m1", Window: window(11, 0, 12, 0)},
	}
	if reserve.Conflicts(existing, window(9, 0, 11, 0)) {
		t.Error("window fitting between reservations should not conflict")
	}
	if !reserve.Conflicts(existing, window(15, 0, 17, 0)) {
		t.Error("window overlapping a later entry should conflict")
	}
	if reserve.Conflicts(nil, window(9, 0, 11, 0)) {
		t.Error("no reservations should never conflict")
	}
}

func TestAvailable(t *testing.T) {
	existing := []reserve.Reservation{{Machine: "m1", Window: window(10, 0, 12, 0)}}
	reservable := inventory.MachineRecord{Identifier: "m1", Reservable: true}
	unreservable := inventory.MachineRecord{Identifier: "m2", Reservable: false}

	if !reserve.Available(reservable, existing, window(12, 0, 14, 0)) {
		t.Error("reservable machine with free window should be available")
	}
	if reserve.Available(reservable, existing, window(11, 0, 13, 0)) {
		t.Error("conflicting window should not be available")
	}
	if reserve.Available(unreservable, nil, window(12, 0, 14, 0)) {
		t.Error("unreservable machine should never be available")
	}
}
