package report_test

import (
	"strings"
	"testing"

	"github.com/redhat-eets/glpi-helper-scripts/internal/inventory"
	"github.com/redhat-eets/glpi-helper-scripts/internal/report"
)

func TestMachineTable(t *testing.T) {
	var buf strings.Builder
	report.MachineTable(&buf, []inventory.MachineRecord{
		{Identifier: "SN-001", Hostname: "host-a", Sockets: 2, Cores: 32, RAMMB: 64000, Reservable: true},
	})
	out := buf.String()
	for _, want := range []string{"SN-001", "host-a", "64000", "true"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestDiffTable(t *testing.T) {
	var buf strings.Builder
	report.DiffTable(&buf, "glpi", "dcim", []string{"AAA"}, []string{"BBB", "CCC"})
	out := buf.String()
	for _, want := range []string{"AAA", "BBB", "CCC", "glpi", "dcim"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestCountTable_SortedByName(t *testing.T) {
	var buf strings.Builder
	report.CountTable(&buf, "Tag", map[string]int{"zeta": 3, "alpha": 1})
	out := buf.String()
	if strings.Index(out, "alpha") > strings.Index(out, "zeta") {
		t.Errorf("rows not sorted by name:\n%s", out)
	}
}

func TestDiffText(t *testing.T) {
	got := report.DiffText("glpi", "dcim", []string{"AAA"}, nil)
	if !strings.Contains(got, "Only in glpi (1):") || !strings.Contains(got, "  AAA") {
		t.Errorf("got:\n%s", got)
	}
	if !strings.Contains(got, "Only in dcim (0):") {
		t.Errorf("missing empty side:\n%s", got)
	}
}

func TestEmailSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		e       report.EmailSettings
		wantErr bool
	}{
		{"all empty", report.EmailSettings{}, false},
		{"all set", report.EmailSettings{Recipient: "a@b", Sender: "c@d", Server: "mail"}, false},
		{"recipient only", report.EmailSettings{Recipient: "a@b"}, true},
		{"missing server", report.EmailSettings{Recipient: "a@b", Sender: "c@d"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.e.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate: got %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEmailSettings_Enabled(t *testing.T) {
	if (report.EmailSettings{}).Enabled() {
		t.Error("empty settings should not be enabled")
	}
	if !(report.EmailSettings{Server: "mail"}).Enabled() {
		t.Error("partial settings should count as requested")
	}
}
