// Package inventory defines the canonical machine record and the normalizers
// that build one from raw collection output, independent of how the facts
// were gathered (local commands, Redfish, or a GLPI query).
package inventory

import "strings"

// Unspecified is the sentinel recorded for optional hardware fields the
// collection method could not report. It matches the placeholder the asset
// database uses for unknown component attributes.
const Unspecified = "Unspecified"

// Disk is one block device on a machine. Type is carried verbatim from the
// source field (e.g. "nvme", "scsi"); it is never inferred.
type Disk struct {
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	CapacityMB int64  `json:"capacity_mb" yaml:"capacity_mb"`
}

// MachineRecord is the normalized, collection-method-independent view of a
// machine's hardware. It is built once by a normalizer or collector and not
// mutated afterwards.
type MachineRecord struct {
	// Identifier is the serial number or service tag when known, otherwise
	// the hostname.
	Identifier   string   `json:"identifier" yaml:"identifier"`
	Hostname     string   `json:"hostname" yaml:"hostname"`
	Manufacturer string   `json:"manufacturer" yaml:"manufacturer"`
	Model        string   `json:"model" yaml:"model"`
	UUID         string   `json:"uuid" yaml:"uuid"`
	Sockets      int      `json:"sockets" yaml:"sockets"`
	Cores        int      `json:"cores" yaml:"cores"`
	RAMMB        int64    `json:"ram_mb" yaml:"ram_mb"`
	GPUs         []string `json:"gpus" yaml:"gpus"`
	NICs         []string `json:"nics" yaml:"nics"`
	// MACs holds the hardware addresses of the physical interfaces, used to
	// locate the machine's switch ports.
	MACs       []string `json:"macs,omitempty" yaml:"macs,omitempty"`
	Disks      []Disk   `json:"disks" yaml:"disks"`
	Reservable bool     `json:"reservable" yaml:"reservable"`
}

// HasGPU reports whether any GPU name contains want as a substring. The
// comparison is case-sensitive.
func (m MachineRecord) HasGPU(want string) bool {
	return containsSubstring(m.GPUs, want)
}

// HasNIC reports whether any NIC name contains want as a substring. The
// comparison is case-sensitive.
func (m MachineRecord) HasNIC(want string) bool {
	return containsSubstring(m.NICs, want)
}

func containsSubstring(names []string, want string) bool {
	for _, name := range names {
		if name == Unspecified {
			continue
		}
		if strings.Contains(name, want) {
			return true
		}
	}
	return false
}
