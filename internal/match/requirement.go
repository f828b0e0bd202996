// Package match evaluates canonical machine records against declarative
// resource requirements.
package match

import (
	"fmt"
	"sort"
	"time"

	"github.com/redhat-eets/glpi-helper-scripts/internal/inventory"
)

// DiskRequirement is one entry of a requirement's ordered disk list. An empty
// Type leaves the disk type unconstrained.
type DiskRequirement struct {
	Type          string `yaml:"disk_type"`
	MinCapacityMB int64  `yaml:"storage"`
}

// Requirement is a declarative set of resource minimums plus the time window
// the machine is needed for. GPU and NIC, when set, must appear as a
// case-sensitive substring of a component name on the machine.
type Requirement struct {
	CPUs  int               `yaml:"cpu"`
	Cores int               `yaml:"cores"`
	RAMMB int64             `yaml:"ram"`
	GPU   string            `yaml:"gpu"`
	NIC   string            `yaml:"nic"`
	Disks []DiskRequirement `yaml:"disks"`
	Start time.Time         `yaml:"start"`
	End   time.Time         `yaml:"end"`
}

// Validate rejects malformed requirement values. Malformed requirements are
// a configuration error reported at load time, never treated as
// always-satisfied or as a per-machine failure.
func (r Requirement) Validate() error {
	if r.CPUs < 0 {
		return fmt.Errorf("cpu minimum must not be negative, got %d", r.CPUs)
	}
	if r.Cores < 0 {
		return fmt.Errorf("cores minimum must not be negative, got %d", r.Cores)
	}
	if r.RAMMB < 0 {
		return fmt.Errorf("ram minimum must not be negative, got %d", r.RAMMB)
	}
	for i, d := range r.Disks {
		if d.MinCapacityMB < 0 {
			return fmt.Errorf("disks[%d]: capacity minimum must not be negative, got %d", i, d.MinCapacityMB)
		}
	}
	if r.Start.IsZero() != r.End.IsZero() {
		return fmt.Errorf("window needs both start and end")
	}
	if !r.Start.IsZero() && !r.Start.Before(r.End) {
		return fmt.Errorf("window start %s must be before end %s", r.Start, r.End)
	}
	return nil
}

// Matches reports whether record satisfies every clause of req. A false
// result is a normal outcome, not an error.
func Matches(record inventory.MachineRecord, req Requirement) bool {
	if record.Sockets < req.CPUs {
		return false
	}
	if record.Cores < req.Cores {
		return false
	}
	if record.RAMMB < req.RAMMB {
		return false
	}
	if req.GPU != "" && !record.HasGPU(req.GPU) {
		return false
	}
	if req.NIC != "" && !record.HasNIC(req.NIC) {
		return false
	}
	return disksSatisfiable(record.Disks, req.Disks)
}

// disksSatisfiable reports whether a one-to-one assignment exists from
// required disks to distinct available disks with matching type (when
// constrained) and sufficient capacity. Requirements are taken largest
// first; each takes the smallest adequate disk still free, so bigger
// requirements are not starved by smaller ones. Ties between equal disks
// fall back to discovery order, which the caller must treat as "any valid
// assignment".
func disksSatisfiable(available []inventory.Disk, required []DiskRequirement) bool {
	if len(required) == 0 {
		return true
	}
	if len(required) > len(available) {
		return false
	}

	reqs := make([]DiskRequirement, len(required))
	copy(reqs, required)
	sort.SliceStable(reqs, func(i, j int) bool {
		return reqs[i].MinCapacityMB > reqs[j].MinCapacityMB
	})

	type candidate struct {
		disk  inventory.Disk
		taken bool
	}
	candidates := make([]candidate, len(available))
	for i, d := range available {
		candidates[i] = candidate{disk: d}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].disk.CapacityMB < candidates[j].disk.CapacityMB
	})

	for _, req := range reqs {
		assigned := false
		for i := range candidates {
			c := &candidates[i]
			if c.taken || c.disk.CapacityMB < req.MinCapacityMB {
				continue
			}
			if req.Type != "" && c.disk.Type != req.Type {
				continue
			}
			c.taken = true
			assigned = true
			break
		}
		if !assigned {
			return false
		}
	}
	return true
}
