package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
)

// LocalCollector probes the machine it runs on. Accelerators maps a PCI
// "vendor:product" id to a human-readable name for devices the PCI database
// does not label.
type LocalCollector struct {
	Accelerators map[string]string
}

// Collect builds a MachineRecord from the local hardware.
func (c LocalCollector) Collect(ctx context.Context) (MachineRecord, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return MachineRecord{}, fmt.Errorf("probe host: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MachineRecord{}, fmt.Errorf("probe memory: %w", err)
	}
	cpuInfo, err := ghw.CPU()
	if err != nil {
		return MachineRecord{}, fmt.Errorf("probe cpu: %w", err)
	}

	rec := MachineRecord{
		Hostname:     info.Hostname,
		Manufacturer: Unspecified,
		Model:        Unspecified,
		UUID:         Unspecified,
		Sockets:      len(cpuInfo.Processors),
		Cores:        int(cpuInfo.TotalCores),
		RAMMB:        int64(vm.Total / 1_000_000),
		Reservable:   true,
	}

	// DMI data needs root and is absent in VMs; fall back to the hostname
	// as the identifier rather than failing the import.
	if product, err := ghw.Product(); err == nil {
		rec.Identifier = product.SerialNumber
		rec.Manufacturer = orUnspecified(product.Vendor)
		rec.Model = orUnspecified(product.Name)
		rec.UUID = orUnspecified(product.UUID)
	}
	if rec.Identifier == "" || rec.Identifier == "unknown" {
		rec.Identifier = info.Hostname
	}

	if block, err := ghw.Block(); err == nil {
		for _, disk := range block.Disks {
			rec.Disks = append(rec.Disks, Disk{
				Name:       disk.Name,
				Type:       diskTypeFromController(disk.StorageController.String()),
				CapacityMB: int64(disk.SizeBytes / 1_000_000),
			})
		}
	}

	if gpu, err := ghw.GPU(); err == nil {
		for _, card := range gpu.GraphicsCards {
			rec.GPUs = append(rec.GPUs, c.gpuName(card))
		}
	}

	if network, err := ghw.Network(); err == nil {
		for _, nic := range network.NICs {
			if nic.IsVirtual {
				continue
			}
			rec.NICs = append(rec.NICs, orUnspecified(nic.Name))
			if nic.MacAddress != "" {
				rec.MACs = append(rec.MACs, nic.MacAddress)
			}
		}
	}

	return rec, nil
}

// gpuName resolves a card's product name, consulting the accelerator map for
// devices the PCI database knows only by id.
func (c LocalCollector) gpuName(card *ghw.GraphicsCard) string {
	if card.DeviceInfo == nil {
		return Unspecified
	}
	if card.DeviceInfo.Product != nil && card.DeviceInfo.Product.Name != "" {
		return card.DeviceInfo.Product.Name
	}
	if card.DeviceInfo.Vendor != nil && card.DeviceInfo.Product != nil {
		return AcceleratorName(c.Accelerators, card.DeviceInfo.Vendor.ID, card.DeviceInfo.Product.ID)
	}
	return Unspecified
}

func diskTypeFromController(controller string) string {
	if strings.Contains(strings.ToLower(controller), "nvme") {
		return "nvme"
	}
	return "scsi"
}
