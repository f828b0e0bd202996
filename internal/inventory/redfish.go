package inventory

import (
	"fmt"
	"strings"

	"github.com/stmcginnis/gofish"
	"github.com/stmcginnis/gofish/redfish"
)

// RedfishCollector probes a machine out of band through its BMC. Accelerators
// maps a PCI "vendor:product" id to a human-readable name; BMCs report GPUs
// by id only.
type RedfishCollector struct {
	Endpoint     string
	Username     string
	Password     string
	Insecure     bool
	Accelerators map[string]string
}

// Collect builds a MachineRecord from the first computer system the BMC
// reports. Probes that fail partway leave the affected fields at their
// sentinel values instead of failing the whole import.
func (c RedfishCollector) Collect() (MachineRecord, error) {
	client, err := gofish.Connect(gofish.ClientConfig{
		Endpoint: c.Endpoint,
		Username: c.Username,
		Password: c.Password,
		Insecure: c.Insecure,
	})
	if err != nil {
		return MachineRecord{}, fmt.Errorf("connect to bmc %s: %w", c.Endpoint, err)
	}
	defer client.Logout()

	systems, err := client.Service.Systems()
	if err != nil {
		return MachineRecord{}, fmt.Errorf("list systems on %s: %w", c.Endpoint, err)
	}
	if len(systems) == 0 {
		return MachineRecord{}, fmt.Errorf("bmc %s reports no systems", c.Endpoint)
	}
	sys := systems[0]

	rec := MachineRecord{
		Identifier:   sys.SerialNumber,
		Hostname:     orUnspecified(sys.HostName),
		Manufacturer: orUnspecified(sys.Manufacturer),
		Model:        orUnspecified(sys.Model),
		UUID:         orUnspecified(sys.UUID),
		Sockets:      sys.ProcessorSummary.Count,
		RAMMB:        int64(float64(sys.MemorySummary.TotalSystemMemoryGiB) * 1000),
		Reservable:   true,
	}
	if rec.Identifier == "" {
		rec.Identifier = sys.UUID
	}

	if processors, err := sys.Processors(); err == nil {
		cores := 0
		for _, p := range processors {
			cores += p.TotalCores
		}
		rec.Cores = cores
	}

	if storage, err := sys.Storage(); err == nil {
		for _, controller := range storage {
			drives, err := controller.Drives()
			if err != nil {
				continue
			}
			for _, drive := range drives {
				diskType := "scsi"
				if strings.Contains(strings.ToLower(string(drive.Protocol)), "nvme") {
					diskType = "nvme"
				}
				rec.Disks = append(rec.Disks, Disk{
					Name:       drive.Name,
					Type:       diskType,
					CapacityMB: drive.CapacityBytes / 1_000_000,
				})
			}
		}
	}

	if functions, err := sys.PCIeFunctions(); err == nil {
		for _, fn := range functions {
			switch fn.DeviceClass {
			case redfish.DisplayControllerDeviceClass,
				redfish.ProcessingAcceleratorsDeviceClass,
				redfish.CoprocessorDeviceClass:
			default:
				continue
			}
			rec.GPUs = append(rec.GPUs, AcceleratorName(c.Accelerators, fn.VendorID, fn.DeviceID))
		}
	}

	if interfaces, err := sys.EthernetInterfaces(); err == nil {
		for _, eth := range interfaces {
			name := eth.Description
			if name == "" {
				name = eth.ID
			}
			rec.NICs = append(rec.NICs, orUnspecified(name))
			if eth.MACAddress != "" {
				rec.MACs = append(rec.MACs, eth.MACAddress)
			}
		}
	}

	return rec, nil
}

// AcceleratorName resolves a PCI vendor/device id pair against the
// accelerator map. Redfish reports ids as "0x10DE"; map keys use the bare
// lowercase "10de:1db4" form.
func AcceleratorName(accelerators map[string]string, vendorID, deviceID string) string {
	key := pciID(vendorID) + ":" + pciID(deviceID)
	if name, ok := accelerators[key]; ok {
		return name
	}
	return Unspecified
}

func pciID(id string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(id)), "0x")
}
