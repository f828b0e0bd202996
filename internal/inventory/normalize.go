package inventory

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError describes a field that could not be extracted from raw
// collection output. Missing optional fields are not parse errors; they are
// filled with the Unspecified sentinel instead.
type ParseError struct {
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Field, e.Reason)
}

// ParseKeyValue splits key-value command output (hostnamectl, lscpu) on the
// first occurrence of sep per line, trimming whitespace. Lines without the
// separator are skipped.
func ParseKeyValue(out, sep string) map[string]string {
	kv := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, sep)
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key != "" {
			kv[key] = value
		}
	}
	return kv
}

// ParseOSRelease parses /etc/os-release style KEY=value output, stripping
// surrounding quotes from values.
func ParseOSRelease(out string) map[string]string {
	kv := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		kv[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	return kv
}

// MemoryModule is one populated DIMM slot from dmidecode --type memory.
type MemoryModule struct {
	SizeMB       int64
	Type         string
	Speed        string
	Manufacturer string
	PartNumber   string
}

// ParseMemoryModules parses dmidecode memory output into one entry per
// populated module. Slots reporting "No Module Installed" are skipped.
// GB sizes are converted to MB the way the asset database stores them
// (decimal, x1000).
func ParseMemoryModules(out string) ([]MemoryModule, error) {
	var modules []MemoryModule
	for _, block := range strings.Split(out, "\n\n") {
		if !strings.Contains(block, "Memory Device") {
			continue
		}
		kv := ParseKeyValue(block, ":")
		size, ok := kv["Size"]
		if !ok || size == "No Module Installed" {
			continue
		}
		fields := strings.Fields(size)
		if len(fields) != 2 {
			return nil, &ParseError{Field: "memory size", Reason: fmt.Sprintf("unexpected value %q", size)}
		}
		n, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, &ParseError{Field: "memory size", Reason: err.Error()}
		}
		if fields[1] == "GB" {
			n *= 1000
		}
		modules = append(modules, MemoryModule{
			SizeMB:       n,
			Type:         kv["Type"],
			Speed:        kv["Speed"],
			Manufacturer: kv["Manufacturer"],
			PartNumber:   kv["Part Number"],
		})
	}
	return modules, nil
}

// ParsePartedDisks parses `parted -l -s` output into disks, one per "Model:"
// block, in discovery order. The disk type is the transport reported in the
// model line's trailing parenthetical ("(scsi)", "(nvme)"), carried verbatim;
// capacity strings ending in GB/TB are converted to MB.
func ParsePartedDisks(out string) ([]Disk, error) {
	var disks []Disk
	for _, block := range strings.Split(out, "\n\n") {
		kv := ParseKeyValue(block, ":")
		model, ok := kv["Model"]
		if !ok {
			continue
		}
		disk := Disk{Name: model, Type: Unspecified}
		if open := strings.LastIndex(model, "("); open >= 0 && strings.HasSuffix(model, ")") {
			disk.Name = strings.TrimSpace(model[:open])
			disk.Type = model[open+1 : len(model)-1]
		}
		for key, value := range kv {
			if !strings.HasPrefix(key, "Disk /") {
				continue
			}
			capacity, err := parseCapacityMB(value)
			if err != nil {
				return nil, &ParseError{Field: "disk size", Reason: err.Error()}
			}
			disk.CapacityMB = capacity
		}
		disks = append(disks, disk)
	}
	return disks, nil
}

// ParseLshwSections parses `lshw -class ...` output. Each section starts with
// a line beginning with "*-"; lines inside a section are "key: value". The
// returned map is keyed by the value of keyField ("logical name" for network,
// "product" for display) and preserves nothing about order; callers that care
// about order use ParseLshwSectionKeys.
func ParseLshwSections(out, keyField string) map[string]map[string]string {
	sections := make(map[string]map[string]string)
	for _, key := range ParseLshwSectionKeys(out, keyField) {
		sections[key.Name] = key.Fields
	}
	return sections
}

// LshwSection is one "*-" section of lshw output with its identifying name.
type LshwSection struct {
	Name   string
	Fields map[string]string
}

// ParseLshwSectionKeys parses lshw output into sections in discovery order.
// Sections missing keyField are named with the Unspecified sentinel rather
// than dropped.
func ParseLshwSectionKeys(out, keyField string) []LshwSection {
	var sections []LshwSection
	chunks := strings.Split(out, "*-")
	for _, chunk := range chunks[1:] {
		lines := strings.Split(chunk, "\n")
		fields := ParseKeyValue(strings.Join(lines[1:], "\n"), ": ")
		name, ok := fields[keyField]
		if !ok {
			name = Unspecified
		}
		sections = append(sections, LshwSection{Name: name, Fields: fields})
	}
	return sections
}

// NetworkInterface is one interface block from `ip addr` / ifconfig output.
type NetworkInterface struct {
	Name string
	MAC  string
}

// ParseInterfaces parses interface listings from ifconfig ("eno1: flags=...")
// or ip addr ("2: eno1: <BROADCAST...>"); continuation lines are indented in
// both formats. The bridge interface the virtualization stack adds
// (ovirtmgmt) is dropped, as it does not map to a physical port.
func ParseInterfaces(out string) []NetworkInterface {
	var ifaces []NetworkInterface
	var current *NetworkInterface
	for _, line := range strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n") {
		if name, ok := interfaceHeader(line); ok {
			if name == "ovirtmgmt" {
				current = nil
				continue
			}
			ifaces = append(ifaces, NetworkInterface{Name: name})
			current = &ifaces[len(ifaces)-1]
			continue
		}
		if current == nil {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 && (fields[0] == "ether" || fields[0] == "link/ether") && current.MAC == "" {
			current.MAC = fields[1]
		}
	}
	return ifaces
}

// interfaceHeader extracts the interface name from an unindented header line,
// stripping ip addr's leading index and any VLAN "@parent" suffix.
func interfaceHeader(line string) (string, bool) {
	if line == "" || line[0] == ' ' || line[0] == '\t' {
		return "", false
	}
	rest := line
	if index, after, ok := strings.Cut(line, ": "); ok {
		if _, err := strconv.Atoi(index); err == nil {
			rest = after
		}
	}
	name, _, ok := strings.Cut(rest, ":")
	if !ok {
		return "", false
	}
	name = strings.TrimSpace(name)
	name, _, _ = strings.Cut(name, "@")
	if name == "" || strings.ContainsAny(name, " \t") {
		return "", false
	}
	return name, true
}

// parseCapacityMB converts a parted size string ("500GB", "256MB") to MB
// using decimal units, matching how the original inventory records sizes.
func parseCapacityMB(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if len(s) < 3 {
		return 0, fmt.Errorf("size %q too short", s)
	}
	unit := s[len(s)-2:]
	value, err := strconv.ParseFloat(s[:len(s)-2], 64)
	if err != nil {
		return 0, fmt.Errorf("size %q: %w", s, err)
	}
	switch unit {
	case "GB":
		return int64(value * 1000), nil
	case "TB":
		return int64(value * 1000 * 1000), nil
	case "MB":
		return int64(value), nil
	case "kB":
		return int64(value / 1000), nil
	default:
		return 0, fmt.Errorf("size %q: unknown unit %q", s, unit)
	}
}

// RawFacts bundles the command output collected from a machine. Optional
// entries may be empty; mandatory ones (hostnamectl, lscpu) may not.
type RawFacts struct {
	Hostnamectl  string
	Serial       string
	Manufacturer string
	Model        string
	UUID         string
	Lscpu        string
	Memory       string
	Parted       string
	LshwNetwork  string
	LshwDisplay  string
	Interfaces   string
}

// Normalize converts raw command output into a MachineRecord. Missing
// optional hardware (no GPUs, no parted output) yields sentinel values;
// missing mandatory fields yield a ParseError.
func Normalize(raw RawFacts) (MachineRecord, error) {
	hostKV := ParseKeyValue(raw.Hostnamectl, ": ")
	hostname := hostKV["Transient hostname"]
	if hostname == "" {
		hostname = hostKV["Static hostname"]
	}
	if hostname == "" {
		return MachineRecord{}, &ParseError{Field: "hostname", Reason: "hostnamectl output has no hostname"}
	}

	cpuKV := ParseKeyValue(raw.Lscpu, ":")
	sockets, err := atoiField(cpuKV, "Socket(s)")
	if err != nil {
		return MachineRecord{}, err
	}
	coresPerSocket, err := atoiField(cpuKV, "Core(s) per socket")
	if err != nil {
		return MachineRecord{}, err
	}

	modules, err := ParseMemoryModules(raw.Memory)
	if err != nil {
		return MachineRecord{}, err
	}
	var ramMB int64
	for _, m := range modules {
		ramMB += m.SizeMB
	}

	disks, err := ParsePartedDisks(raw.Parted)
	if err != nil {
		return MachineRecord{}, err
	}

	var gpus []string
	for _, section := range ParseLshwSectionKeys(raw.LshwDisplay, "product") {
		gpus = append(gpus, section.Name)
	}
	var nics []string
	for _, section := range ParseLshwSectionKeys(raw.LshwNetwork, "product") {
		nics = append(nics, section.Name)
	}

	var macs []string
	for _, iface := range ParseInterfaces(raw.Interfaces) {
		if iface.MAC != "" {
			macs = append(macs, iface.MAC)
		}
	}

	record := MachineRecord{
		Identifier:   strings.TrimSpace(raw.Serial),
		Hostname:     hostname,
		Manufacturer: orUnspecified(raw.Manufacturer),
		Model:        orUnspecified(raw.Model),
		UUID:         strings.TrimSpace(raw.UUID),
		Sockets:      sockets,
		Cores:        sockets * coresPerSocket,
		RAMMB:        ramMB,
		GPUs:         gpus,
		NICs:         nics,
		MACs:         macs,
		Disks:        disks,
	}
	if record.Identifier == "" {
		record.Identifier = hostname
	}
	return record, nil
}

func orUnspecified(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unspecified
	}
	return s
}

func atoiField(kv map[string]string, key string) (int, error) {
	value, ok := kv[key]
	if !ok {
		return 0, &ParseError{Field: key, Reason: "missing from lscpu output"}
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ParseError{Field: key, Reason: err.Error()}
	}
	return n, nil
}
