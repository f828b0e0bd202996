// Package config loads the toolkit's declarative YAML inputs: requirement
// sets, switch inventories, accelerator maps, and directory group maps.
// Documents come from a file path or, for credentials kept out of the
// filesystem, from an environment variable holding the YAML text.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/redhat-eets/glpi-helper-scripts/internal/match"
)

// Load decodes the YAML file at path into out.
func Load(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadEnv decodes YAML held in the named environment variable into out.
func LoadEnv(name string, out any) error {
	data, ok := os.LookupEnv(name)
	if !ok || data == "" {
		return fmt.Errorf("environment variable %s is not set", name)
	}
	if err := yaml.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("parse config from %s: %w", name, err)
	}
	return nil
}

// NamedRequirement is one entry of a requirement file, keyed by the label the
// operator used ("1", "2", ... in practice).
type NamedRequirement struct {
	Key         string
	Requirement match.Requirement
}

// LoadRequirements reads a requirement file: a mapping of label to
// requirement, returned in file order. Every requirement is validated; a
// malformed one aborts the load with its label named.
func LoadRequirements(path string) ([]NamedRequirement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read requirements: %w", err)
	}
	return ParseRequirements(data)
}

// ParseRequirements decodes a requirement document, preserving the order the
// labels appear in.
func ParseRequirements(data []byte) ([]NamedRequirement, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse requirements: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse requirements: document must be a mapping of label to requirement")
	}

	var out []NamedRequirement
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i].Value
		var req match.Requirement
		if err := doc.Content[i+1].Decode(&req); err != nil {
			return nil, fmt.Errorf("requirement %q: %w", key, err)
		}
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("requirement %q: %w", key, err)
		}
		out = append(out, NamedRequirement{Key: key, Requirement: req})
	}
	return out, nil
}

// Switch is one managed switch in the lab inventory.
type Switch struct {
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Type     string `yaml:"type"`
}

// Switch types the port mapper knows how to talk to.
const (
	SwitchCumulus = "cumulus"
	SwitchDell    = "dell"
)

// SwitchInventory maps lab name to switch address to switch.
type SwitchInventory map[string]map[string]Switch

// LoadSwitches reads and validates a switch inventory file.
func LoadSwitches(path string) (SwitchInventory, error) {
	var inv SwitchInventory
	if err := Load(path, &inv); err != nil {
		return nil, err
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

// Validate checks every switch has credentials and a known type.
func (inv SwitchInventory) Validate() error {
	for lab, switches := range inv {
		for addr, sw := range switches {
			if sw.Username == "" || sw.Password == "" {
				return fmt.Errorf("switch %s/%s: username and password are required", lab, addr)
			}
			if sw.Type != SwitchCumulus && sw.Type != SwitchDell {
				return fmt.Errorf("switch %s/%s: unknown type %q", lab, addr, sw.Type)
			}
		}
	}
	return nil
}

// BMC is one out-of-band controller to import through.
type BMC struct {
	Endpoint string `yaml:"endpoint"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LoadBMCs reads the list of BMCs for a Redfish import.
func LoadBMCs(path string) ([]BMC, error) {
	var bmcs []BMC
	if err := Load(path, &bmcs); err != nil {
		return nil, err
	}
	for i, bmc := range bmcs {
		if bmc.Endpoint == "" {
			return nil, fmt.Errorf("bmc %d: endpoint is required", i)
		}
	}
	return bmcs, nil
}

// LoadAcceleratorMap reads the mapping of PCI device id to human-readable
// accelerator name used to label GPUs the hardware probes report by id only.
func LoadAcceleratorMap(path string) (map[string]string, error) {
	var m map[string]string
	if err := Load(path, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadGroupMap reads the mapping of directory group CN to asset-database
// group name used by the LDAP sync.
func LoadGroupMap(path string) (map[string]string, error) {
	var m map[string]string
	if err := Load(path, &m); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("group map %s: no groups configured", path)
	}
	return m, nil
}
