package switchport

import (
	"fmt"
	"strings"
)

// PortMap is the parsed MAC table of one switch.
type PortMap struct {
	// ByMAC maps a normalized MAC address to its interface label.
	ByMAC map[string]string
	// Count holds how many MAC addresses were seen per interface. Ports
	// carrying many addresses are uplinks, not machine ports, and callers
	// use the count to skip them.
	Count map[string]int
}

func newPortMap() PortMap {
	return PortMap{ByMAC: make(map[string]string), Count: make(map[string]int)}
}

func (p PortMap) add(mac, iface string) {
	mac = NormalizeMAC(mac)
	if _, dup := p.ByMAC[mac]; dup {
		return
	}
	p.ByMAC[mac] = iface
	p.Count[iface]++
}

// Lookup returns the interface label for a MAC address in any case.
func (p PortMap) Lookup(mac string) (string, bool) {
	iface, ok := p.ByMAC[NormalizeMAC(mac)]
	return iface, ok
}

// ParseCumulusMACs parses `brctl showmacs br0` output:
//
//	port no	mac addr		is local?	ageing timer
//	  1	00:11:22:33:44:55	no		  12.34
//
// Entries marked local are the switch's own addresses and are skipped.
func ParseCumulusMACs(out string) PortMap {
	ports := newPortMap()
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		if !strings.Contains(fields[1], ":") {
			// Header line.
			continue
		}
		if fields[2] == "yes" {
			continue
		}
		ports.add(fields[1], fmt.Sprintf("interface %s", fields[0]))
	}
	return ports
}

// ParseDellMACTable parses `show mac-address-table` output:
//
//	VlanId     Mac Address         Type        Interface
//	10         00:11:22:33:44:55   Dynamic     Te 1/0/12
//
// The interface label keeps the two-token Dell port name.
func ParseDellMACTable(out string) PortMap {
	ports := newPortMap()
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		if !strings.Contains(fields[1], ":") {
			continue
		}
		ports.add(fields[1], fields[3]+" "+fields[4])
	}
	return ports
}
