// Package switchport maps machine MAC addresses to the switch ports they are
// cabled into. Parsing is pure; talking to the switch happens behind a
// one-method Runner so tests feed captured output straight to the parsers.
package switchport

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/redhat-eets/glpi-helper-scripts/internal/config"
)

// Runner executes one command on a switch and returns its combined output.
type Runner interface {
	Run(ctx context.Context, command string) (string, error)
}

// SSHRunner runs commands over SSH with password auth. Lab switches use
// self-signed host keys that rotate on reinstall, so host keys are not
// checked.
type SSHRunner struct {
	addr     string
	username string
	password string
}

// NewSSHRunner creates a runner for the switch at addr. A bare address gets
// the default SSH port.
func NewSSHRunner(addr, username, password string) *SSHRunner {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "22")
	}
	return &SSHRunner{addr: addr, username: username, password: password}
}

// Run implements Runner.
func (r *SSHRunner) Run(ctx context.Context, command string) (string, error) {
	cfg := &ssh.ClientConfig{
		User:            r.username,
		Auth:            []ssh.AuthMethod{ssh.Password(r.password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         15 * time.Second,
	}
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", r.addr)
	if err != nil {
		return "", fmt.Errorf("dial switch %s: %w", r.addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, r.addr, cfg)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("ssh handshake with %s: %w", r.addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("ssh session on %s: %w", r.addr, err)
	}
	defer session.Close()

	out, err := session.CombinedOutput(command)
	if err != nil {
		return "", fmt.Errorf("run %q on %s: %w", command, r.addr, err)
	}
	return string(out), nil
}

// MapPorts runs the MAC table command appropriate for the switch type and
// parses the result.
func MapPorts(ctx context.Context, runner Runner, switchType string) (PortMap, error) {
	switch switchType {
	case config.SwitchCumulus:
		out, err := runner.Run(ctx, "brctl showmacs br0")
		if err != nil {
			return PortMap{}, err
		}
		return ParseCumulusMACs(out), nil
	case config.SwitchDell:
		out, err := runner.Run(ctx, "show mac-address-table")
		if err != nil {
			return PortMap{}, err
		}
		return ParseDellMACTable(out), nil
	default:
		return PortMap{}, fmt.Errorf("unknown switch type %q", switchType)
	}
}

// NormalizeMAC lowercases a MAC address so lookups do not depend on which
// tool reported it.
func NormalizeMAC(mac string) string {
	return strings.ToLower(strings.TrimSpace(mac))
}
