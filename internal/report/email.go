package report

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// EmailSettings is the optional email delivery for a report. Recipient,
// sender, and server must all be set or all be empty; a partial
// configuration is a flag-usage error.
type EmailSettings struct {
	Recipient string
	Sender    string
	Server    string
}

// Enabled reports whether email delivery was requested.
func (e EmailSettings) Enabled() bool {
	return e.Recipient != "" || e.Sender != "" || e.Server != ""
}

// Validate rejects a partially configured email target.
func (e EmailSettings) Validate() error {
	if !e.Enabled() {
		return nil
	}
	if e.Recipient == "" || e.Sender == "" || e.Server == "" {
		return fmt.Errorf("email needs recipient, sender, and server together")
	}
	return nil
}

// Send delivers a plain-text message. A bare server address gets the
// default SMTP port.
func (e EmailSettings) Send(subject, body string) error {
	if err := e.Validate(); err != nil {
		return err
	}
	addr := e.Server
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "25")
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.Sender)
	fmt.Fprintf(&msg, "To: %s\r\n", e.Recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(addr, nil, e.Sender, []string{e.Recipient}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send email via %s: %w", addr, err)
	}
	return nil
}
