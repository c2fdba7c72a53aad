package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// LicenseMailer delivers freshly minted license keys over SMTP. The key is
// only ever shown once, so the mail is the customer's durable copy.
type LicenseMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewLicenseMailer(host, port, username, password, from string) *LicenseMailer {
	return &LicenseMailer{
		host:     strings.TrimSpace(host),
		port:     strings.TrimSpace(port),
		username: username,
		password: password,
		from:     strings.TrimSpace(from),
	}
}

func (m *LicenseMailer) SendLicenseKey(ctx context.Context, email, displayName, licenseKey string, expiresAt *time.Time) error {
	if m == nil {
		return errors.New("mailer not configured")
	}
	if m.host == "" || m.port == "" || m.from == "" {
		return errors.New("mailer missing configuration")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	subject := "Your MacroForge license key"
	body := strings.Builder{}
	body.WriteString(fmt.Sprintf("Hello %s,\n\n", displayName))
	body.WriteString("Here is your license key. Keep it somewhere safe; it cannot be recovered later:\n\n")
	body.WriteString(fmt.Sprintf("    %s\n\n", licenseKey))
	if expiresAt != nil {
		body.WriteString(fmt.Sprintf("Your license is valid until %s.\n\n", expiresAt.Format("2 January 2006")))
	}
	body.WriteString("If you did not purchase a license, ignore this email.")

	message := strings.Builder{}
	message.WriteString(fmt.Sprintf("From: %s\r\n", m.from))
	message.WriteString(fmt.Sprintf("To: %s\r\n", email))
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	message.WriteString("Content-Transfer-Encoding: 7bit\r\n\r\n")
	message.WriteString(body.String())
	message.WriteString("\r\n")

	addr := net.JoinHostPort(m.host, m.port)
	var auth smtp.Auth
	if m.username != "" || m.password != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{email}, []byte(message.String()))
}
