package messaging

import (
	"context"
	"fmt"
	"net"
	"time"

	"nutricoach_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// EmailNotifier mirrors milestone messages to the client's email via SMTP.
// It is a best-effort notifier: the lifecycle engine logs failures and moves on.
type EmailNotifier struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	enabled   bool
}

// NewEmailNotifier creates the SMTP notifier from config. When email is
// disabled the notifier silently drops sends.
func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
		enabled:   cfg.GetEmailEnabled(),
	}
}

// Send delivers a plain-text milestone notification to the given address.
func (n *EmailNotifier) Send(ctx context.Context, toEmail, subject, body string) error {
	if n == nil || !n.enabled {
		return nil
	}
	if toEmail == "" {
		return nil
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(n.fromName, n.fromEmail); err != nil {
		return fmt.Errorf("email from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("email to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	client, err := gomail.NewClient(n.host,
		gomail.WithPort(n.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(n.username),
		gomail.WithPassword(n.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("email client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("email send: %w", err)
	}
	return nil
}
