package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"clipforge/internal/infrastructure/cache"
	"clipforge/internal/shared/clock"
	"clipforge/internal/shared/flow"
	"clipforge/internal/shared/logger"
	"clipforge/internal/shared/services/markdown"
)

type SMTPConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	FromAddress  string
	FromName     string
	AlertAddress string
}

// BlockAlertMailer emails the security inbox when an identifier is
// newly blocked. Delivery is best-effort: failures are logged, never
// returned, so a down SMTP relay cannot affect the decision path.
type BlockAlertMailer struct {
	config       SMTPConfig
	dialer       *gomail.Dialer
	deduplicator *cache.BlockAlertDeduplicator
	renderer     markdown.Service
	clk          clock.Clock
	logger       logger.Interface
}

func NewBlockAlertMailer(
	config SMTPConfig,
	deduplicator *cache.BlockAlertDeduplicator,
	renderer markdown.Service,
	clk clock.Clock,
	logger logger.Interface,
) *BlockAlertMailer {
	dialer := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)

	return &BlockAlertMailer{
		config:       config,
		dialer:       dialer,
		deduplicator: deduplicator,
		renderer:     renderer,
		clk:          clk,
		logger:       logger.Named("block-alert-mailer"),
	}
}

// NotifyBlock sends the alert email unless the identifier is still in
// its alert cooldown. Called from a supervised goroutine, so it must
// never return an error to the caller.
func (m *BlockAlertMailer) NotifyBlock(identifier string, failedAttempts int, blockedUntil time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if m.deduplicator != nil {
		acquired, err := m.deduplicator.TryAcquire(ctx, identifier, cache.DefaultAlertCooldown)
		if err != nil {
			// Dedup is an optimization; send anyway when Redis is down.
			m.logger.Warnw("alert dedup check failed, sending anyway",
				"identifier", identifier,
				"error", err)
		} else if !acquired {
			m.logger.Debugw("alert suppressed by cooldown",
				"identifier", identifier)
			return
		}
	}

	plainBody := m.buildBody(identifier, failedAttempts, blockedUntil)

	htmlBody, err := m.renderer.ToHTMLSanitized(plainBody)
	if err != nil {
		m.logger.Warnw("failed to render alert body, falling back to plain text",
			"identifier", identifier,
			"error", err)
		htmlBody = ""
	}

	subject := fmt.Sprintf("Login lockout: %s blocked after %d failed attempts", identifier, failedAttempts)

	_, err = flow.Retry(ctx, m.clk, func(context.Context) (struct{}, error) {
		return struct{}{}, m.send(subject, plainBody, htmlBody)
	}, flow.RetryOptions{
		MaxRetries: 2,
		BaseDelay:  2 * time.Second,
		MaxDelay:   10 * time.Second,
	})
	if err != nil {
		m.logger.Errorw("failed to send block alert",
			"identifier", identifier,
			"error", err)
		return
	}

	m.logger.Infow("block alert sent",
		"identifier", identifier,
		"failed_attempts", failedAttempts,
		"blocked_until", blockedUntil)
}

func (m *BlockAlertMailer) buildBody(identifier string, failedAttempts int, blockedUntil time.Time) string {
	return fmt.Sprintf(`## Login lockout triggered

An identifier crossed a lockout tier and has been blocked.

| Field | Value |
| --- | --- |
| Identifier | %s |
| Failed attempts | %d |
| Blocked until | %s |

Repeat alerts for this identifier are suppressed for %s.
`,
		identifier,
		failedAttempts,
		blockedUntil.UTC().Format(time.RFC3339),
		cache.DefaultAlertCooldown,
	)
}

func (m *BlockAlertMailer) send(subject, plainBody, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.config.FromAddress, m.config.FromName)
	msg.SetHeader("To", m.config.AlertAddress)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plainBody)
	if htmlBody != "" {
		msg.AddAlternative("text/html", htmlBody)
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
