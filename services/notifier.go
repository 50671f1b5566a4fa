package services

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"

	"stuytown-watcher/config"
	"stuytown-watcher/models"
	"stuytown-watcher/utils"
)

// Notifier delivers plain-text email notifications over authenticated
// STARTTLS SMTP to the configured recipient list.
type Notifier struct {
	cfg    *config.Config
	logger *utils.Logger
}

// NewNotifier creates a Notifier with the given configuration.
func NewNotifier(cfg *config.Config, logger *utils.Logger) *Notifier {
	return &Notifier{cfg: cfg, logger: logger}
}

// NotifyNew sends a digest email for a batch of newly-seen listings. An
// empty batch is a no-op: no empty-body emails.
func (n *Notifier) NotifyNew(listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	if err := n.send(digestSubject(len(listings)), digestBody(listings)); err != nil {
		return fmt.Errorf("notifier: send digest: %w", err)
	}
	n.logger.Info("[notifier] Notification sent for %d new listing(s) to %d recipient(s)",
		len(listings), len(n.cfg.EmailTo))
	return nil
}

// SendTest sends a fixed connectivity-test message.
func (n *Notifier) SendTest() error {
	body := "This is a test email from your StuyTown apartment scraper.\n\n" +
		"If you received this, email notifications are working correctly!"
	if err := n.send("🧪 StuyTown Scraper Test Email", body); err != nil {
		return fmt.Errorf("notifier: send test: %w", err)
	}
	n.logger.Info("[notifier] Test email sent to %d recipient(s)", len(n.cfg.EmailTo))
	return nil
}

func (n *Notifier) send(subject, body string) error {
	msg := email.NewEmail()
	msg.From = n.cfg.EmailFrom
	msg.To = n.cfg.EmailTo
	msg.Subject = subject
	msg.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPServer, n.cfg.SMTPPort)
	auth := smtp.PlainAuth("", n.cfg.EmailFrom, n.cfg.EmailPassword, n.cfg.SMTPServer)
	return msg.Send(addr, auth)
}

func digestSubject(count int) string {
	return fmt.Sprintf("🏠 %d New StuyTown Apartment(s) Found!", count)
}

// digestBody enumerates the new listings in detection order.
func digestBody(listings []*models.Listing) string {
	var b strings.Builder
	b.WriteString("New apartments available at StuyTown:\n\n")
	for _, l := range listings {
		fmt.Fprintf(&b, "📍 %s\n", l.Address)
		fmt.Fprintf(&b, "💰 %s\n", l.Price)
		fmt.Fprintf(&b, "🛏️ %s\n", l.Bedrooms)
		fmt.Fprintf(&b, "🕐 Discovered: %s\n", l.DiscoveredAt.Format(time.RFC3339))
		fmt.Fprintf(&b, "🔗 %s\n\n", l.URL)
	}
	return b.String()
}
