// Package mailer sends customer notification emails. Everything here is
// best effort: callers log failures and carry on, an unreachable SMTP host
// must never fail a checkout.
package mailer

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	gomail "gopkg.in/gomail.v2"

	"github.com/kimthedrew/legit-collections/config"
	"github.com/kimthedrew/legit-collections/models"
)

type Mailer struct {
	cfg    config.MailConfig
	dialer *gomail.Dialer
	logger zerolog.Logger
}

func New(cfg config.MailConfig, logger zerolog.Logger) *Mailer {
	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger.With().Str("component", "mailer").Logger(),
	}
}

// Configured reports whether SMTP credentials are present; unconfigured
// mailers silently skip sends.
func (m *Mailer) Configured() bool {
	return m.cfg.Host != "" && m.cfg.Username != ""
}

func (m *Mailer) SendOrderConfirmation(to, name string, orders []models.Order) error {
	if !m.Configured() {
		m.logger.Warn().Msg("email not configured, skipping order confirmation")
		return nil
	}
	if len(orders) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Hi %s,</h2>", name)
	b.WriteString("<p>We've received your order and it's being processed.</p>")
	for _, order := range orders {
		product := "N/A"
		amount := order.Amount
		if order.Product != nil {
			product = order.Product.Name
			if amount == 0 {
				amount = order.Product.Price
			}
		}
		fmt.Fprintf(&b, "<div><h3>Order #%d</h3>", order.ID)
		fmt.Fprintf(&b, "<p><strong>Product:</strong> %s</p>", product)
		fmt.Fprintf(&b, "<p><strong>Size:</strong> %s</p>", order.Size)
		fmt.Fprintf(&b, "<p><strong>Amount:</strong> Ksh%.2f</p>", amount)
		fmt.Fprintf(&b, "<p><strong>Payment Status:</strong> %s</p></div>", order.PaymentStatus)
	}
	b.WriteString("<p>Delivery within 3-5 business days.</p>")

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("Order Confirmation #%d - Legit Collections", orders[0].ID))
	msg.SetBody("text/html", b.String())

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}
	m.logger.Info().Str("to", to).Int("orders", len(orders)).Msg("order confirmation sent")
	return nil
}

// SendStatusUpdate notifies the customer of a fulfillment status change.
func (m *Mailer) SendStatusUpdate(to, name string, order models.Order) error {
	if !m.Configured() {
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("Order #%d is now %s - Legit Collections", order.ID, order.Status))
	msg.SetBody("text/html", fmt.Sprintf(
		"<h2>Hi %s,</h2><p>Your order #%d is now <strong>%s</strong>.</p>",
		name, order.ID, order.Status,
	))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send status email: %w", err)
	}
	return nil
}
