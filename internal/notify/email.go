package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"

	"github.com/luccasmf/pixkeys-backend/pkg/config"
)

// Result reports the outcome of a notification attempt. Delivery failures do
// not fail the order, so the error rides along instead of propagating.
type Result struct {
	Success bool
	Error   error
}

// DeliveryEmail is everything the customer message needs.
type DeliveryEmail struct {
	To           string
	OrderID      string
	ProductName  string
	Quantity     int
	Total        decimal.Decimal
	Lines        []string
	Instructions string
}

// EmailSender delivers purchased goods to the customer inbox.
type EmailSender interface {
	SendDelivery(ctx context.Context, msg DeliveryEmail) Result
}

// SMTPEmailSender sends delivery emails through a plain SMTP relay.
type SMTPEmailSender struct {
	host string
	port string
	user string
	pass string
	from string
}

// NewSMTPEmailSender builds a sender from SMTP configuration.
func NewSMTPEmailSender(cfg config.SMTPConfig) *SMTPEmailSender {
	return &SMTPEmailSender{
		host: cfg.Host,
		port: cfg.Port,
		user: cfg.Username,
		pass: cfg.Password,
		from: cfg.FromAddress,
	}
}

// SendDelivery sends the purchased lines to the customer.
func (s *SMTPEmailSender) SendDelivery(_ context.Context, msg DeliveryEmail) Result {
	if s.host == "" || s.from == "" {
		return Result{Error: fmt.Errorf("smtp sender not configured")}
	}

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	auth := smtp.PlainAuth("", s.user, s.pass, s.host)

	e := email.NewEmail()
	e.From = s.from
	e.To = []string{msg.To}
	e.Subject = fmt.Sprintf("Your order %s is ready", msg.OrderID)
	e.Text = []byte(RenderDeliveryBody(msg))

	if err := e.Send(addr, auth); err != nil {
		return Result{Error: fmt.Errorf("send delivery email: %w", err)}
	}
	return Result{Success: true}
}

// RenderDeliveryBody produces the plain-text body for a delivery email.
func RenderDeliveryBody(msg DeliveryEmail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your purchase!\n\n")
	fmt.Fprintf(&b, "Order: %s\n", msg.OrderID)
	fmt.Fprintf(&b, "Product: %s x%d\n", msg.ProductName, msg.Quantity)
	fmt.Fprintf(&b, "Total: R$ %s\n\n", msg.Total.StringFixed(2))
	b.WriteString("Your items:\n")
	for _, line := range msg.Lines {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	if strings.TrimSpace(msg.Instructions) != "" {
		fmt.Fprintf(&b, "\n%s\n", msg.Instructions)
	}
	return b.String()
}
