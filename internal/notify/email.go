package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/TheOneAtFault/auction-monitor/internal/config"
	"github.com/TheOneAtFault/auction-monitor/internal/observability"
	"github.com/TheOneAtFault/auction-monitor/internal/storage"
)

// EmailNotifier delivers alerts over SMTP as multipart messages with a
// plain-text and an HTML body.
type EmailNotifier struct {
	cfg    config.SMTPConfig
	logger *observability.Logger
}

func NewEmailNotifier(cfg config.SMTPConfig, logger *observability.Logger) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, logger: logger}
}

var htmlBody = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background-color: #4CAF50; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0;">
    <h1>Auction Alert</h1>
    <p>We found a match for your search term: <strong>{{.Term}}</strong></p>
  </div>
  <div style="background-color: #f9f9f9; padding: 20px; border: 1px solid #ddd;">
    <div style="background-color: white; padding: 15px; border-radius: 8px; border-left: 4px solid #4CAF50;">
      <h2>{{.Item.Title}}</h2>
      {{if .Item.ImageURL}}<img src="{{.Item.ImageURL}}" alt="Auction item" style="max-width: 100%; height: auto;">{{end}}
      {{if .Item.Description}}<p><strong>Description:</strong> {{.Item.Description}}</p>{{end}}
      {{if .Item.Price}}<p><strong>Current Price:</strong> {{.Item.Price}}</p>{{end}}
      {{if .Item.EndTime}}<p><strong>End Time:</strong> {{.Item.EndTime}}</p>{{end}}
      <a href="{{.Item.URL}}" style="display: inline-block; background-color: #4CAF50; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">View Auction Item</a>
    </div>
    <p><strong>Why you received this:</strong> this item matches the search term "{{.Term}}" you are monitoring.</p>
  </div>
  <div style="background-color: #333; color: white; padding: 15px; text-align: center; font-size: 12px; border-radius: 0 0 8px 8px;">
    <p>Auction Monitor - automated auction monitoring. Do not reply to this email.</p>
  </div>
</body>
</html>`))

func (n *EmailNotifier) SendNotification(recipient string, item storage.AuctionItem, matchedTerm string) error {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Auction Monitor <%s>", n.cfg.Sender)
	mail.To = []string{recipient}
	mail.Subject = fmt.Sprintf("Auction Alert: %s - %s", matchedTerm, item.Title)
	mail.Text = []byte(textBody(item, matchedTerm))

	var buf bytes.Buffer
	if err := htmlBody.Execute(&buf, struct {
		Item storage.AuctionItem
		Term string
	}{item, matchedTerm}); err != nil {
		return fmt.Errorf("failed to render email body: %w", err)
	}
	mail.HTML = buf.Bytes()

	if err := n.send(mail); err != nil {
		return fmt.Errorf("failed to send notification to %s: %w", recipient, err)
	}

	n.logger.Info("Notification email sent", "recipient", recipient, "title", item.Title)
	return nil
}

func (n *EmailNotifier) SendTest(recipient string) error {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Auction Monitor <%s>", n.cfg.Sender)
	mail.To = []string{recipient}
	mail.Subject = "Test Email - Auction Monitor"
	mail.Text = []byte("This is a test email from Auction Monitor. Your email configuration is working correctly.")

	if err := n.send(mail); err != nil {
		return fmt.Errorf("failed to send test email to %s: %w", recipient, err)
	}

	n.logger.Info("Test email sent", "recipient", recipient)
	return nil
}

func (n *EmailNotifier) send(mail *email.Email) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Server, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Sender, n.cfg.Password, n.cfg.Server)

	err := mail.Send(addr, auth)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		return mail.Send(addr, nil)
	}
	return err
}

func textBody(item storage.AuctionItem, term string) string {
	var b strings.Builder
	b.WriteString("AUCTION ALERT\n\n")
	fmt.Fprintf(&b, "We found a match for your search term: %s\n\n", term)
	fmt.Fprintf(&b, "Title: %s\n", item.Title)
	if item.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", item.Description)
	}
	if item.Price != "" {
		fmt.Fprintf(&b, "Current Price: %s\n", item.Price)
	}
	if item.EndTime != "" {
		fmt.Fprintf(&b, "End Time: %s\n", item.EndTime)
	}
	fmt.Fprintf(&b, "\nView auction: %s\n", item.URL)
	b.WriteString("\n---\nAuction Monitor - automated auction monitoring. Do not reply to this email.\n")
	return b.String()
}
