package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/pkg/catalog"
)

type IEmailService interface {
	SendQuote(toEmail, name string, items []catalog.Product, total catalog.Money) error
}

// Sender is the part of gomail.Dialer the service uses.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	sender      Sender
	senderEmail string
	senderName  string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderName string, log logger.ILogger) IEmailService {
	return NewEmailServiceWithSender(gomail.NewDialer(host, port, username, password), username, senderName, log)
}

func NewEmailServiceWithSender(sender Sender, senderEmail, senderName string, log logger.ILogger) IEmailService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &emailService{
		sender:      sender,
		senderEmail: senderEmail,
		senderName:  senderName,
		logger:      log,
	}
}

var quoteTemplate = template.Must(template.New("quote").Parse(`
<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
	<h2>Your Cymbal Furniture quote</h2>
	<p>Hi {{.Name}}, here is the quote for the items in your cart:</p>
	<table style="border-collapse: collapse;">
	{{range .Items}}<tr><td style="padding: 4px 12px;">{{.Title}}</td><td style="padding: 4px 12px; text-align: right;">${{.Price}}</td></tr>
	{{end}}<tr><td style="padding: 4px 12px;"><b>Total</b></td><td style="padding: 4px 12px; text-align: right;"><b>${{.Total}}</b></td></tr>
	</table>
</div>
`))

func (s *emailService) SendQuote(toEmail, name string, items []catalog.Product, total catalog.Money) error {
	var body bytes.Buffer
	if err := quoteTemplate.Execute(&body, map[string]any{
		"Name":  name,
		"Items": items,
		"Total": total,
	}); err != nil {
		return fmt.Errorf("render quote: %w", err)
	}

	m := gomail.NewMessage(gomail.SetEncoding(gomail.Unencoded))
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Your Cymbal Furniture quote")
	m.SetBody("text/html", body.String())

	if err := s.sender.DialAndSend(m); err != nil {
		s.logger.Error("MAILER", "Failed to send quote", map[string]interface{}{"to": toEmail, "error": err.Error()})
		return err
	}

	s.logger.Info("MAILER", "Quote sent", map[string]interface{}{"to": toEmail, "items": len(items)})
	return nil
}
