package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
)

const senderName = "The Boring Coffee"

type SendGrid struct {
	client *sendgrid.Client
	from   *mail.Email
}

// DI
func NewSendGrid(apiKey string, sender string) *SendGrid {
	return &SendGrid{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(senderName, sender),
	}
}

func (s *SendGrid) OrderConfirmation(ctx context.Context, o model.Order, items []model.OrderItem) error {
	return s.send(ctx, orderConfirmation(o, items))
}

func (s *SendGrid) NewsletterWelcome(ctx context.Context, email string, code string) error {
	return s.send(ctx, newsletterWelcome(email, code))
}

func (s *SendGrid) send(ctx context.Context, m message) error {
	msg := mail.NewSingleEmail(s.from, m.Subject, mail.NewEmail(m.Name, m.To), m.Plain, m.HTML)
	res, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
