// Package notify はメール通知（注文確認・ニュースレター）。
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
)

// 金額（最小単位）を "$12.34" 形式にする
func formatMoney(amount int64) string {
	return "$" + decimal.New(amount, -2).StringFixed(2)
}

type message struct {
	To      string
	Name    string
	Subject string
	Plain   string
	HTML    string
}

func orderConfirmation(o model.Order, items []model.OrderItem) message {
	var plain, html strings.Builder

	fmt.Fprintf(&plain, "Hi %s,\n\nThanks for your order #%d.\n\n", o.FirstName, o.ID)
	fmt.Fprintf(&html, "<p>Hi %s,</p><p>Thanks for your order <strong>#%d</strong>.</p><ul>", o.FirstName, o.ID)
	for _, it := range items {
		line := formatMoney(it.Price * it.Quantity)
		fmt.Fprintf(&plain, "  %d x %s  %s\n", it.Quantity, it.ProductName, line)
		fmt.Fprintf(&html, "<li>%d &times; %s &mdash; %s</li>", it.Quantity, it.ProductName, line)
	}
	fmt.Fprintf(&plain, "\nSubtotal: %s\nTax: %s\nShipping: %s\nTotal: %s\n",
		formatMoney(o.Subtotal), formatMoney(o.Tax), formatMoney(o.Shipping), formatMoney(o.Total))
	fmt.Fprintf(&html, "</ul><p>Subtotal: %s<br>Tax: %s<br>Shipping: %s<br><strong>Total: %s</strong></p>",
		formatMoney(o.Subtotal), formatMoney(o.Tax), formatMoney(o.Shipping), formatMoney(o.Total))

	return message{
		To:      o.Email,
		Name:    strings.TrimSpace(o.FirstName + " " + o.LastName),
		Subject: fmt.Sprintf("Your Boring Coffee order #%d", o.ID),
		Plain:   plain.String(),
		HTML:    html.String(),
	}
}

func newsletterWelcome(email string, code string) message {
	return message{
		To:      email,
		Subject: "Welcome to The Boring Coffee",
		Plain:   fmt.Sprintf("Thanks for subscribing. Use %s for 10%% off your next order.\n", code),
		HTML:    fmt.Sprintf("<p>Thanks for subscribing.</p><p>Use <strong>%s</strong> for 10%% off your next order.</p>", code),
	}
}

// Noop は送信しない（SENDGRID_API_KEY 未設定時）
type Noop struct{}

func (Noop) OrderConfirmation(ctx context.Context, o model.Order, items []model.OrderItem) error {
	return nil
}

func (Noop) NewsletterWelcome(ctx context.Context, email string, code string) error {
	return nil
}
