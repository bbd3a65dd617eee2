package notify

import (
	"context"
	"fmt"
	"log"

	"storefront_back_end/internal/models"
)

// Notifier tells people about checkout outcomes.
type Notifier interface {
	OrderPaid(ctx context.Context, order *models.Order, email string) error
	StockAlert(ctx context.Context, alert StockAlert) error
}

// EmailNotifier mails the shopper on payment and the operators on stock
// alerts. An empty alert address turns alerts into log lines.
type EmailNotifier struct {
	sender     Sender
	alertEmail string
}

func NewEmailNotifier(sender Sender, alertEmail string) *EmailNotifier {
	return &EmailNotifier{sender: sender, alertEmail: alertEmail}
}

func (n *EmailNotifier) OrderPaid(ctx context.Context, order *models.Order, email string) error {
	if email == "" {
		log.Printf("⚠️ No email for paid order %s, confirmation skipped", order.ID)
		return nil
	}
	body, err := OrderConfirmationHTML(order)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, email, fmt.Sprintf("Order %s confirmed", order.ID), body)
}

func (n *EmailNotifier) StockAlert(ctx context.Context, alert StockAlert) error {
	log.Printf("🚨 Stock alert for order %s: %s", alert.OrderID, alert.Reason)
	if n.alertEmail == "" {
		return nil
	}
	body, err := StockAlertHTML(alert)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, n.alertEmail, "Stock alert for order "+alert.OrderID, body)
}

// LogNotifier only logs. It is used when SMTP is not configured.
type LogNotifier struct{}

func (LogNotifier) OrderPaid(_ context.Context, order *models.Order, email string) error {
	log.Printf("📧 Order %s paid (%s %s) for %s", order.ID, order.Total.StringFixed(2), order.Currency, email)
	return nil
}

func (LogNotifier) StockAlert(_ context.Context, alert StockAlert) error {
	log.Printf("🚨 Stock alert for order %s: %s %v", alert.OrderID, alert.Reason, alert.Lines)
	return nil
}
