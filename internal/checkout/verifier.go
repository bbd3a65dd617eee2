package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"storefront_back_end/internal/apperr"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/payment"
)

// Summary is the verified outcome of a payment session.
type Summary struct {
	SessionID     string               `json:"sessionId"`
	OrderID       string               `json:"orderId,omitempty"`
	PaidEmail     string               `json:"paidEmail"`
	AmountTotal   decimal.Decimal      `json:"amountTotal"`
	Currency      string               `json:"currency"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	Lines         []SummaryLine        `json:"lines"`
}

type SummaryLine struct {
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Verifier asks the processor whether a session was paid. It is the only
// place that establishes a payment.
type Verifier struct {
	rt *runtime
}

func (v *Verifier) Verify(ctx context.Context, sessionID string) (*Summary, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperr.Validation("session_id is required")
	}

	session, err := v.rt.deps.Processor.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payment.ErrSessionNotFound) {
			return nil, apperr.Validation("unknown payment session %s", sessionID)
		}
		return nil, apperr.Upstream(err, "could not reach payment provider")
	}

	if session.Status != models.PaymentPaid {
		return nil, apperr.PaymentNotCompleted("payment for session %s not successful (status: %s)", sessionID, session.Status)
	}

	summary := &Summary{
		SessionID:     session.ID,
		OrderID:       session.OrderID,
		PaidEmail:     session.Email,
		AmountTotal:   session.AmountTotal,
		Currency:      session.Currency,
		PaymentStatus: session.Status,
		Lines:         make([]SummaryLine, 0, len(session.Lines)),
	}
	for _, l := range session.Lines {
		summary.Lines = append(summary.Lines, SummaryLine{Name: l.Name, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return summary, nil
}
