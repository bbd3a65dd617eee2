package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/checkout/session"

	"storefront_back_end/internal/models"
)

const orderIDMetadataKey = "order_id"

// StripeProcessor creates and reads Stripe Checkout sessions. The API key
// is the package-level stripe.Key set at startup.
type StripeProcessor struct{}

func NewStripeProcessor() *StripeProcessor {
	return &StripeProcessor{}
}

func (p *StripeProcessor) CreateSession(ctx context.Context, req SessionRequest) (*models.PaymentSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.OrderID),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, l := range req.Lines {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(l.Name),
		}
		if l.ImageURL != "" {
			product.Images = stripe.StringSlice([]string{l.ImageURL})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(l.UnitAmount),
			},
			Quantity: stripe.Int64(l.Quantity),
		})
	}
	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + req.OrderID)
	params.AddMetadata(orderIDMetadataKey, req.OrderID)
	if req.UserID != "" {
		params.AddMetadata("user_id", req.UserID)
	}

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return toPaymentSession(s), nil
}

func (p *StripeProcessor) GetSession(ctx context.Context, sessionID string) (*models.PaymentSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items.data.price.product")

	s, err := session.Get(sessionID, params)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("retrieve checkout session %s: %w", sessionID, err)
	}
	return toPaymentSession(s), nil
}

// ExpireSession closes an open session. Stripe refuses to expire a session
// that is no longer open, so the session is read back to tell a completed
// payment apart from an already expired one.
func (p *StripeProcessor) ExpireSession(ctx context.Context, sessionID string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx

	_, err := session.Expire(sessionID, params)
	if err == nil {
		return nil
	}

	current, getErr := p.GetSession(ctx, sessionID)
	if getErr != nil {
		return fmt.Errorf("expire checkout session %s: %w", sessionID, err)
	}
	switch current.RawStatus {
	case string(stripe.CheckoutSessionStatusComplete):
		return ErrSessionCompleted
	case string(stripe.CheckoutSessionStatusExpired):
		return nil
	}
	return fmt.Errorf("expire checkout session %s: %w", sessionID, err)
}

func toPaymentSession(s *stripe.CheckoutSession) *models.PaymentSession {
	out := &models.PaymentSession{
		ID:          s.ID,
		URL:         s.URL,
		Status:      mapStatus(s),
		RawStatus:   string(s.Status),
		AmountTotal: models.FromMinorUnits(s.AmountTotal, string(s.Currency)),
		Currency:    string(s.Currency),
		Email:       s.CustomerEmail,
		OrderID:     s.Metadata[orderIDMetadataKey],
	}
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		out.Email = s.CustomerDetails.Email
	}
	if out.OrderID == "" {
		out.OrderID = s.ClientReferenceID
	}
	if s.LineItems != nil {
		for _, li := range s.LineItems.Data {
			line := models.PaymentLine{Name: li.Description, Quantity: li.Quantity}
			if li.Price != nil {
				line.UnitPrice = models.FromMinorUnits(li.Price.UnitAmount, string(s.Currency))
				if li.Price.Product != nil && li.Price.Product.Name != "" {
					line.Name = li.Price.Product.Name
				}
			}
			out.Lines = append(out.Lines, line)
		}
	}
	return out
}

func mapStatus(s *stripe.CheckoutSession) models.PaymentStatus {
	switch {
	case s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		return models.PaymentPaid
	case s.Status == stripe.CheckoutSessionStatusExpired:
		return models.PaymentFailed
	default:
		return models.PaymentOpen
	}
}

func isNotFound(err error) bool {
	var se *stripe.Error
	return errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound
}

// isCallerError reports a 4xx answer other than rate limiting: the request
// was refused, the provider itself is healthy.
func isCallerError(err error) bool {
	if errors.Is(err, ErrSessionCompleted) || errors.Is(err, ErrSessionNotFound) {
		return true
	}
	var se *stripe.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.HTTPStatusCode >= 400 && se.HTTPStatusCode < 500 && se.HTTPStatusCode != http.StatusTooManyRequests
}
