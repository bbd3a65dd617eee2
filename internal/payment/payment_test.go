package payment

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"

	"storefront_back_end/internal/models"
)

type stubProcessor struct {
	calls int
	err   error
	delay time.Duration
}

func (s *stubProcessor) CreateSession(ctx context.Context, req SessionRequest) (*models.PaymentSession, error) {
	return s.GetSession(ctx, "cs_"+req.OrderID)
}

func (s *stubProcessor) GetSession(ctx context.Context, id string) (*models.PaymentSession, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &models.PaymentSession{ID: id, Status: models.PaymentOpen}, nil
}

func (s *stubProcessor) ExpireSession(ctx context.Context, id string) error {
	_, err := s.GetSession(ctx, id)
	return err
}

func testBreakerConfig() BreakerConfig {
	cfg := DefaultBreakerConfig()
	cfg.MaxFailures = 2
	cfg.OpenTimeout = time.Minute
	return cfg
}

func TestBreaker_OpensAfterUpstreamFailures(t *testing.T) {
	stub := &stubProcessor{err: errors.New("connection reset")}
	b := NewBreaker(stub, testBreakerConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := b.GetSession(ctx, "cs_1")
		require.Error(t, err)
	}

	_, err := b.GetSession(ctx, "cs_1")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, stub.calls)
}

func TestBreaker_CallerErrorsKeepCircuitClosed(t *testing.T) {
	stub := &stubProcessor{err: &stripe.Error{HTTPStatusCode: http.StatusBadRequest, Msg: "No such checkout.session"}}
	b := NewBreaker(stub, testBreakerConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := b.GetSession(ctx, "cs_1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	assert.Equal(t, 5, stub.calls)
}

func TestBreaker_AppliesCallTimeout(t *testing.T) {
	stub := &stubProcessor{delay: time.Second}
	cfg := testBreakerConfig()
	cfg.CallTimeout = 20 * time.Millisecond
	b := NewBreaker(stub, cfg)

	_, err := b.CreateSession(context.Background(), SessionRequest{OrderID: "o1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsCallerError(t *testing.T) {
	assert.True(t, isCallerError(ErrSessionCompleted))
	assert.True(t, isCallerError(&stripe.Error{HTTPStatusCode: http.StatusNotFound}))
	assert.False(t, isCallerError(&stripe.Error{HTTPStatusCode: http.StatusTooManyRequests}))
	assert.False(t, isCallerError(&stripe.Error{HTTPStatusCode: http.StatusInternalServerError}))
	assert.False(t, isCallerError(errors.New("dial tcp: timeout")))
}

func TestMayHaveCommitted(t *testing.T) {
	assert.True(t, MayHaveCommitted(context.DeadlineExceeded))
	assert.True(t, MayHaveCommitted(errors.New("read tcp: connection reset by peer")))
	assert.True(t, MayHaveCommitted(&stripe.Error{HTTPStatusCode: http.StatusInternalServerError}))
	assert.False(t, MayHaveCommitted(nil))
	assert.False(t, MayHaveCommitted(&stripe.Error{HTTPStatusCode: http.StatusBadRequest}))
	assert.False(t, MayHaveCommitted(gobreaker.ErrOpenState))
}

func TestToPaymentSession_ZeroDecimalCurrency(t *testing.T) {
	s := &stripe.CheckoutSession{
		ID:          "cs_test_jpy",
		Status:      stripe.CheckoutSessionStatusOpen,
		AmountTotal: 1500,
		Currency:    stripe.Currency("jpy"),
		LineItems: &stripe.LineItemList{Data: []*stripe.LineItem{{
			Description: "Tea",
			Quantity:    3,
			Price:       &stripe.Price{UnitAmount: 500},
		}}},
	}

	got := toPaymentSession(s)
	assert.Equal(t, "1500", got.AmountTotal.String())
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "500", got.Lines[0].UnitPrice.String())
}

func TestToPaymentSession(t *testing.T) {
	s := &stripe.CheckoutSession{
		ID:                "cs_test_1",
		URL:               "https://checkout.stripe.test/cs_test_1",
		Status:            stripe.CheckoutSessionStatusComplete,
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:       2000,
		Currency:          stripe.CurrencyUSD,
		CustomerEmail:     "fallback@example.com",
		CustomerDetails:   &stripe.CheckoutSessionCustomerDetails{Email: "buyer@example.com"},
		Metadata:          map[string]string{"order_id": "order-1"},
		ClientReferenceID: "ignored",
		LineItems: &stripe.LineItemList{Data: []*stripe.LineItem{{
			Description: "Mug",
			Quantity:    2,
			Price: &stripe.Price{
				UnitAmount: 1000,
				Product:    &stripe.Product{Name: "Ceramic mug"},
			},
		}}},
	}

	got := toPaymentSession(s)
	assert.Equal(t, models.PaymentPaid, got.Status)
	assert.Equal(t, "buyer@example.com", got.Email)
	assert.Equal(t, "order-1", got.OrderID)
	assert.Equal(t, "20", got.AmountTotal.String())
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "Ceramic mug", got.Lines[0].Name)
	assert.Equal(t, int64(2), got.Lines[0].Quantity)
	assert.Equal(t, "10", got.Lines[0].UnitPrice.String())
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, models.PaymentOpen, mapStatus(&stripe.CheckoutSession{
		Status: stripe.CheckoutSessionStatusOpen, PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
	}))
	assert.Equal(t, models.PaymentFailed, mapStatus(&stripe.CheckoutSession{
		Status: stripe.CheckoutSessionStatusExpired, PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
	}))
	assert.Equal(t, models.PaymentOpen, mapStatus(&stripe.CheckoutSession{
		Status: stripe.CheckoutSessionStatusComplete, PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
	}))
}

func TestSessionRequestAmountTotal(t *testing.T) {
	req := SessionRequest{Lines: []LineItem{{UnitAmount: 1000, Quantity: 2}, {UnitAmount: 250, Quantity: 1}}}
	assert.Equal(t, int64(2250), req.AmountTotal())
}
