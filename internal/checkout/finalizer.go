package checkout

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"storefront_back_end/internal/apperr"
	"storefront_back_end/internal/events"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/notify"
	"storefront_back_end/internal/orders"
	"storefront_back_end/internal/stock"
)

type State string

const (
	StateVerifying State = "verifying"
	StateSuccess   State = "success"
	StateError     State = "error"
)

type FinalizeRequest struct {
	Token     string
	SessionID string
	// OrderID is the order id carried by the return URL. The processor's
	// metadata wins; a disagreeing value is rejected.
	OrderID string
}

// Outcome is the terminal state of one finalization attempt.
type Outcome struct {
	State   State             `json:"status"`
	Order   *models.Order     `json:"order,omitempty"`
	Summary *Summary          `json:"orderDetails,omitempty"`
	Cart    []models.CartLine `json:"-"`
	Err     error             `json:"-"`
}

func failed(err error, snapshot []models.CartLine) Outcome {
	return Outcome{State: StateError, Err: err, Cart: snapshot}
}

// Finalizer settles a checkout after the shopper returns from the payment
// page. A reload simply runs it again: settling a paid order is a no-op.
type Finalizer struct {
	rt       *runtime
	verifier *Verifier
}

func (f *Finalizer) Finalize(ctx context.Context, req FinalizeRequest) Outcome {
	deps := f.rt.deps

	// The cart is stored per user, so the caller is known before the
	// snapshot is taken.
	identity, err := resolveIdentity(ctx, deps.Identities, req.Token)
	if err != nil {
		return failed(err, nil)
	}

	current, err := deps.Carts.Load(ctx, identity.UserID)
	if err != nil {
		return failed(apperr.Persistence(err, "could not read cart"), nil)
	}
	snapshot := current.Snapshot()

	summary, err := f.verify(ctx, req.SessionID)
	if err != nil {
		log.Printf("❌ Verification failed for session %s: %v", req.SessionID, err)
		return failed(err, snapshot)
	}

	order, err := f.rt.settle(ctx, summary, req.OrderID, identity.UserID)
	if err != nil {
		return failed(err, snapshot)
	}

	if err := deps.Carts.Clear(ctx, identity.UserID); err != nil {
		log.Printf("⚠️ Order %s is paid but cart of %s was not cleared: %v", order.ID, identity.UserID, err)
	} else {
		log.Printf("🧹 Cart cleared for %s", identity.UserID)
	}

	return Outcome{State: StateSuccess, Order: order, Summary: summary, Cart: snapshot}
}

func (f *Finalizer) verify(ctx context.Context, sessionID string) (*Summary, error) {
	vctx, cancel := context.WithTimeout(ctx, f.rt.cfg.VerifyTimeout)
	defer cancel()

	summary, err := f.verifier.Verify(vctx, sessionID)
	if err != nil && errors.Is(vctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, apperr.Upstream(err, "payment verification timed out")
	}
	return summary, err
}

// SettleSession settles a session reported by the processor webhook. The
// session is fetched again rather than trusting the webhook payload.
func (f *Finalizer) SettleSession(ctx context.Context, sessionID string) (*models.Order, error) {
	summary, err := f.verify(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	order, err := f.rt.settle(ctx, summary, "", "")
	if err != nil {
		return nil, err
	}
	if err := f.rt.deps.Carts.Clear(ctx, order.UserID); err != nil {
		log.Printf("⚠️ Cart of %s not cleared after webhook: %v", order.UserID, err)
	}
	return order, nil
}

// CancelExpired cancels the order of an expired session and releases its
// stock. Orders that were paid in the meantime are left alone.
func (f *Finalizer) CancelExpired(ctx context.Context, orderID string) error {
	id, err := uuid.Parse(strings.TrimSpace(orderID))
	if err != nil {
		return apperr.Validation("invalid order id %q", orderID)
	}
	order, err := f.rt.deps.Orders.Get(ctx, id)
	if errors.Is(err, orders.ErrOrderNotFound) {
		return apperr.Validation("order %s not found", orderID)
	}
	if err != nil {
		return apperr.Persistence(err, "could not read order")
	}
	if order.Status != models.StatusPending && order.Status != models.StatusCancelled {
		log.Printf("ℹ️ Session of order %s expired but order is %s, ignored", order.ID, order.Status)
		return nil
	}
	if err := f.rt.cancelAndRelease(ctx, order); err != nil {
		if errors.Is(err, orders.ErrInvalidTransition) {
			return nil
		}
		return apperr.Persistence(err, "could not cancel order")
	}
	return nil
}

// settle marks the order of a verified session as paid. callerID, when set,
// must own the order.
func (rt *runtime) settle(ctx context.Context, summary *Summary, urlOrderID, callerID string) (*models.Order, error) {
	deps := rt.deps

	orderID := summary.OrderID
	urlOrderID = strings.TrimSpace(urlOrderID)
	switch {
	case orderID == "" && urlOrderID == "":
		return nil, apperr.Validation("payment session %s is not linked to an order", summary.SessionID)
	case orderID == "":
		orderID = urlOrderID
	case urlOrderID != "" && urlOrderID != orderID:
		return nil, apperr.Validation("order %s does not belong to payment session %s", urlOrderID, summary.SessionID)
	}

	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, apperr.Validation("invalid order id %q", orderID)
	}
	order, err := deps.Orders.Get(ctx, id)
	if errors.Is(err, orders.ErrOrderNotFound) {
		return nil, apperr.Validation("order %s not found", orderID)
	}
	if err != nil {
		return nil, apperr.Persistence(err, "could not read order")
	}

	if callerID != "" && order.UserID != callerID {
		return nil, apperr.Auth(nil, "order %s belongs to another user", orderID)
	}
	if !summary.AmountTotal.Equal(order.Total) {
		log.Printf("🚨 Session %s paid %s but order %s totals %s", summary.SessionID, summary.AmountTotal, order.ID, order.Total)
		return nil, apperr.Validation("paid amount %s does not match order total %s", summary.AmountTotal.StringFixed(2), order.Total.StringFixed(2))
	}

	changed, err := deps.Orders.Transition(ctx, order.ID, models.StatusPaid)
	if err != nil {
		if !errors.Is(err, orders.ErrInvalidTransition) {
			return nil, apperr.Persistence(err, "could not record payment")
		}
		if order.Status == models.StatusShipped {
			return order, nil
		}
		log.Printf("🚨 Session %s paid for order %s which is %s, needs a refund", summary.SessionID, order.ID, order.Status)
		return nil, apperr.Validation("order %s was %s before the payment completed", order.ID, order.Status)
	}
	order.Status = models.StatusPaid

	if order.SessionID != summary.SessionID {
		if err := deps.Orders.AttachSession(ctx, order.ID, summary.SessionID); err != nil {
			log.Printf("⚠️ Could not record session %s on order %s: %v", summary.SessionID, order.ID, err)
		} else {
			order.SessionID = summary.SessionID
		}
	}

	if !changed {
		log.Printf("🔁 Order %s already paid", order.ID)
		return order, nil
	}

	log.Printf("✅ Order %s paid (%s %s)", order.ID, order.Total.StringFixed(2), order.Currency)
	rt.rectifyStock(ctx, order)

	rt.publish(events.OrderPaid, order)
	paid := *order
	rt.background("order confirmation", func(ctx context.Context) error {
		return deps.Notifier.OrderPaid(ctx, &paid, summary.PaidEmail)
	})
	return order, nil
}

// rectifyStock makes sure the reservation taken at checkout is held. It is
// normally a no-op; if the reservation had been released it is taken
// again. Failures never undo the payment: they raise a stock alert.
func (rt *runtime) rectifyStock(ctx context.Context, order *models.Order) {
	lines := order.StockLines()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = rt.cfg.RectifyMaxElapsed

	var applied bool
	op := func() error {
		var err error
		applied, err = rt.deps.Ledger.Reserve(ctx, order.ID.String(), lines)
		if errors.Is(err, stock.ErrInsufficientStock) || errors.Is(err, stock.ErrUnknownProduct) || errors.Is(err, stock.ErrInvalidQuantity) {
			return backoff.Permanent(err)
		}
		return err
	}
	notifyRetry := func(err error, wait time.Duration) {
		log.Printf("⚠️ Stock rectification for order %s failed, retrying in %s: %v", order.ID, wait, err)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notifyRetry); err != nil {
		log.Printf("🚨 Stock rectification for order %s gave up: %v", order.ID, err)
		alert := notify.StockAlert{OrderID: order.ID.String(), Reason: err.Error(), Lines: lines}
		rt.background("stock alert", func(ctx context.Context) error {
			return rt.deps.Notifier.StockAlert(ctx, alert)
		})
		return
	}
	if applied {
		log.Printf("⚠️ Stock for order %s was not held and has been taken again", order.ID)
	}
}
