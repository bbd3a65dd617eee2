package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"storefront_back_end/internal/apperr"
	"storefront_back_end/internal/auth"
	"storefront_back_end/internal/events"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/payment"
	"storefront_back_end/internal/stock"
)

type StartRequest struct {
	Token string
	Lines []models.CartLine
}

type StartResult struct {
	SessionURL string `json:"sessionUrl"`
	SessionID  string `json:"sessionId"`
	OrderID    string `json:"orderId"`
}

// Initiator opens a checkout: it records a pending order, holds its stock
// and obtains a hosted payment page for it.
type Initiator struct {
	rt *runtime
}

// Start runs the checkout saga. Every step after the order is written is
// compensated on failure: a failed reservation cancels the order, a failed
// payment session also releases the stock. A session the processor may
// have opened despite the failure is expired first.
func (in *Initiator) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	deps := in.rt.deps

	if err := validateLines(req.Lines); err != nil {
		return nil, err
	}

	identity, err := resolveIdentity(ctx, deps.Identities, req.Token)
	if err != nil {
		return nil, err
	}

	priced, err := in.reprice(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	order := models.NewPendingOrder(identity.UserID, in.rt.cfg.Currency, priced, deps.Now())
	if err := deps.Orders.Create(ctx, order); err != nil {
		log.Printf("❌ Order creation failed for %s: %v", identity.UserID, err)
		return nil, apperr.Persistence(err, "could not create order")
	}
	log.Printf("📝 Pending order %s created (%s %s)", order.ID, order.Total.StringFixed(2), order.Currency)

	if _, err := deps.Ledger.Reserve(ctx, order.ID.String(), order.StockLines()); err != nil {
		_ = in.rt.cancelAndRelease(ctx, order)
		return nil, stockError(err, priced)
	}

	sessionReq, err := in.sessionRequest(ctx, identity, order, priced)
	if err != nil {
		_ = in.rt.cancelAndRelease(ctx, order)
		return nil, err
	}

	session, err := deps.Processor.CreateSession(ctx, sessionReq)
	if err != nil {
		log.Printf("❌ Payment session failed for order %s: %v", order.ID, err)
		if payment.MayHaveCommitted(err) && in.closeOrphanSession(ctx, order, sessionReq) {
			return nil, apperr.Upstream(err, "payment provider unavailable")
		}
		_ = in.rt.cancelAndRelease(ctx, order)
		return nil, apperr.Upstream(err, "payment provider unavailable")
	}

	if err := deps.Orders.AttachSession(ctx, order.ID, session.ID); err != nil {
		log.Printf("⚠️ Could not record session %s on order %s: %v", session.ID, order.ID, err)
	} else {
		order.SessionID = session.ID
	}

	log.Printf("💳 Checkout session %s opened for order %s", session.ID, order.ID)
	in.rt.publish(events.OrderCreated, order)

	return &StartResult{
		SessionURL: session.URL,
		SessionID:  session.ID,
		OrderID:    order.ID.String(),
	}, nil
}

// closeOrphanSession replays the session creation under the same
// idempotency key to learn whether the processor opened a session before
// the failure, and expires it so the order can be cancelled safely. It
// reports true when that session was already paid: the order must then be
// left for the payment webhook to settle.
func (in *Initiator) closeOrphanSession(ctx context.Context, order *models.Order, req payment.SessionRequest) bool {
	deps := in.rt.deps
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), in.rt.cfg.CompensationTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = in.rt.cfg.SessionRecoveryMaxElapsed

	var session *models.PaymentSession
	op := func() error {
		s, err := deps.Processor.CreateSession(ctx, req)
		if err != nil {
			if !payment.MayHaveCommitted(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		session = s
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		log.Printf("🚨 Could not recover the payment session of order %s, one may still be open: %v", order.ID, err)
		return false
	}

	err := deps.Processor.ExpireSession(ctx, session.ID)
	switch {
	case err == nil:
		log.Printf("🧹 Orphan session %s of order %s expired", session.ID, order.ID)
	case errors.Is(err, payment.ErrSessionNotFound):
	case errors.Is(err, payment.ErrSessionCompleted):
		log.Printf("🚨 Orphan session %s of order %s was already paid", session.ID, order.ID)
		if err := deps.Orders.AttachSession(ctx, order.ID, session.ID); err != nil {
			log.Printf("⚠️ Could not record session %s on order %s: %v", session.ID, order.ID, err)
		}
		return true
	default:
		log.Printf("🚨 Could not expire orphan session %s of order %s: %v", session.ID, order.ID, err)
	}
	return false
}

func validateLines(lines []models.CartLine) error {
	if len(lines) == 0 {
		return apperr.Validation("cart is empty")
	}
	for _, l := range lines {
		if strings.TrimSpace(l.ProductID) == "" {
			return apperr.Validation("cart line without product id")
		}
		if l.Quantity < 1 {
			return apperr.Validation("invalid quantity %d for product %s", l.Quantity, l.ProductID)
		}
	}
	return nil
}

func resolveIdentity(ctx context.Context, resolver auth.Resolver, token string) (auth.Identity, error) {
	identity, err := resolver.Resolve(ctx, token)
	if err != nil {
		if apperr.Is(err, apperr.KindAuth) {
			return auth.Identity{}, err
		}
		return auth.Identity{}, apperr.Auth(err, "could not authenticate caller")
	}
	return identity, nil
}

// reprice replaces client names, prices and images with the catalog's.
// Duplicate lines of one product are merged.
func (in *Initiator) reprice(ctx context.Context, lines []models.CartLine) ([]models.CartLine, error) {
	merged := make([]models.CartLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if i, ok := index[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
		ids = append(ids, l.ProductID)
	}

	products, err := in.rt.deps.Catalog.Lookup(ctx, ids)
	if err != nil {
		return nil, apperr.Upstream(err, "catalog unavailable")
	}

	for i, l := range merged {
		p, ok := products[l.ProductID]
		if !ok || !p.IsActive {
			return nil, apperr.Validation("product %s is not available", l.ProductID)
		}
		if !l.UnitPrice.IsZero() && !l.UnitPrice.Equal(p.Price) {
			log.Printf("⚠️ Client price %s for %s replaced by catalog price %s", l.UnitPrice, l.ProductID, p.Price)
		}
		merged[i] = models.CartLine{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: models.RoundToCurrency(p.Price, in.rt.cfg.Currency),
			Quantity:  l.Quantity,
			ImageRef:  p.ImageRef(),
		}
	}
	return merged, nil
}

func (in *Initiator) sessionRequest(ctx context.Context, identity auth.Identity, order *models.Order, lines []models.CartLine) (payment.SessionRequest, error) {
	items := make([]payment.LineItem, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, l := range lines {
		items[i] = payment.LineItem{
			Name:       l.Name,
			UnitAmount: models.ToMinorUnits(l.UnitPrice, order.Currency),
			Quantity:   int64(l.Quantity),
		}
		if l.ImageRef == "" || in.rt.deps.Images == nil {
			continue
		}
		g.Go(func() error {
			u, err := in.rt.deps.Images.Resolve(gctx, l.ImageRef)
			if err != nil {
				log.Printf("⚠️ No image for %s: %v", l.ProductID, err)
				return nil
			}
			items[i].ImageURL = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return payment.SessionRequest{}, apperr.Upstream(err, "could not prepare payment session")
	}

	site := strings.TrimSuffix(in.rt.cfg.SiteURL, "/")
	orderID := url.QueryEscape(order.ID.String())
	return payment.SessionRequest{
		OrderID:       order.ID.String(),
		UserID:        identity.UserID,
		CustomerEmail: identity.Email,
		Currency:      order.Currency,
		Lines:         items,
		// {CHECKOUT_SESSION_ID} is substituted by the processor.
		SuccessURL: fmt.Sprintf("%s/payment-success?session_id={CHECKOUT_SESSION_ID}&order_id=%s", site, orderID),
		CancelURL:  fmt.Sprintf("%s/payment-cancel?order_id=%s", site, orderID),
	}, nil
}

func stockError(err error, lines []models.CartLine) error {
	var shortage *stock.ShortageError
	if errors.As(err, &shortage) {
		return apperr.InsufficientStock(err, "not enough stock for %s (%d available)", lineName(lines, shortage.ProductID), shortage.Available)
	}
	var unknown *stock.UnknownProductError
	if errors.As(err, &unknown) {
		return apperr.InsufficientStock(err, "%s is out of stock", lineName(lines, unknown.ProductID))
	}
	return apperr.Upstream(err, "stock ledger unavailable")
}

func lineName(lines []models.CartLine, productID string) string {
	for _, l := range lines {
		if l.ProductID == productID && l.Name != "" {
			return l.Name
		}
	}
	return productID
}
