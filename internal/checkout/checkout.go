// Package checkout implements the checkout handshake: a pending order with
// reserved stock before the hosted payment page, and processor-verified
// settlement of that same order afterwards.
package checkout

import (
	"context"
	"log"
	"sync"
	"time"

	"storefront_back_end/internal/auth"
	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/events"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/notify"
	"storefront_back_end/internal/orders"
	"storefront_back_end/internal/payment"
	"storefront_back_end/internal/stock"
)

// ImageResolver turns a product image reference into a public URL.
type ImageResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

type Deps struct {
	Identities auth.Resolver
	Catalog    catalog.Catalog
	Orders     orders.Store
	Ledger     stock.Ledger
	Processor  payment.Processor
	Carts      cart.Store
	Images     ImageResolver
	Events     events.Publisher
	Notifier   notify.Notifier
	Now        func() time.Time
}

type Config struct {
	SiteURL  string
	Currency string
	// VerifyTimeout bounds the processor round trip of a finalization.
	VerifyTimeout time.Duration
	// RectifyMaxElapsed bounds the retries of the stock rectification.
	RectifyMaxElapsed time.Duration
	// AsyncTimeout bounds e-mails and event publication.
	AsyncTimeout time.Duration
	// CompensationTimeout bounds the undo steps of a failed checkout.
	CompensationTimeout time.Duration
	// SessionRecoveryMaxElapsed bounds the replays of a payment session
	// creation whose outcome is unknown.
	SessionRecoveryMaxElapsed time.Duration
}

func (c Config) withDefaults() Config {
	if c.Currency == "" {
		c.Currency = "usd"
	}
	if c.VerifyTimeout <= 0 {
		c.VerifyTimeout = 15 * time.Second
	}
	if c.RectifyMaxElapsed <= 0 {
		c.RectifyMaxElapsed = 30 * time.Second
	}
	if c.AsyncTimeout <= 0 {
		c.AsyncTimeout = 30 * time.Second
	}
	if c.CompensationTimeout <= 0 {
		c.CompensationTimeout = 10 * time.Second
	}
	if c.SessionRecoveryMaxElapsed <= 0 {
		c.SessionRecoveryMaxElapsed = 5 * time.Second
	}
	return c
}

// runtime is what every checkout component shares.
type runtime struct {
	deps Deps
	cfg  Config
	wg   sync.WaitGroup
}

// Service groups the checkout components over one set of dependencies.
type Service struct {
	Initiator *Initiator
	Verifier  *Verifier
	Finalizer *Finalizer
	Canceller *Canceller

	rt *runtime
}

func NewService(deps Deps, cfg Config) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.LogNotifier{}
	}
	rt := &runtime{deps: deps, cfg: cfg.withDefaults()}
	verifier := &Verifier{rt: rt}
	return &Service{
		Initiator: &Initiator{rt: rt},
		Verifier:  verifier,
		Finalizer: &Finalizer{rt: rt, verifier: verifier},
		Canceller: &Canceller{rt: rt},
		rt:        rt,
	}
}

// Wait blocks until pending e-mails and events are handed off.
func (s *Service) Wait() {
	s.rt.wg.Wait()
}

// background runs fn detached from the request, under AsyncTimeout.
func (rt *runtime) background(name string, fn func(ctx context.Context) error) {
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), rt.cfg.AsyncTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("⚠️ %s failed: %v", name, err)
		}
	}()
}

func (rt *runtime) publish(t events.Type, order *models.Order) {
	e := events.FromOrder(t, order, rt.deps.Now())
	rt.background("publish "+string(t), func(ctx context.Context) error {
		return rt.deps.Events.Publish(ctx, e)
	})
}

// cancelAndRelease cancels order, then puts back the stock held for it.
// Stock is only released once the order can no longer be paid. It runs
// detached from ctx's cancellation so that an aborted request still
// compensates.
func (rt *runtime) cancelAndRelease(ctx context.Context, order *models.Order) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rt.cfg.CompensationTimeout)
	defer cancel()

	changed, err := rt.deps.Orders.Transition(ctx, order.ID, models.StatusCancelled)
	if err != nil {
		log.Printf("❌ Could not cancel order %s: %v", order.ID, err)
		return err
	}
	order.Status = models.StatusCancelled
	if changed {
		log.Printf("🧹 Order %s cancelled", order.ID)
		rt.publish(events.OrderCancelled, order)
	}

	released, err := rt.deps.Ledger.Release(ctx, order.ID.String())
	if err != nil {
		log.Printf("❌ Stock release failed for order %s: %v", order.ID, err)
		alert := notify.StockAlert{OrderID: order.ID.String(), Reason: "release failed: " + err.Error(), Lines: order.StockLines()}
		rt.background("stock alert", func(ctx context.Context) error {
			return rt.deps.Notifier.StockAlert(ctx, alert)
		})
		return nil
	}
	if released {
		log.Printf("🔄 Stock released for order %s", order.ID)
	}
	return nil
}
