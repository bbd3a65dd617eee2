package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront_back_end/internal/events"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/notify"
	"storefront_back_end/internal/orders"
	"storefront_back_end/internal/payment"
)

// fakeProcessor is an in-memory payment provider. Like Stripe, it answers
// a repeated creation for the same order with the session it already made.
type fakeProcessor struct {
	mu        sync.Mutex
	sessions  map[string]*models.PaymentSession
	byOrder   map[string]string
	requests  []payment.SessionRequest
	expired   []string
	createErr error
	// lostReplies makes that many creations open the session but fail.
	lostReplies int
	getErr      error
	getDelay    time.Duration
	seq         int
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		sessions: make(map[string]*models.PaymentSession),
		byOrder:  make(map[string]string),
	}
}

func (p *fakeProcessor) CreateSession(_ context.Context, req payment.SessionRequest) (*models.PaymentSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.createErr != nil {
		return nil, p.createErr
	}
	if id, ok := p.byOrder[req.OrderID]; ok {
		return p.reply(p.sessions[id])
	}
	p.seq++
	id := fmt.Sprintf("cs_test_%d", p.seq)
	s := &models.PaymentSession{
		ID:          id,
		URL:         "https://pay.example.test/" + id,
		Status:      models.PaymentOpen,
		AmountTotal: models.FromMinorUnits(req.AmountTotal(), req.Currency),
		Currency:    req.Currency,
		Email:       req.CustomerEmail,
		OrderID:     req.OrderID,
	}
	for _, l := range req.Lines {
		s.Lines = append(s.Lines, models.PaymentLine{Name: l.Name, Quantity: l.Quantity, UnitPrice: models.FromMinorUnits(l.UnitAmount, req.Currency)})
	}
	p.sessions[id] = s
	p.byOrder[req.OrderID] = id
	return p.reply(s)
}

func (p *fakeProcessor) reply(s *models.PaymentSession) (*models.PaymentSession, error) {
	if p.lostReplies > 0 {
		p.lostReplies--
		return nil, fmt.Errorf("create checkout session: %w", context.DeadlineExceeded)
	}
	c := *s
	return &c, nil
}

func (p *fakeProcessor) GetSession(ctx context.Context, id string) (*models.PaymentSession, error) {
	if p.getDelay > 0 {
		select {
		case <-time.After(p.getDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getErr != nil {
		return nil, p.getErr
	}
	s, ok := p.sessions[id]
	if !ok {
		return nil, payment.ErrSessionNotFound
	}
	c := *s
	return &c, nil
}

func (p *fakeProcessor) ExpireSession(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[id]
	if !ok {
		return payment.ErrSessionNotFound
	}
	if s.Status == models.PaymentPaid {
		return payment.ErrSessionCompleted
	}
	s.Status = models.PaymentFailed
	p.expired = append(p.expired, id)
	return nil
}

func (p *fakeProcessor) pay(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[id].Status = models.PaymentPaid
}

func (p *fakeProcessor) lastRequest() payment.SessionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

// flakyOrders injects failures into an order store.
type flakyOrders struct {
	orders.Store
	createErr     error
	transitionErr error
}

func (f *flakyOrders) Create(ctx context.Context, o *models.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.Store.Create(ctx, o)
}

func (f *flakyOrders) Transition(ctx context.Context, id uuid.UUID, to models.OrderStatus) (bool, error) {
	if f.transitionErr != nil {
		return false, f.transitionErr
	}
	return f.Store.Transition(ctx, id, to)
}

type recordingNotifier struct {
	mu     sync.Mutex
	paid   []string
	alerts []notify.StockAlert
}

func (r *recordingNotifier) OrderPaid(_ context.Context, order *models.Order, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paid = append(r.paid, order.ID.String()+" "+email)
	return nil
}

func (r *recordingNotifier) StockAlert(_ context.Context, alert notify.StockAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Type
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type passthroughImages struct{}

func (passthroughImages) Resolve(_ context.Context, ref string) (string, error) {
	return ref, nil
}
