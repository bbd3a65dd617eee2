package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/auth"
	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/checkout"
	"storefront_back_end/internal/handlers"
	"storefront_back_end/internal/middleware"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/orders"
	"storefront_back_end/internal/payment"
	"storefront_back_end/internal/routes"
	"storefront_back_end/internal/stock"
)

const (
	jwtSecret     = "handlers-test-secret"
	webhookSecret = "whsec_test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type processor struct {
	mu       sync.Mutex
	sessions map[string]*models.PaymentSession
	seq      int
}

func (p *processor) CreateSession(_ context.Context, req payment.SessionRequest) (*models.PaymentSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
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
	return s, nil
}

func (p *processor) GetSession(_ context.Context, id string) (*models.PaymentSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[id]
	if !ok {
		return nil, payment.ErrSessionNotFound
	}
	c := *s
	return &c, nil
}

func (p *processor) ExpireSession(_ context.Context, id string) error {
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
	return nil
}

func (p *processor) pay(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[id].Status = models.PaymentPaid
}

type noImages struct{}

func (noImages) Resolve(_ context.Context, ref string) (string, error) { return ref, nil }

type env struct {
	router *gin.Engine
	mr     *miniredis.Miniredis
	svc    *checkout.Service
	proc   *processor
	orders *orders.MemoryStore
	ledger stock.Ledger
	carts  cart.Store
	issuer *auth.Issuer
}

type envOptions struct {
	webhookSecret string
	settler       handlers.SessionSettler
}

func newEnv(t *testing.T, opts ...func(*envOptions)) *env {
	t.Helper()
	var o envOptions
	for _, fn := range opts {
		fn(&o)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ledger := stock.NewRedisLedger(client)
	require.NoError(t, ledger.Set(context.Background(), "p1", 10))
	require.NoError(t, ledger.Set(context.Background(), "p2", 5))

	products := catalog.NewStatic(
		models.Product{ID: "p1", Name: "Mug", Price: decimal.NewFromInt(10), IsActive: true},
		models.Product{ID: "p2", Name: "Tee", Price: decimal.RequireFromString("19.99"), IsActive: true},
		models.Product{ID: "p3", Name: "Retired", Price: decimal.NewFromInt(5)},
	)

	e := &env{
		mr:     mr,
		proc:   &processor{sessions: make(map[string]*models.PaymentSession)},
		orders: orders.NewMemoryStore(),
		ledger: ledger,
		carts:  cart.NewRedisStore(client),
		issuer: auth.NewIssuer(jwtSecret, time.Hour),
	}
	verifier := auth.NewVerifier(jwtSecret)
	e.svc = checkout.NewService(checkout.Deps{
		Identities: verifier,
		Catalog:    products,
		Orders:     e.orders,
		Ledger:     ledger,
		Processor:  e.proc,
		Carts:      e.carts,
		Images:     noImages{},
	}, checkout.Config{SiteURL: "https://shop.example.test", VerifyTimeout: time.Second})
	t.Cleanup(e.svc.Wait)

	var settler handlers.SessionSettler = e.svc.Finalizer
	if o.settler != nil {
		settler = o.settler
	}

	e.router = gin.New()
	routes.RegisterRoutes(e.router, routes.Handlers{
		Auth:          verifier,
		Checkout:      handlers.NewCheckoutHandler(e.svc),
		Webhook:       handlers.NewWebhookHandler(settler, o.webhookSecret),
		Cart:          handlers.NewCartHandler(e.carts, products),
		Orders:        handlers.NewOrdersHandler(e.orders),
		Stock:         handlers.NewStockHandler(ledger),
		Health:        handlers.Health(map[string]handlers.Pinger{"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() }}),
		CheckoutLimit: middleware.NewRateLimit(client, verifier, "ratelimit:checkout", 5, time.Minute).Handler(),
	})
	return e
}

func (e *env) token(t *testing.T, id auth.Identity) string {
	t.Helper()
	if id.Email == "" {
		id.Email = id.UserID + "@example.com"
	}
	tok, err := e.issuer.Issue(id)
	require.NoError(t, err)
	return tok
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		case []byte:
			buf.Write(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (e *env) stockOf(t *testing.T, productID string) int64 {
	t.Helper()
	lvl, err := e.ledger.Level(context.Background(), productID)
	require.NoError(t, err)
	return lvl.Quantity
}

// startCheckout opens a checkout for user and returns its session and order ids.
func (e *env) startCheckout(t *testing.T, token string, items ...map[string]any) (string, string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/functions/v1/create-checkout-session", token, map[string]any{"cartItems": items})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	orderID := body["orderId"].(string)
	sessionURL := body["sessionUrl"].(string)
	return sessionURL[len("https://pay.example.test/"):], orderID
}

func mug(qty int) map[string]any {
	return map[string]any{"id": "p1", "name": "Mug", "price": 10, "quantity": qty, "images": []string{}}
}
