package routes

import (
	"github.com/gin-gonic/gin"

	"storefront_back_end/internal/auth"
	"storefront_back_end/internal/handlers"
	"storefront_back_end/internal/middleware"
)

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Auth     auth.Resolver
	Checkout *handlers.CheckoutHandler
	Webhook  *handlers.WebhookHandler
	Cart     *handlers.CartHandler
	Orders   *handlers.OrdersHandler
	Stock    *handlers.StockHandler
	Health   gin.HandlerFunc
	// CheckoutLimit guards checkout creation. Nil disables it.
	CheckoutLimit gin.HandlerFunc
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.Use(middleware.CORS())

	if h.Health != nil {
		r.GET("/healthz", h.Health)
	}

	limit := h.CheckoutLimit
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}

	// Storefront contract: identity comes from the bearer token inside the
	// service, failures are reported as 400.
	functions := r.Group("/functions/v1")
	{
		functions.POST("/create-checkout-session", limit, h.Checkout.CreateCheckoutSession)
		functions.POST("/verify-stripe-session", h.Checkout.VerifyStripeSession)
	}

	r.POST("/api/stripe/webhook", h.Webhook.StripeWebhook)
	r.POST("/api/checkout/finalize", h.Checkout.Finalize)

	api := r.Group("/api", middleware.AuthRequired(h.Auth))
	{
		api.POST("/checkout/cancel", h.Checkout.Cancel)

		api.GET("/cart", h.Cart.GetCart)
		api.POST("/cart/items", h.Cart.AddItem)
		api.PATCH("/cart/items/:productId", h.Cart.UpdateItem)
		api.DELETE("/cart/items/:productId", h.Cart.RemoveItem)
		api.DELETE("/cart", h.Cart.ClearCart)

		api.GET("/orders", h.Orders.ListMine)
		api.GET("/orders/:id", h.Orders.Get)

		admin := api.Group("/admin")
		admin.GET("/stock/:productId", middleware.RequireCapability(auth.CapInventoryView), h.Stock.Get)
		admin.PUT("/stock/:productId", middleware.RequireCapability(auth.CapInventoryEdit), h.Stock.Set)
	}
}
