package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront_back_end/internal/apperr"
	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/middleware"
	"storefront_back_end/internal/models"
)

// CartHandler serves the shopper's cart. Lines always carry catalog
// names and prices, never the client's.
type CartHandler struct {
	carts   cart.Store
	catalog catalog.Catalog
}

func NewCartHandler(carts cart.Store, products catalog.Catalog) *CartHandler {
	return &CartHandler{carts: carts, catalog: products}
}

type cartView struct {
	Items []models.CartLine `json:"items"`
	Count int               `json:"count"`
	Total decimal.Decimal   `json:"total"`
}

func viewOf(c *cart.Cart) cartView {
	return cartView{Items: c.Snapshot(), Count: c.Count(), Total: c.Total()}
}

// GET /api/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, current, ok := h.load(c)
	if !ok {
		return
	}
	log.Printf("🛒 Cart of %s: %d item(s)", userID, current.Count())
	c.JSON(http.StatusOK, viewOf(current))
}

type addItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// POST /api/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("product_id is required"))
		return
	}

	found, err := h.catalog.Lookup(c.Request.Context(), []string{req.ProductID})
	if err != nil {
		fail(c, apperr.Upstream(err, "catalog unavailable"))
		return
	}
	product, exists := found[req.ProductID]
	if !exists || !product.IsActive {
		fail(c, apperr.Validation("product %s is not available", req.ProductID))
		return
	}

	userID, current, ok := h.load(c)
	if !ok {
		return
	}
	current.Add(models.CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  req.Quantity,
		ImageRef:  product.ImageRef(),
	})
	h.save(c, userID, current)
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// PATCH /api/cart/items/:productId
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("quantity is required"))
		return
	}

	userID, current, ok := h.load(c)
	if !ok {
		return
	}
	productID := c.Param("productId")
	if err := current.UpdateQuantity(productID, *req.Quantity); err != nil {
		if errors.Is(err, cart.ErrLineNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not in cart"})
			return
		}
		fail(c, err)
		return
	}
	h.save(c, userID, current)
}

// DELETE /api/cart/items/:productId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, current, ok := h.load(c)
	if !ok {
		return
	}
	current.Remove(c.Param("productId"))
	h.save(c, userID, current)
}

// DELETE /api/cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	if err := h.carts.Clear(c.Request.Context(), identity.UserID); err != nil {
		fail(c, apperr.Persistence(err, "could not clear cart"))
		return
	}
	log.Printf("🧹 Cart cleared for %s", identity.UserID)
	c.JSON(http.StatusOK, viewOf(&cart.Cart{}))
}

func (h *CartHandler) load(c *gin.Context) (string, *cart.Cart, bool) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return "", nil, false
	}
	current, err := h.carts.Load(c.Request.Context(), identity.UserID)
	if err != nil {
		fail(c, apperr.Persistence(err, "could not read cart"))
		return "", nil, false
	}
	return identity.UserID, current, true
}

func (h *CartHandler) save(c *gin.Context, userID string, current *cart.Cart) {
	if err := h.carts.Save(c.Request.Context(), userID, current); err != nil {
		fail(c, apperr.Persistence(err, "could not save cart"))
		return
	}
	c.JSON(http.StatusOK, viewOf(current))
}
