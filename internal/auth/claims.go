package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Capability is a permission carried by a token.
type Capability string

const (
	CapOrdersView    Capability = "orders.view"
	CapOrdersEdit    Capability = "orders.edit"
	CapInventoryView Capability = "inventory.view"
	CapInventoryEdit Capability = "inventory.edit"
)

// roleCapabilities grants capabilities by role name. Roles not listed here
// (plain customers) carry only what the token itself lists.
var roleCapabilities = map[string][]Capability{
	"admin":             {CapOrdersView, CapOrdersEdit, CapInventoryView, CapInventoryEdit},
	"inventory_manager": {CapInventoryView, CapInventoryEdit},
	"customer_service":  {CapOrdersView, CapOrdersEdit, CapInventoryView},
}

// Identity is an authenticated caller.
type Identity struct {
	UserID       string       `json:"user_id"`
	Email        string       `json:"email"`
	Role         string       `json:"role,omitempty"`
	Capabilities []Capability `json:"capabilities,omitempty"`
}

// Can reports whether the identity holds c, directly or through its role.
func (i Identity) Can(c Capability) bool {
	if slices.Contains(i.Capabilities, c) {
		return true
	}
	return slices.Contains(roleCapabilities[i.Role], c)
}

// Claims is the JWT payload issued to shoppers and staff.
type Claims struct {
	UserID       string       `json:"user_id"`
	Email        string       `json:"email"`
	Role         string       `json:"role,omitempty"`
	Capabilities []Capability `json:"capabilities,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{
		UserID:       c.UserID,
		Email:        c.Email,
		Role:         c.Role,
		Capabilities: c.Capabilities,
	}
}
