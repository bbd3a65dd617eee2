package handlers_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/auth"
)

func TestOrderRoutes(t *testing.T) {
	e := newEnv(t)
	alice := e.token(t, auth.Identity{UserID: "alice"})
	bob := e.token(t, auth.Identity{UserID: "bob"})
	staff := e.token(t, auth.Identity{UserID: "agent", Role: "customer_service"})

	_, first := e.startCheckout(t, alice, mug(1))
	_, second := e.startCheckout(t, alice, mug(2))

	w := e.do(t, http.MethodGet, "/api/orders", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2), body["count"])
	ids := []string{}
	for _, o := range body["orders"].([]any) {
		ids = append(ids, o.(map[string]any)["id"].(string))
	}
	assert.ElementsMatch(t, []string{first, second}, ids)

	w = e.do(t, http.MethodGet, "/api/orders", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["count"])

	w = e.do(t, http.MethodGet, "/api/orders/"+first, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", decode(t, w)["status"])

	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/orders/"+first, bob, nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/orders/"+first, staff, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/orders/"+uuid.NewString(), alice, nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/orders/not-a-uuid", alice, nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/orders?limit=0", alice, nil).Code)
}
