package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront_back_end/internal/apperr"
)

// fail writes err with the status matching its kind.
func fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("❌ %s %s: %s", c.Request.Method, c.FullPath(), apperr.Describe(err))
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": apperr.KindOf(err)})
}
