package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"storefront_back_end/internal/auth"
)

// RateLimit counts requests per caller in fixed windows stored in Redis
// under <prefix>:<caller>. The caller is the token's user when one
// resolves, the client IP otherwise. Redis errors let the request through.
type RateLimit struct {
	client   redis.UniversalClient
	resolver auth.Resolver
	prefix   string
	max      int64
	window   time.Duration
}

func NewRateLimit(client redis.UniversalClient, resolver auth.Resolver, prefix string, max int64, window time.Duration) *RateLimit {
	return &RateLimit{client: client, resolver: resolver, prefix: prefix, max: max, window: window}
}

func (r *RateLimit) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.max <= 0 {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := r.prefix + ":" + r.caller(ctx, c)

		count, err := r.client.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("⚠️ Rate limit unavailable: %v", err)
			c.Next()
			return
		}
		if count == 1 {
			r.client.Expire(ctx, key, r.window)
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", r.max))
		if count > r.max {
			ttl := r.client.TTL(ctx, key).Val()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("too many requests, retry in %d seconds", int(ttl.Seconds())),
				"retry_after": int(ttl.Seconds()),
			})
			return
		}
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", r.max-count))
		c.Next()
	}
}

func (r *RateLimit) caller(ctx context.Context, c *gin.Context) string {
	if identity, ok := IdentityFrom(c); ok {
		return "user:" + identity.UserID
	}
	if r.resolver != nil {
		if token := auth.BearerToken(c.GetHeader("Authorization")); token != "" {
			if identity, err := r.resolver.Resolve(ctx, token); err == nil {
				return "user:" + identity.UserID
			}
		}
	}
	return "ip:" + c.ClientIP()
}
