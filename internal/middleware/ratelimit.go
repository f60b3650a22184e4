package middleware

import (
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"recovery_hub/internal/ratelimit"
)

// RateLimit 以固定時間窗限制每個 client IP 的請求數，超過時回傳 429。
// 計數儲存失敗時放行請求
func RateLimit(limiter *ratelimit.Limiter, name string, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := ClientIP(c.Request)
		result, err := limiter.Allow(c.Request.Context(), name, ip, max, window)
		if err != nil {
			log.Printf("[ratelimit] %s store error for %s: %v", name, ip, err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		remaining := result.Limit - result.Count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(result.RetryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "Too many requests. Please try again shortly.",
				"retryAfter": result.RetryAfter,
			})
			return
		}
		c.Next()
	}
}

// ClientIP 優先使用 X-Forwarded-For 的第一個位址，否則使用連線的遠端位址
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}

	if r.RemoteAddr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
