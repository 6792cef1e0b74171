package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireToken rejects requests whose X-Callback-Token header does not match
// token with 401 {"error":"unauthorized"}. An empty token disables the check.
func RequireToken(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		if len(want) == 0 {
			c.Next()
			return
		}
		got := []byte(c.GetHeader(HeaderCallbackToken))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": RequestIDFrom(c),
				"error":      "unauthorized",
				"message":    "missing or invalid callback token",
			})
			return
		}
		c.Next()
	}
}
