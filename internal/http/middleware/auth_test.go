package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func tokenRouter(token string) *gin.Engine {
	r := gin.New()
	r.POST("/cb", RequireToken(token), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRequireToken(t *testing.T) {
	cases := []struct {
		name, configured, sent string
		want                   int
	}{
		{"disabled", "", "", http.StatusOK},
		{"disabled ignores header", "", "anything", http.StatusOK},
		{"missing", "s3cret", "", http.StatusUnauthorized},
		{"wrong", "s3cret", "nope", http.StatusUnauthorized},
		{"match", "s3cret", "s3cret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/cb", nil)
			if tc.sent != "" {
				req.Header.Set(HeaderCallbackToken, tc.sent)
			}
			w := do(tokenRouter(tc.configured), req)
			if w.Code != tc.want {
				t.Fatalf("status = %d; want %d", w.Code, tc.want)
			}
			if tc.want == http.StatusUnauthorized && decode(t, w)["error"] != "unauthorized" {
				t.Fatalf("body = %s", w.Body.String())
			}
		})
	}
}
