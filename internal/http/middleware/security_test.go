package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func secRouter(opt SecurityOptions) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), SecurityHeaders(opt))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/page", ContentSecurityPolicy(StatusPagePolicy), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	w := do(secRouter(SecurityOptions{}), httptest.NewRequest(http.MethodGet, "/x", nil))
	h := w.Header()
	if h.Get("X-Content-Type-Options") != "nosniff" || h.Get("X-Frame-Options") != "DENY" || h.Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("baseline headers missing: %v", h)
	}
	if h.Get("Cache-Control") != "" || h.Get("Permissions-Policy") != "" || h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("optional headers set without opt-in: %v", h)
	}
	if !strings.Contains(h.Get("Access-Control-Expose-Headers"), requestIDHeader) {
		t.Fatalf("request id not exposed: %v", h)
	}
	if h.Get("Content-Security-Policy") != "" {
		t.Fatal("CSP must only be set on HTML routes")
	}
}

func TestSecurityHeaders_Optional(t *testing.T) {
	r := secRouter(SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour, NoStore: true, EnablePolicy: true})

	plain := do(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Header()
	if plain.Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be sent over plain HTTP")
	}
	if plain.Get("Cache-Control") != "no-store" || plain.Get("Permissions-Policy") == "" {
		t.Fatalf("opt-in headers missing: %v", plain)
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.TLS = &tls.ConnectionState{}
	if got := do(r, req).Header().Get("Strict-Transport-Security"); got != "max-age=3600; includeSubDomains; preload" {
		t.Fatalf("HSTS = %q", got)
	}

	proxied := httptest.NewRequest(http.MethodGet, "/x", nil)
	proxied.Header.Set("X-Forwarded-Proto", "HTTPS")
	if do(r, proxied).Header().Get("Strict-Transport-Security") == "" {
		t.Fatal("HSTS expected behind TLS-terminating proxy")
	}
}

func TestContentSecurityPolicy(t *testing.T) {
	w := do(secRouter(SecurityOptions{}), httptest.NewRequest(http.MethodGet, "/page", nil))
	if w.Header().Get("Content-Security-Policy") != StatusPagePolicy {
		t.Fatalf("CSP = %q", w.Header().Get("Content-Security-Policy"))
	}
}
