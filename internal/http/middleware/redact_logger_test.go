package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedact(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"id 3f2b8c1e-7d4a-4c9b-8e2f-1a2b3c4d5e6f done", "id [REDACTED:id] done"},
		{"mail bob@example.com", "mail [REDACTED:email]"},
		{"call 415 555 1234", "call [REDACTED:phone]"},
		{"bot 123456789:AAEabcdefghijklmnopqrstuvwxyz0123456", "bot [REDACTED:token]"},
	}
	for _, tc := range cases {
		if got := Redact(tc.in); got != tc.want {
			t.Errorf("Redact(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactingLogger_MasksSecretsAndLevels(t *testing.T) {
	buf := captureLogger(t)
	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/answer/:id", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("inside")
		c.Status(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/answer/3f2b8c1e-7d4a-4c9b-8e2f-1a2b3c4d5e6f?who=bob@example.com", nil)
	req.Header.Set(HeaderCallbackToken, "s3cret")
	req.Header.Set("Authorization", "Bearer abc")
	req.Header.Set("X-Api-Key", "k")
	req.Header.Set(requestIDHeader, "rid-7")
	do(r, req)

	out := buf.String()
	for _, leak := range []string{"s3cret", "Bearer abc", "bob@example.com", "3f2b8c1e"} {
		if strings.Contains(out, leak) {
			t.Fatalf("log leaked %q: %s", leak, out)
		}
	}

	lines := logLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("want 2 log lines, got %d: %s", len(lines), out)
	}
	if lines[0]["request_id"] != "rid-7" || lines[0]["path"] != "/answer/:id" {
		t.Fatalf("scoped logger fields missing: %v", lines[0])
	}
	access := lines[1]
	if access["level"] != "warn" || access["message"] != "http_request" {
		t.Fatalf("access line = %v", access)
	}
	if st, _ := access["status"].(float64); st != http.StatusNotFound {
		t.Fatalf("status field = %v", access["status"])
	}
}

func TestRedactingLogger_ErrorLevelFor5xx(t *testing.T) {
	buf := captureLogger(t)
	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	do(r, httptest.NewRequest(http.MethodGet, "/fail", nil))

	lines := logLines(t, buf)
	if len(lines) != 1 || lines[0]["level"] != "error" {
		t.Fatalf("lines = %v", lines)
	}
}
