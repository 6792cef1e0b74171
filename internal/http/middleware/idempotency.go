package middleware

import (
	"context"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey lets callers retry a callback without re-delivering
// the answer.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key stored by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the key was already seen for a successful
// response on this route.
func IsReplay(c *gin.Context) bool {
	return flag(c, ctxKeyIdemReplay)
}

// IsRateBypass reports whether rate limiting should skip this request.
func IsRateBypass(c *gin.Context) bool {
	return flag(c, ctxKeyRateBypass)
}

// IdempotencyStore remembers keys of successfully completed requests.
// scope is the matched route, so the same key on two routes never collides.
type IdempotencyStore interface {
	Seen(ctx context.Context, scope, key string, now time.Time) (bool, error)
	Remember(ctx context.Context, scope, key string, now time.Time) error
}

// IdempotencyOptions configures header validation.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; nil means ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// IdempotencyValidator validates the Idempotency-Key header and consults
// store. Requests without the header pass through untouched; malformed keys
// get 400 {"error":"bad_idempotency_key"}. A known key marks the request as
// a replay and bypasses rate limiting. After the handler runs, keys of 2xx
// non-replay responses are remembered. Store failures never block a request.
func IdempotencyValidator(opts IdempotencyOptions, store IdempotencyStore) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"error":      "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if store == nil {
			c.Next()
			return
		}

		scope := c.FullPath()
		ctx := c.Request.Context()
		seen, err := store.Seen(ctx, scope, key, time.Now().UTC())
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
		}
		if seen {
			c.Set(ctxKeyIdemReplay, true)
			c.Set(ctxKeyRateBypass, true)
		}

		c.Next()

		status := c.Writer.Status()
		if seen || status < 200 || status > 299 {
			return
		}
		if err := store.Remember(ctx, scope, key, time.Now().UTC()); err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("idempotency remember failed")
		}
	}
}

// MemoryIdempotency is a process-local IdempotencyStore whose entries expire
// after TTL. Expired entries are dropped lazily on write.
type MemoryIdempotency struct {
	TTL time.Duration

	mu     sync.Mutex
	seenAt map[string]time.Time
}

// NewMemoryIdempotency returns a store remembering keys for ttl; ttl <= 0
// means 24h.
func NewMemoryIdempotency(ttl time.Duration) *MemoryIdempotency {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryIdempotency{TTL: ttl, seenAt: make(map[string]time.Time)}
}

// Seen reports whether key was remembered for scope within TTL of now.
func (m *MemoryIdempotency) Seen(_ context.Context, scope, key string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.seenAt[scope+"\x00"+key]
	return ok && now.Sub(at) < m.TTL, nil
}

// Remember records key for scope at now.
func (m *MemoryIdempotency) Remember(_ context.Context, scope, key string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seenAt == nil {
		m.seenAt = make(map[string]time.Time)
	}
	for k, at := range m.seenAt {
		if now.Sub(at) >= m.TTL {
			delete(m.seenAt, k)
		}
	}
	m.seenAt[scope+"\x00"+key] = now
	return nil
}

func flag(c *gin.Context, key string) bool {
	v, ok := c.Get(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
