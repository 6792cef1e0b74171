package services

import "strings"

// AccessPolicy decides whether an identity may use the bot. An empty
// allow-list admits everyone. The set is fixed at construction.
type AccessPolicy struct {
	allowed map[string]struct{}
}

// NewAccessPolicy builds a policy from ids. Blank entries are ignored.
func NewAccessPolicy(ids []string) *AccessPolicy {
	p := &AccessPolicy{allowed: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			p.allowed[id] = struct{}{}
		}
	}
	return p
}

// Allowed reports whether identity is permitted.
func (p *AccessPolicy) Allowed(identity string) bool {
	if p == nil || len(p.allowed) == 0 {
		return true
	}
	_, ok := p.allowed[identity]
	return ok
}
