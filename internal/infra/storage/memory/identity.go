package memory

import (
	"context"
	"sync"

	appchat "rentline/internal/app/services/chat"
	domainchat "rentline/internal/domain/chat"
)

// IdentityGate is an in-memory identity resolver for tests and demo mode.
type IdentityGate struct {
	mu         sync.RWMutex
	tokens     map[string]domainchat.UserID
	privileged map[domainchat.UserID]bool
}

// NewIdentityGate builds an empty gate.
func NewIdentityGate() *IdentityGate {
	return &IdentityGate{
		tokens:     make(map[string]domainchat.UserID),
		privileged: make(map[domainchat.UserID]bool),
	}
}

// AddSession maps a bearer token to a user.
func (g *IdentityGate) AddSession(token string, user domainchat.UserID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens[token] = user
}

// SetPrivileged flags a user as the support identity.
func (g *IdentityGate) SetPrivileged(user domainchat.UserID, privileged bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.privileged[user] = privileged
}

func (g *IdentityGate) ResolveToken(ctx context.Context, token string) (appchat.Principal, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	user, ok := g.tokens[token]
	if !ok {
		return appchat.Principal{}, domainchat.ErrUnauthenticated
	}
	return appchat.Principal{ID: user, Privileged: g.privileged[user]}, nil
}

func (g *IdentityGate) IsPrivileged(ctx context.Context, user domainchat.UserID) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.privileged[user], nil
}
