package chat

import (
	"context"

	domainchat "rentline/internal/domain/chat"
)

// Principal is a validated caller identity.
type Principal struct {
	ID         domainchat.UserID
	Privileged bool
}

// IdentityGate resolves credentials and answers the single question the core
// is allowed to ask about a user: whether it is the privileged support
// identity. The core never inspects emails or other user attributes.
type IdentityGate interface {
	// ResolveToken maps a bearer credential to a principal or returns
	// domainchat.ErrUnauthenticated.
	ResolveToken(ctx context.Context, token string) (Principal, error)
	IsPrivileged(ctx context.Context, user domainchat.UserID) (bool, error)
}

// ListingDirectory is the read-only view of the listing subsystem the core
// depends on.
type ListingDirectory interface {
	// OwnerOf returns domainchat.ErrListingNotFound for an unknown listing.
	OwnerOf(ctx context.Context, listing domainchat.ListingID) (domainchat.UserID, error)
}
