package memory

import (
	"context"
	"sync"

	domainchat "rentline/internal/domain/chat"
)

// ListingDirectory is an in-memory listing lookup for tests and demo mode.
type ListingDirectory struct {
	mu     sync.RWMutex
	owners map[domainchat.ListingID]domainchat.UserID
}

// NewListingDirectory builds an empty directory.
func NewListingDirectory() *ListingDirectory {
	return &ListingDirectory{owners: make(map[domainchat.ListingID]domainchat.UserID)}
}

// AddListing registers a listing with its owner.
func (d *ListingDirectory) AddListing(listing domainchat.ListingID, owner domainchat.UserID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.owners[listing] = owner
}

func (d *ListingDirectory) OwnerOf(ctx context.Context, listing domainchat.ListingID) (domainchat.UserID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	owner, ok := d.owners[listing]
	if !ok {
		return "", domainchat.ErrListingNotFound
	}
	return owner, nil
}
