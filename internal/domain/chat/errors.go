package chat

import "errors"

var (
	// ErrUnauthenticated means no valid caller identity was presented.
	ErrUnauthenticated = errors.New("chat: unauthenticated")
	// ErrNotFound covers both an absent conversation and a caller who is not
	// a participant, so lookups never confirm existence to outsiders.
	ErrNotFound = errors.New("chat: conversation not found")
	// ErrConversationExists signals a unique-triple violation on insert.
	ErrConversationExists = errors.New("chat: conversation already exists")
	ErrIDRequired         = errors.New("chat: id is required")
	ErrInvalidMessage     = errors.New("chat: message text must be between 1 and 2000 characters")
	ErrSelfConversation   = errors.New("chat: cannot start a conversation with yourself")
	ErrPrivilegedParty    = errors.New("chat: the support account cannot take part in conversations")
	ErrOwnListing         = errors.New("chat: cannot start a conversation about your own listing")
	ErrListingNotFound    = errors.New("chat: listing not found")
)
