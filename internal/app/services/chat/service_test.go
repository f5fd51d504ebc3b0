package chat_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appchat "rentline/internal/app/services/chat"
	domainchat "rentline/internal/domain/chat"
	"rentline/internal/infra/storage/memory"
)

type fixture struct {
	svc      *appchat.Service
	identity *memory.IdentityGate
	listings *memory.ListingDirectory
}

// newFixture wires the service against the in-memory stores with a strictly
// increasing clock, so activity ordering is deterministic.
func newFixture() fixture {
	identity := memory.NewIdentityGate()
	listings := memory.NewListingDirectory()
	listings.AddListing("listing-42", "host")
	identity.SetPrivileged("support", true)

	var ticks int64
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := &appchat.Service{
		Conversations: memory.NewConversationStore(),
		Messages:      memory.NewMessageStore(),
		Identity:      identity,
		Listings:      listings,
		Now: func() time.Time {
			return base.Add(time.Duration(atomic.AddInt64(&ticks, 1)) * time.Millisecond)
		},
	}
	return fixture{svc: svc, identity: identity, listings: listings}
}

func TestGetOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates then reuses regardless of call order", func(t *testing.T) {
		f := newFixture()
		conv, isNew, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "")
		require.NoError(t, err)
		assert.True(t, isNew)

		again, isNew2, err := f.svc.GetOrCreate(ctx, "host", "guest", "listing-42", "hello again")
		require.NoError(t, err)
		assert.False(t, isNew2)
		assert.Equal(t, conv.ID, again.ID)

		// Repeat calls never append another opening message.
		count, err := f.svc.Messages.Count(ctx, conv.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})

	t.Run("appends default greeting from the caller", func(t *testing.T) {
		f := newFixture()
		conv, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "")
		require.NoError(t, err)
		last, err := f.svc.Messages.Last(ctx, conv.ID)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, appchat.DefaultGreeting, last.Text)
		assert.Equal(t, domainchat.UserID("guest"), last.SenderID)
		assert.False(t, last.Read)
	})

	t.Run("uses provided opening text", func(t *testing.T) {
		f := newFixture()
		conv, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "  is the garden shared?  ")
		require.NoError(t, err)
		last, err := f.svc.Messages.Last(ctx, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, "is the garden shared?", last.Text)
	})

	t.Run("rejects self conversation", func(t *testing.T) {
		f := newFixture()
		_, _, err := f.svc.GetOrCreate(ctx, "guest", "guest", "listing-42", "")
		assert.ErrorIs(t, err, domainchat.ErrSelfConversation)
	})

	t.Run("rejects support as counterpart", func(t *testing.T) {
		f := newFixture()
		_, _, err := f.svc.GetOrCreate(ctx, "guest", "support", "listing-42", "")
		assert.ErrorIs(t, err, domainchat.ErrPrivilegedParty)
	})

	t.Run("rejects support as caller", func(t *testing.T) {
		f := newFixture()
		_, _, err := f.svc.GetOrCreate(ctx, "support", "guest", "listing-42", "")
		assert.ErrorIs(t, err, domainchat.ErrPrivilegedParty)
	})

	t.Run("rejects contacting about own listing", func(t *testing.T) {
		f := newFixture()
		_, _, err := f.svc.GetOrCreate(ctx, "host", "guest", "listing-42", "")
		assert.ErrorIs(t, err, domainchat.ErrOwnListing)
	})

	t.Run("rejects unknown listing", func(t *testing.T) {
		f := newFixture()
		_, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-404", "")
		assert.ErrorIs(t, err, domainchat.ErrListingNotFound)
	})

	t.Run("rejects oversized opening text before creating anything", func(t *testing.T) {
		f := newFixture()
		long := make([]byte, domainchat.MaxTextLength+1)
		for i := range long {
			long[i] = 'x'
		}
		_, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", string(long))
		assert.ErrorIs(t, err, domainchat.ErrInvalidMessage)
		convs, err := f.svc.Conversations.ByParticipant(ctx, "guest")
		require.NoError(t, err)
		assert.Empty(t, convs)
	})

	t.Run("concurrent callers observe one conversation", func(t *testing.T) {
		f := newFixture()
		const callers = 16
		var wg sync.WaitGroup
		ids := make([]domainchat.ConversationID, callers)
		created := make([]bool, callers)
		errs := make([]error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				conv, isNew, err := f.svc.GetOrCreate(context.Background(), "guest", "host", "listing-42", "")
				if err != nil {
					errs[i] = err
					return
				}
				ids[i] = conv.ID
				created[i] = isNew
			}(i)
		}
		wg.Wait()

		var winners int
		for i := 0; i < callers; i++ {
			require.NoError(t, errs[i])
			if created[i] {
				winners++
			}
			assert.Equal(t, ids[0], ids[i])
		}
		assert.Equal(t, 1, winners)

		convs, err := f.svc.Conversations.ByParticipant(ctx, "guest")
		require.NoError(t, err)
		assert.Len(t, convs, 1)
		count, err := f.svc.Messages.Count(ctx, ids[0])
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})

	t.Run("distinct listings produce distinct conversations", func(t *testing.T) {
		f := newFixture()
		f.listings.AddListing("listing-43", "host")
		a, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "")
		require.NoError(t, err)
		b, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-43", "")
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("appends for participants", func(t *testing.T) {
		f := newFixture()
		conv, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "")
		require.NoError(t, err)

		msg, err := f.svc.Send(ctx, "host", conv.ID, "sure, come by tomorrow")
		require.NoError(t, err)
		assert.NotEmpty(t, msg.ID)
		assert.False(t, msg.CreatedAt.IsZero())
		assert.False(t, msg.Read)

		count, err := f.svc.Messages.Count(ctx, conv.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)
	})

	t.Run("rejects non participants with not found", func(t *testing.T) {
		f := newFixture()
		conv, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "")
		require.NoError(t, err)
		_, err = f.svc.Send(ctx, "stranger", conv.ID, "let me in")
		assert.ErrorIs(t, err, domainchat.ErrNotFound)
	})

	t.Run("rejects invalid text", func(t *testing.T) {
		f := newFixture()
		conv, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "")
		require.NoError(t, err)
		_, err = f.svc.Send(ctx, "guest", conv.ID, "   ")
		assert.ErrorIs(t, err, domainchat.ErrInvalidMessage)
	})

	t.Run("re-checks the support exclusion", func(t *testing.T) {
		f := newFixture()
		conv, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "")
		require.NoError(t, err)
		// The guest gained the support role after the conversation existed;
		// further sends are refused.
		f.identity.SetPrivileged("guest", true)
		_, err = f.svc.Send(ctx, "guest", conv.ID, "hello")
		assert.ErrorIs(t, err, domainchat.ErrPrivilegedParty)
	})

	t.Run("rejects unknown conversation", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Send(ctx, "guest", "no-such-conversation", "hello")
		assert.ErrorIs(t, err, domainchat.ErrNotFound)
	})
}

func TestPage(t *testing.T) {
	ctx := context.Background()

	t.Run("iterating pages yields the full history once in order", func(t *testing.T) {
		f := newFixture()
		conv, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "")
		require.NoError(t, err)
		const extra = 24
		for i := 0; i < extra; i++ {
			_, err := f.svc.Send(ctx, "guest", conv.ID, fmt.Sprintf("message %d", i))
			require.NoError(t, err)
		}

		seen := make(map[domainchat.MessageID]bool)
		var collected []domainchat.Message
		skip, take := 0, 7
		for {
			page, err := f.svc.Page(ctx, "guest", conv.ID, skip, take)
			require.NoError(t, err)
			for _, msg := range page.Items {
				assert.False(t, seen[msg.ID], "duplicate message in pagination")
				seen[msg.ID] = true
				collected = append(collected, msg)
			}
			if !page.HasMore {
				break
			}
			skip += take
		}
		require.Len(t, collected, extra+1)
		for i := 1; i < len(collected); i++ {
			assert.True(t, collected[i].CreatedAt.After(collected[i-1].CreatedAt))
		}
	})

	t.Run("same page twice returns identical results", func(t *testing.T) {
		f := newFixture()
		conv, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "")
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			_, err := f.svc.Send(ctx, "host", conv.ID, fmt.Sprintf("m%d", i))
			require.NoError(t, err)
		}
		first, err := f.svc.Page(ctx, "guest", conv.ID, 2, 2)
		require.NoError(t, err)
		second, err := f.svc.Page(ctx, "guest", conv.ID, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("has more arithmetic", func(t *testing.T) {
		f := newFixture()
		conv, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "")
		require.NoError(t, err)
		for i := 0; i < 9; i++ {
			_, err := f.svc.Send(ctx, "host", conv.ID, "x")
			require.NoError(t, err)
		}
		// 10 messages total including the greeting.
		page, err := f.svc.Page(ctx, "guest", conv.ID, 0, 10)
		require.NoError(t, err)
		assert.False(t, page.HasMore)
		assert.EqualValues(t, 10, page.Total)
		assert.Len(t, page.Items, 10)

		page, err = f.svc.Page(ctx, "guest", conv.ID, 0, 9)
		require.NoError(t, err)
		assert.True(t, page.HasMore)

		page, err = f.svc.Page(ctx, "guest", conv.ID, 20, 5)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.False(t, page.HasMore)
	})

	t.Run("outsider gets not found", func(t *testing.T) {
		f := newFixture()
		conv, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "")
		require.NoError(t, err)
		_, err = f.svc.Page(ctx, "stranger", conv.ID, 0, 10)
		assert.ErrorIs(t, err, domainchat.ErrNotFound)
	})
}

func TestReadState(t *testing.T) {
	ctx := context.Background()

	t.Run("mark read flips only the counterpart's messages", func(t *testing.T) {
		f := newFixture()
		conv, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "")
		require.NoError(t, err)
		_, err = f.svc.Send(ctx, "guest", conv.ID, "one more from guest")
		require.NoError(t, err)
		_, err = f.svc.Send(ctx, "host", conv.ID, "from host")
		require.NoError(t, err)

		// Host reads: greeting plus the second guest message become read.
		marked, err := f.svc.MarkRead(ctx, "host", conv.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, marked)

		// The guest's own messages were never flipped from the guest's view.
		unreadGuest, err := f.svc.UnreadCountIn(ctx, "guest", conv.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, unreadGuest)
	})

	t.Run("mark read is idempotent", func(t *testing.T) {
		f := newFixture()
		conv, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "")
		require.NoError(t, err)
		marked, err := f.svc.MarkRead(ctx, "host", conv.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, marked)
		marked, err = f.svc.MarkRead(ctx, "host", conv.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 0, marked)
	})

	t.Run("global unread equals the sum over conversations", func(t *testing.T) {
		f := newFixture()
		f.listings.AddListing("listing-9", "carol")
		convB, _, err := f.svc.GetOrCreate(ctx, "alice", "host", "listing-42", "")
		require.NoError(t, err)
		convC, _, err := f.svc.GetOrCreate(ctx, "alice", "carol", "listing-9", "")
		require.NoError(t, err)
		_, err = f.svc.Send(ctx, "host", convB.ID, "b1")
		require.NoError(t, err)
		_, err = f.svc.Send(ctx, "host", convB.ID, "b2")
		require.NoError(t, err)
		_, err = f.svc.Send(ctx, "carol", convC.ID, "c1")
		require.NoError(t, err)

		total, err := f.svc.UnreadCount(ctx, "alice")
		require.NoError(t, err)
		inB, err := f.svc.UnreadCountIn(ctx, "alice", convB.ID)
		require.NoError(t, err)
		inC, err := f.svc.UnreadCountIn(ctx, "alice", convC.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Equal(t, total, inB+inC)

		// Counting twice changes nothing.
		again, err := f.svc.UnreadCount(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, total, again)
	})

	t.Run("mark all read drains every conversation", func(t *testing.T) {
		f := newFixture()
		f.listings.AddListing("listing-9", "carol")
		convB, _, err := f.svc.GetOrCreate(ctx, "alice", "host", "listing-42", "")
		require.NoError(t, err)
		convC, _, err := f.svc.GetOrCreate(ctx, "alice", "carol", "listing-9", "")
		require.NoError(t, err)
		_, err = f.svc.Send(ctx, "host", convB.ID, "b1")
		require.NoError(t, err)
		_, err = f.svc.Send(ctx, "carol", convC.ID, "c1")
		require.NoError(t, err)

		marked, err := f.svc.MarkAllRead(ctx, "alice")
		require.NoError(t, err)
		assert.EqualValues(t, 2, marked)

		total, err := f.svc.UnreadCount(ctx, "alice")
		require.NoError(t, err)
		assert.EqualValues(t, 0, total)
	})

	t.Run("user without conversations has zero unread", func(t *testing.T) {
		f := newFixture()
		total, err := f.svc.UnreadCount(ctx, "nobody")
		require.NoError(t, err)
		assert.EqualValues(t, 0, total)
		marked, err := f.svc.MarkAllRead(ctx, "nobody")
		require.NoError(t, err)
		assert.EqualValues(t, 0, marked)
	})
}

func TestGetConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("returns recent window and marks read", func(t *testing.T) {
		f := newFixture()
		conv, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "")
		require.NoError(t, err)
		_, err = f.svc.Send(ctx, "guest", conv.ID, "still there?")
		require.NoError(t, err)

		detail, err := f.svc.GetConversation(ctx, "host", conv.ID)
		require.NoError(t, err)
		assert.Equal(t, domainchat.UserID("guest"), detail.Other)
		assert.Len(t, detail.Messages, 2)
		assert.EqualValues(t, 2, detail.MarkedRead)

		unread, err := f.svc.UnreadCountIn(ctx, "host", conv.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 0, unread)
	})

	t.Run("outsider cannot confirm existence", func(t *testing.T) {
		f := newFixture()
		conv, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "")
		require.NoError(t, err)
		_, err = f.svc.GetConversation(ctx, "stranger", conv.ID)
		assert.ErrorIs(t, err, domainchat.ErrNotFound)
		_, err = f.svc.GetConversation(ctx, "stranger", "missing")
		assert.ErrorIs(t, err, domainchat.ErrNotFound)
	})
}

func TestListConversations(t *testing.T) {
	ctx := context.Background()

	t.Run("newest activity first with previews and unread counts", func(t *testing.T) {
		f := newFixture()
		f.listings.AddListing("listing-9", "carol")
		older, _, err := f.svc.GetOrCreate(ctx, "alice", "host", "listing-42", "")
		require.NoError(t, err)
		newer, _, err := f.svc.GetOrCreate(ctx, "alice", "carol", "listing-9", "")
		require.NoError(t, err)
		// New activity moves the first conversation back to the top.
		_, err = f.svc.Send(ctx, "host", older.ID, "are you still interested?")
		require.NoError(t, err)

		summaries, err := f.svc.ListConversations(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, older.ID, summaries[0].Conversation.ID)
		assert.Equal(t, newer.ID, summaries[1].Conversation.ID)
		require.NotNil(t, summaries[0].LastMessage)
		assert.Equal(t, "are you still interested?", summaries[0].LastMessage.Text)
		assert.EqualValues(t, 1, summaries[0].Unread)
		assert.Equal(t, domainchat.UserID("host"), summaries[0].Other)
	})

	t.Run("empty for unknown user", func(t *testing.T) {
		f := newFixture()
		summaries, err := f.svc.ListConversations(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, summaries)
	})
}

func TestDeleteConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("participant delete cascades to messages", func(t *testing.T) {
		f := newFixture()
		conv, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "")
		require.NoError(t, err)
		require.NoError(t, f.svc.DeleteConversation(ctx, "guest", conv.ID))

		_, err = f.svc.GetConversation(ctx, "guest", conv.ID)
		assert.ErrorIs(t, err, domainchat.ErrNotFound)
		count, err := f.svc.Messages.Count(ctx, conv.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})

	t.Run("outsider cannot delete", func(t *testing.T) {
		f := newFixture()
		conv, _, err := f.svc.GetOrCreate(ctx, "guest", "host", "listing-42", "")
		require.NoError(t, err)
		err = f.svc.DeleteConversation(ctx, "stranger", conv.ID)
		assert.ErrorIs(t, err, domainchat.ErrNotFound)
	})
}

func TestUnauthenticatedCaller(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, _, err := f.svc.GetOrCreate(ctx, "", "host", "listing-42", "")
	assert.ErrorIs(t, err, domainchat.ErrUnauthenticated)
	_, err = f.svc.ListConversations(ctx, "")
	assert.ErrorIs(t, err, domainchat.ErrUnauthenticated)
	_, err = f.svc.UnreadCount(ctx, "")
	assert.ErrorIs(t, err, domainchat.ErrUnauthenticated)
	_, err = f.svc.Send(ctx, "", "conv", "hello")
	assert.ErrorIs(t, err, domainchat.ErrUnauthenticated)
}
