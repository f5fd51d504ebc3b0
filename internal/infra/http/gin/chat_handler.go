package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentline/internal/app/dto"
	appchat "rentline/internal/app/services/chat"
	domainchat "rentline/internal/domain/chat"
)

// ChatHTTP exposes the messaging endpoints.
type ChatHTTP interface {
	ListMyConversations(c *gin.Context)
	CreateConversation(c *gin.Context)
	GetConversation(c *gin.Context)
	DeleteConversation(c *gin.Context)
	ListMessages(c *gin.Context)
	SendMessage(c *gin.Context)
	MarkRead(c *gin.Context)
	MarkAllRead(c *gin.Context)
	UnreadCount(c *gin.Context)
}

// ChatHandler bridges HTTP with the chat service.
type ChatHandler struct {
	Service *appchat.Service
	Logger  *slog.Logger
}

// ListMyConversations returns the caller's inbox, newest activity first.
func (h ChatHandler) ListMyConversations(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	summaries, err := h.Service.ListConversations(c.Request.Context(), domainchat.UserID(p.ID))
	if err != nil {
		h.respondChatError(c, err, "list conversations", "user_id", p.ID)
		return
	}
	collection := dto.ConversationList{Items: make([]dto.ConversationSummary, 0, len(summaries))}
	for _, s := range summaries {
		item := dto.ConversationSummary{
			ID:          string(s.Conversation.ID),
			OtherUserID: string(s.Other),
			ListingID:   string(s.Conversation.ListingID),
			CreatedAt:   s.Conversation.CreatedAt,
			UnreadCount: s.Unread,
		}
		if s.LastMessage != nil {
			msg := toChatMessage(*s.LastMessage)
			item.LastMessage = &msg
		}
		collection.Items = append(collection.Items, item)
	}
	c.JSON(http.StatusOK, collection)
}

// CreateConversation gets or creates the canonical conversation with another
// user about a listing.
func (h ChatHandler) CreateConversation(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req struct {
		OtherUserID string `json:"other_user_id"`
		ListingID   string `json:"listing_id"`
		InitialText string `json:"initial_text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.OtherUserID = strings.TrimSpace(req.OtherUserID)
	req.ListingID = strings.TrimSpace(req.ListingID)
	if req.OtherUserID == "" || req.ListingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "other_user_id and listing_id are required"})
		return
	}
	conv, isNew, err := h.Service.GetOrCreate(
		c.Request.Context(),
		domainchat.UserID(p.ID),
		domainchat.UserID(req.OtherUserID),
		domainchat.ListingID(req.ListingID),
		req.InitialText,
	)
	if err != nil {
		h.respondChatError(c, err, "create conversation", "user_id", p.ID, "listing_id", req.ListingID)
		return
	}
	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	c.JSON(status, dto.ConversationCreated{ID: string(conv.ID), IsNew: isNew})
}

// GetConversation returns the conversation with its recent messages and
// marks the counterpart's messages as read.
func (h ChatHandler) GetConversation(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	detail, err := h.Service.GetConversation(c.Request.Context(), domainchat.UserID(p.ID), domainchat.ConversationID(id))
	if err != nil {
		h.respondChatError(c, err, "load conversation", "conversation_id", id, "user_id", p.ID)
		return
	}
	response := dto.ConversationDetail{
		ID:          string(detail.Conversation.ID),
		OtherUserID: string(detail.Other),
		ListingID:   string(detail.Conversation.ListingID),
		CreatedAt:   detail.Conversation.CreatedAt,
		Messages:    make([]dto.ChatMessage, 0, len(detail.Messages)),
	}
	for _, msg := range detail.Messages {
		response.Messages = append(response.Messages, toChatMessage(msg))
	}
	c.JSON(http.StatusOK, response)
}

// DeleteConversation removes a conversation and its messages.
func (h ChatHandler) DeleteConversation(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if err := h.Service.DeleteConversation(c.Request.Context(), domainchat.UserID(p.ID), domainchat.ConversationID(id)); err != nil {
		h.respondChatError(c, err, "delete conversation", "conversation_id", id, "user_id", p.ID)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMessages returns an offset page of the conversation history in
// chronological order.
func (h ChatHandler) ListMessages(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	skip := parseNonNegativeInt(c.Query("skip"), 0)
	take := parsePositiveIntStrict(c.Query("take"), 50)
	page, err := h.Service.Page(c.Request.Context(), domainchat.UserID(p.ID), domainchat.ConversationID(id), skip, take)
	if err != nil {
		h.respondChatError(c, err, "list messages", "conversation_id", id, "user_id", p.ID)
		return
	}
	response := dto.ChatMessagePage{
		Items:   make([]dto.ChatMessage, 0, len(page.Items)),
		Total:   page.Total,
		HasMore: page.HasMore,
	}
	for _, msg := range page.Items {
		response.Items = append(response.Items, toChatMessage(msg))
	}
	c.JSON(http.StatusOK, response)
}

// SendMessage appends a message to the conversation.
func (h ChatHandler) SendMessage(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	message, err := h.Service.Send(c.Request.Context(), domainchat.UserID(p.ID), domainchat.ConversationID(id), req.Text)
	if err != nil {
		h.respondChatError(c, err, "send message", "conversation_id", id, "user_id", p.ID)
		return
	}
	c.JSON(http.StatusCreated, toChatMessage(*message))
}

// MarkRead marks the counterpart's messages in one conversation as read.
func (h ChatHandler) MarkRead(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	marked, err := h.Service.MarkRead(c.Request.Context(), domainchat.UserID(p.ID), domainchat.ConversationID(id))
	if err != nil {
		h.respondChatError(c, err, "mark read", "conversation_id", id, "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

// MarkAllRead marks everything addressed to the caller as read.
func (h ChatHandler) MarkAllRead(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	marked, err := h.Service.MarkAllRead(c.Request.Context(), domainchat.UserID(p.ID))
	if err != nil {
		h.respondChatError(c, err, "mark all read", "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

// UnreadCount returns the caller's total unread message count.
func (h ChatHandler) UnreadCount(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	count, err := h.Service.UnreadCount(c.Request.Context(), domainchat.UserID(p.ID))
	if err != nil {
		h.respondChatError(c, err, "count unread", "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

func (h ChatHandler) respondChatError(c *gin.Context, err error, action string, attrs ...any) {
	switch {
	case errors.Is(err, domainchat.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
	case errors.Is(err, domainchat.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domainchat.ErrListingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
	case errors.Is(err, domainchat.ErrInvalidMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message text must be between 1 and 2000 characters"})
	case errors.Is(err, domainchat.ErrSelfConversation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot start a conversation with yourself"})
	case errors.Is(err, domainchat.ErrPrivilegedParty):
		c.JSON(http.StatusBadRequest, gin.H{"error": "support account cannot take part in conversations"})
	case errors.Is(err, domainchat.ErrOwnListing):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot start a conversation about your own listing"})
	default:
		if h.Logger != nil {
			h.Logger.Error("chat call failed", append([]any{"action", action, "error", err}, attrs...)...)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func toChatMessage(msg domainchat.Message) dto.ChatMessage {
	return dto.ChatMessage{
		ID:             string(msg.ID),
		ConversationID: string(msg.ConversationID),
		SenderID:       string(msg.SenderID),
		Text:           msg.Text,
		CreatedAt:      msg.CreatedAt,
		Read:           msg.Read,
	}
}

func parsePositiveIntStrict(raw string, def int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return def
	}
	return value
}

func parseNonNegativeInt(raw string, def int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return def
	}
	return value
}

var _ ChatHTTP = (*ChatHandler)(nil)
