package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

// ConversationHandler manages conversation listing and creation.
type ConversationHandler struct {
	conversationRepo repositories.ConversationRepository
	messageRepo      repositories.MessageRepository
	userRepo         repositories.UserRepository
	relationshipRepo repositories.RelationshipRepository
}

// NewConversationHandler constructs a ConversationHandler.
func NewConversationHandler(conversationRepo repositories.ConversationRepository, messageRepo repositories.MessageRepository, userRepo repositories.UserRepository, relationshipRepo repositories.RelationshipRepository) *ConversationHandler {
	return &ConversationHandler{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		relationshipRepo: relationshipRepo,
	}
}

// ListConversations handles GET /conversations. Display fields are derived
// relative to the viewer; ordering is latest-message-first unless
// orderByName=true.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := c.GetInt("userID")
	ctx := c.Request.Context()

	conversations, err := h.conversationRepo.ListForUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	otherByConversation, err := h.resolveCounterparts(ctx, conversations, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}

	summaries := make([]models.ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summary, err := h.summarize(ctx, conversation, userID, otherByConversation)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build conversation view"})
			return
		}
		summaries = append(summaries, summary)
	}

	if c.Query("orderByName") == "true" {
		sort.Slice(summaries, func(i, j int) bool { return summaries[i].DisplayName < summaries[j].DisplayName })
	} else {
		sort.Slice(summaries, func(i, j int) bool { return summaries[i].LatestMessageTime.After(summaries[j].LatestMessageTime) })
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// ConversationDetail handles GET /conversations/:conversation_id.
func (h *ConversationHandler) ConversationDetail(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	userID := c.GetInt("userID")
	ctx := c.Request.Context()

	member, err := h.conversationRepo.IsMember(ctx, conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
		return
	}

	conversation, err := h.conversationRepo.GetConversation(ctx, conversationID)
	if err != nil {
		abortWithError(c, err, "conversation not found")
		return
	}

	others, err := h.resolveCounterparts(ctx, []models.Conversation{conversation}, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}

	summary, err := h.summarize(ctx, conversation, userID, others)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build conversation view"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// StartPrivate handles POST /conversations/private. Idempotent per pair.
func (h *ConversationHandler) StartPrivate(c *gin.Context) {
	var req struct {
		UserID int `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if userID == req.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot converse with yourself"})
		return
	}

	friends, err := h.relationshipRepo.AreFriends(c.Request.Context(), userID, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check friendship"})
		return
	}
	if !friends {
		c.JSON(http.StatusForbidden, gin.H{"error": "users are not friends"})
		return
	}

	conversation, err := h.conversationRepo.FindOrCreatePrivate(c.Request.Context(), userID, req.UserID)
	if err != nil {
		abortWithError(c, err, "could not create conversation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversationId": conversation.ID})
}

// CreateGroup handles POST /conversations/groups.
func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		Name      string `json:"name" binding:"required"`
		MemberIDs []int  `json:"memberIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.MemberIDs) > 0 {
		members, err := h.userRepo.BulkUsers(c.Request.Context(), req.MemberIDs)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate members"})
			return
		}
		known := map[int]struct{}{}
		for _, m := range members {
			known[m.ID] = struct{}{}
		}
		for _, id := range req.MemberIDs {
			if _, ok := known[id]; !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown member"})
				return
			}
		}
	}

	conversation, err := h.conversationRepo.CreateGroup(c.Request.Context(), userID, req.Name, req.MemberIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"conversationId": conversation.ID})
}

// resolveCounterparts bulk-loads the other member of each private
// conversation for display derivation.
func (h *ConversationHandler) resolveCounterparts(ctx context.Context, conversations []models.Conversation, viewerID int) (map[int]models.User, error) {
	otherIDs := make([]int, 0, len(conversations))
	otherIDByConversation := map[int]int{}
	for _, conversation := range conversations {
		if otherID, ok := conversation.OtherUserID(viewerID); ok {
			otherIDs = append(otherIDs, otherID)
			otherIDByConversation[conversation.ID] = otherID
		}
	}

	users, err := h.userRepo.BulkUsers(ctx, otherIDs)
	if err != nil {
		return nil, err
	}
	userByID := map[int]models.User{}
	for _, u := range users {
		userByID[u.ID] = u
	}

	result := map[int]models.User{}
	for conversationID, otherID := range otherIDByConversation {
		result[conversationID] = userByID[otherID]
	}
	return result, nil
}

func (h *ConversationHandler) summarize(ctx context.Context, conversation models.Conversation, viewerID int, otherByConversation map[int]models.User) (models.ConversationSummary, error) {
	summary := models.ConversationSummary{
		ConversationID: conversation.ID,
		Discriminator:  conversation.Discriminator,
	}

	if conversation.IsPrivate() {
		other := otherByConversation[conversation.ID]
		summary.DisplayName = other.NickName
		summary.DisplayImage = other.IconPath
		otherID := other.ID
		summary.UserID = &otherID

		unread, err := h.messageRepo.UnreadCountPrivate(ctx, conversation.ID, viewerID)
		if err != nil {
			return models.ConversationSummary{}, err
		}
		summary.UnreadAmount = unread
	} else {
		if conversation.GroupName != nil {
			summary.DisplayName = *conversation.GroupName
		}
		if conversation.GroupImage != nil {
			summary.DisplayImage = *conversation.GroupImage
		}

		cursor, err := h.conversationRepo.ReadCursor(ctx, conversation.ID, viewerID)
		if err != nil {
			return models.ConversationSummary{}, err
		}
		unread, err := h.messageRepo.UnreadCountSince(ctx, conversation.ID, cursor)
		if err != nil {
			return models.ConversationSummary{}, err
		}
		summary.UnreadAmount = unread
	}

	latest, err := h.messageRepo.LatestMessage(ctx, conversation.ID)
	switch {
	case errors.Is(err, repositories.ErrNoMessages):
		summary.LatestMessageTime = conversation.CreatedAt
	case err != nil:
		return models.ConversationSummary{}, err
	default:
		summary.LatestMessage = latest.Content
		summary.LatestMessageTime = latest.SendTime
	}

	return summary, nil
}
