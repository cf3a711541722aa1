package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

const defaultMessageTake = 15

// MessageHandler manages message retrieval and sending.
type MessageHandler struct {
	conversationRepo repositories.ConversationRepository
	messageRepo      repositories.MessageRepository
	userRepo         repositories.UserRepository
	dispatcher       EventDispatcher
	audit            *telemetry.AuditEmitter
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(conversationRepo repositories.ConversationRepository, messageRepo repositories.MessageRepository, userRepo repositories.UserRepository, dispatcher EventDispatcher, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		dispatcher:       dispatcher,
		audit:            audit,
	}
}

// GetMessages handles GET /conversations/:conversation_id/messages. The
// newest `take` messages are returned oldest-first. Fetching marks the
// conversation read for the viewer, but only once retrieval succeeded.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	take := defaultMessageTake
	if raw := c.Query("take"); raw != "" {
		take, err = strconv.Atoi(raw)
		if err != nil || take <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid take"})
			return
		}
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

	msgs, err := h.messageRepo.RecentMessages(ctx, conversationID, take)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	msgs = chronological(msgs)

	// Read-state bookkeeping is best effort once retrieval succeeded.
	if conversation.IsPrivate() {
		if err := h.messageRepo.MarkPrivateRead(ctx, conversationID, userID); err != nil {
			logrus.WithError(err).WithField("conversation_id", conversationID).Warn("could not mark messages read")
		}
	} else {
		if err := h.conversationRepo.AdvanceReadCursor(ctx, conversationID, userID, time.Now()); err != nil {
			logrus.WithError(err).WithField("conversation_id", conversationID).Warn("could not advance read cursor")
		}
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage handles POST /conversations/:conversation_id/messages. The
// message is committed first; fan-out failures never roll it back.
func (h *MessageHandler) SendMessage(c *gin.Context) {
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

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot send empty message"})
		return
	}

	msg, err := h.messageRepo.CreateMessage(ctx, conversationID, userID, req.Content)
	if err != nil {
		abortWithError(c, err, "failed to store message")
		return
	}

	h.fanOutNewMessage(c, conversationID, userID, msg.Content)
	h.emitAudit(c, "INFO", "Message sent")
	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) fanOutNewMessage(c *gin.Context, conversationID, senderID int, content string) {
	ctx := c.Request.Context()

	sender, err := h.userRepo.GetUser(ctx, senderID)
	if err != nil {
		logrus.WithError(err).WithField("sender_id", senderID).Warn("could not load sender for fan-out")
		return
	}

	memberIDs, err := h.conversationRepo.MemberIDs(ctx, conversationID)
	if err != nil {
		logrus.WithError(err).WithField("conversation_id", conversationID).Warn("could not load members for fan-out")
		return
	}

	recipients := make([]int, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id != senderID {
			recipients = append(recipients, id)
		}
	}

	h.dispatcher.DispatchNewMessage(ctx, conversationID, sender, content, recipients)
}

func (h *MessageHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
