package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/push"
)

const requestIDContextKey = "request_id"

// EventDispatcher fans out push notifications after a state mutation has
// committed. Implementations never report delivery failures back.
type EventDispatcher interface {
	DispatchNewMessage(ctx context.Context, conversationID int, sender models.User, content string, recipientIDs []int)
	DispatchNewFriendRequest(ctx context.Context, targetID, requesterID int)
	DispatchFriendAccepted(ctx context.Context, creatorID int)
	DispatchFriendRemoved(ctx context.Context, counterpartID int)
}

var _ EventDispatcher = (*push.Dispatcher)(nil)

// statusForError maps domain error kinds to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error, message string) {
	c.JSON(statusForError(err), gin.H{"error": message})
}

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *int64 {
	if val, ok := c.Get("userID"); ok {
		switch userID := val.(type) {
		case int:
			if userID != 0 {
				value := int64(userID)
				return &value
			}
		case int64:
			if userID != 0 {
				value := userID
				return &value
			}
		}
	}
	return nil
}

// chronological reverses a newest-first window so callers always see the
// newest messages in oldest-first order, never a truncated prefix.
func chronological(msgs []models.Message) []models.Message {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs
}
