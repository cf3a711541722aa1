package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/repositories"
)

// UserHandler exposes user lookup and search.
type UserHandler struct {
	userRepo         repositories.UserRepository
	relationshipRepo repositories.RelationshipRepository
	conversationRepo repositories.ConversationRepository
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(userRepo repositories.UserRepository, relationshipRepo repositories.RelationshipRepository, conversationRepo repositories.ConversationRepository) *UserHandler {
	return &UserHandler{
		userRepo:         userRepo,
		relationshipRepo: relationshipRepo,
		conversationRepo: conversationRepo,
	}
}

// UserDetail handles GET /users/:user_id: the profile, friendship status and,
// when friends, the private conversation id.
func (h *UserHandler) UserDetail(c *gin.Context) {
	targetID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	userID := c.GetInt("userID")
	ctx := c.Request.Context()

	target, err := h.userRepo.GetUser(ctx, targetID)
	if err != nil {
		abortWithError(c, err, "user not found")
		return
	}

	friends, err := h.relationshipRepo.AreFriends(ctx, userID, targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check friendship"})
		return
	}

	resp := gin.H{"user": target, "areFriends": friends}
	if friends {
		if conversation, err := h.conversationRepo.FindPrivate(ctx, userID, targetID); err == nil {
			resp["conversationId"] = conversation.ID
		}
	}

	c.JSON(http.StatusOK, resp)
}

// SearchUsers handles GET /users?search=.
func (h *UserHandler) SearchUsers(c *gin.Context) {
	term := c.Query("search")
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing search term"})
		return
	}

	users, err := h.userRepo.SearchByNick(c.Request.Context(), term)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}
