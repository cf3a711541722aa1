package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

// FriendHandler manages friend-request and friendship endpoints.
type FriendHandler struct {
	relationshipRepo repositories.RelationshipRepository
	userRepo         repositories.UserRepository
	conversationRepo repositories.ConversationRepository
	dispatcher       EventDispatcher
	audit            *telemetry.AuditEmitter
}

// NewFriendHandler constructs a FriendHandler.
func NewFriendHandler(relationshipRepo repositories.RelationshipRepository, userRepo repositories.UserRepository, conversationRepo repositories.ConversationRepository, dispatcher EventDispatcher, audit *telemetry.AuditEmitter) *FriendHandler {
	return &FriendHandler{
		relationshipRepo: relationshipRepo,
		userRepo:         userRepo,
		conversationRepo: conversationRepo,
		dispatcher:       dispatcher,
		audit:            audit,
	}
}

// CreateRequest handles POST /friends/requests.
func (h *FriendHandler) CreateRequest(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		TargetID int `json:"targetId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target, err := h.userRepo.GetUser(c.Request.Context(), req.TargetID)
	if err != nil {
		abortWithError(c, err, "target user not found")
		return
	}

	request, err := h.relationshipRepo.CreateRequest(c.Request.Context(), userID, target.ID)
	if err != nil {
		abortWithError(c, err, "could not create request")
		return
	}

	h.dispatcher.DispatchNewFriendRequest(c.Request.Context(), target.ID, userID)
	h.emitAudit(c, "INFO", "Friend request created")
	c.JSON(http.StatusCreated, gin.H{"requestId": request.ID})
}

// CompleteRequest handles POST /friends/requests/:request_id/complete.
func (h *FriendHandler) CompleteRequest(c *gin.Context) {
	requestID, err := strconv.Atoi(c.Param("request_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	var req struct {
		Accept *bool `json:"accept" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	request, err := h.relationshipRepo.CompleteRequest(c.Request.Context(), requestID, userID, *req.Accept)
	if err != nil {
		abortWithError(c, err, "could not complete request")
		return
	}

	if request.Accepted {
		// New friends get their private conversation right away.
		if _, err := h.conversationRepo.FindOrCreatePrivate(c.Request.Context(), request.CreatorID, request.TargetID); err != nil {
			logrus.WithError(err).WithField("request_id", requestID).Warn("could not create private conversation")
		}
		h.dispatcher.DispatchFriendAccepted(c.Request.Context(), request.CreatorID)
	}

	h.emitAudit(c, "INFO", "Friend request completed")
	c.JSON(http.StatusOK, request)
}

// MyRequests returns requests targeting the caller, newest first.
func (h *FriendHandler) MyRequests(c *gin.Context) {
	userID := c.GetInt("userID")

	requests, err := h.relationshipRepo.ListRequestsForTarget(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load requests"})
		return
	}

	creatorIDs := make([]int, 0, len(requests))
	seen := map[int]struct{}{}
	for _, r := range requests {
		if _, ok := seen[r.CreatorID]; !ok {
			seen[r.CreatorID] = struct{}{}
			creatorIDs = append(creatorIDs, r.CreatorID)
		}
	}

	creators, err := h.userRepo.BulkUsers(c.Request.Context(), creatorIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load request creators"})
		return
	}
	creatorByID := map[int]models.User{}
	for _, u := range creators {
		creatorByID[u.ID] = u
	}

	type requestResponse struct {
		models.FriendRequest
		Creator models.User `json:"creator"`
	}

	resp := make([]requestResponse, 0, len(requests))
	for _, r := range requests {
		resp = append(resp, requestResponse{FriendRequest: r, Creator: creatorByID[r.CreatorID]})
	}

	c.JSON(http.StatusOK, gin.H{"requests": resp})
}

// DeleteFriend handles DELETE /friends/:user_id.
func (h *FriendHandler) DeleteFriend(c *gin.Context) {
	targetID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	userID := c.GetInt("userID")
	if _, err := h.userRepo.GetUser(c.Request.Context(), targetID); err != nil {
		abortWithError(c, err, "target user not found")
		return
	}

	if err := h.relationshipRepo.RemoveFriend(c.Request.Context(), userID, targetID); err != nil {
		abortWithError(c, err, "could not remove friend")
		return
	}

	h.dispatcher.DispatchFriendRemoved(c.Request.Context(), targetID)
	h.emitAudit(c, "INFO", "Friend removed")
	c.Status(http.StatusNoContent)
}

func (h *FriendHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
