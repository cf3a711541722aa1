package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
)

func setupFriendRouter(handler *FriendHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/friends/requests", handler.CreateRequest)
	r.POST("/friends/requests/:request_id/complete", handler.CompleteRequest)
	r.GET("/friends/requests", handler.MyRequests)
	r.DELETE("/friends/:user_id", handler.DeleteFriend)
	return r
}

func TestCreateRequestSuccess(t *testing.T) {
	relationshipRepo := new(mocks.RelationshipRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	dispatcher := new(mocks.DispatcherMock)
	handler := NewFriendHandler(relationshipRepo, userRepo, new(mocks.ConversationRepositoryMock), dispatcher, nil)
	router := setupFriendRouter(handler)

	userRepo.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2, NickName: "bob"}, nil).Once()
	relationshipRepo.On("CreateRequest", mock.Anything, 1, 2).Return(models.FriendRequest{ID: 9, CreatorID: 1, TargetID: 2}, nil).Once()
	dispatcher.On("DispatchNewFriendRequest", mock.Anything, 2, 1).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/requests", bytes.NewBufferString(`{"targetId":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.EqualValues(t, 9, resp["requestId"])

	relationshipRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
	dispatcher.AssertExpectations(t)
}

func TestCreateRequestSelf(t *testing.T) {
	relationshipRepo := new(mocks.RelationshipRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFriendHandler(relationshipRepo, userRepo, new(mocks.ConversationRepositoryMock), new(mocks.DispatcherMock), nil)
	router := setupFriendRouter(handler)

	userRepo.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1}, nil).Once()
	relationshipRepo.On("CreateRequest", mock.Anything, 1, 1).Return(models.FriendRequest{}, models.ErrInvalidInput).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/requests", bytes.NewBufferString(`{"targetId":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	relationshipRepo.AssertExpectations(t)
}

func TestCreateRequestDuplicatePending(t *testing.T) {
	relationshipRepo := new(mocks.RelationshipRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFriendHandler(relationshipRepo, userRepo, new(mocks.ConversationRepositoryMock), new(mocks.DispatcherMock), nil)
	router := setupFriendRouter(handler)

	userRepo.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()
	relationshipRepo.On("CreateRequest", mock.Anything, 1, 2).Return(models.FriendRequest{}, models.ErrConflict).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/requests", bytes.NewBufferString(`{"targetId":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	relationshipRepo.AssertExpectations(t)
}

func TestCreateRequestTargetNotFound(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFriendHandler(new(mocks.RelationshipRepositoryMock), userRepo, new(mocks.ConversationRepositoryMock), new(mocks.DispatcherMock), nil)
	router := setupFriendRouter(handler)

	userRepo.On("GetUser", mock.Anything, 99).Return(models.User{}, models.ErrNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/requests", bytes.NewBufferString(`{"targetId":99}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestCompleteRequestAccept(t *testing.T) {
	relationshipRepo := new(mocks.RelationshipRepositoryMock)
	conversationRepo := new(mocks.ConversationRepositoryMock)
	dispatcher := new(mocks.DispatcherMock)
	handler := NewFriendHandler(relationshipRepo, new(mocks.UserRepositoryMock), conversationRepo, dispatcher, nil)
	router := setupFriendRouter(handler)

	completed := models.FriendRequest{ID: 9, CreatorID: 2, TargetID: 1, Completed: true, Accepted: true}
	relationshipRepo.On("CompleteRequest", mock.Anything, 9, 1, true).Return(completed, nil).Once()
	conversationRepo.On("FindOrCreatePrivate", mock.Anything, 2, 1).Return(models.Conversation{ID: 5}, nil).Once()
	dispatcher.On("DispatchFriendAccepted", mock.Anything, 2).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/requests/9/complete", bytes.NewBufferString(`{"accept":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.FriendRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Accepted)

	relationshipRepo.AssertExpectations(t)
	conversationRepo.AssertExpectations(t)
	dispatcher.AssertExpectations(t)
}

func TestCompleteRequestDeclineSkipsConversation(t *testing.T) {
	relationshipRepo := new(mocks.RelationshipRepositoryMock)
	conversationRepo := new(mocks.ConversationRepositoryMock)
	dispatcher := new(mocks.DispatcherMock)
	handler := NewFriendHandler(relationshipRepo, new(mocks.UserRepositoryMock), conversationRepo, dispatcher, nil)
	router := setupFriendRouter(handler)

	declined := models.FriendRequest{ID: 9, CreatorID: 2, TargetID: 1, Completed: true, Accepted: false}
	relationshipRepo.On("CompleteRequest", mock.Anything, 9, 1, false).Return(declined, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/requests/9/complete", bytes.NewBufferString(`{"accept":false}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	conversationRepo.AssertNotCalled(t, "FindOrCreatePrivate", mock.Anything, mock.Anything, mock.Anything)
	dispatcher.AssertNotCalled(t, "DispatchFriendAccepted", mock.Anything, mock.Anything)
	relationshipRepo.AssertExpectations(t)
}

func TestCompleteRequestNotTarget(t *testing.T) {
	relationshipRepo := new(mocks.RelationshipRepositoryMock)
	handler := NewFriendHandler(relationshipRepo, new(mocks.UserRepositoryMock), new(mocks.ConversationRepositoryMock), new(mocks.DispatcherMock), nil)
	router := setupFriendRouter(handler)

	relationshipRepo.On("CompleteRequest", mock.Anything, 9, 1, true).Return(models.FriendRequest{}, models.ErrUnauthorized).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/requests/9/complete", bytes.NewBufferString(`{"accept":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	relationshipRepo.AssertExpectations(t)
}

func TestCompleteRequestAlreadyCompleted(t *testing.T) {
	relationshipRepo := new(mocks.RelationshipRepositoryMock)
	handler := NewFriendHandler(relationshipRepo, new(mocks.UserRepositoryMock), new(mocks.ConversationRepositoryMock), new(mocks.DispatcherMock), nil)
	router := setupFriendRouter(handler)

	relationshipRepo.On("CompleteRequest", mock.Anything, 9, 1, true).Return(models.FriendRequest{}, models.ErrConflict).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/requests/9/complete", bytes.NewBufferString(`{"accept":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	relationshipRepo.AssertExpectations(t)
}

func TestMyRequestsEmbedsCreators(t *testing.T) {
	relationshipRepo := new(mocks.RelationshipRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFriendHandler(relationshipRepo, userRepo, new(mocks.ConversationRepositoryMock), new(mocks.DispatcherMock), nil)
	router := setupFriendRouter(handler)

	relationshipRepo.On("ListRequestsForTarget", mock.Anything, 1).Return([]models.FriendRequest{
		{ID: 9, CreatorID: 2, TargetID: 1},
		{ID: 8, CreatorID: 3, TargetID: 1},
	}, nil).Once()
	userRepo.On("BulkUsers", mock.Anything, []int{2, 3}).Return([]models.User{
		{ID: 2, NickName: "bob"},
		{ID: 3, NickName: "carol"},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/friends/requests", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Requests []struct {
			ID      int         `json:"id"`
			Creator models.User `json:"creator"`
		} `json:"requests"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Requests, 2)
	assert.Equal(t, "bob", resp.Requests[0].Creator.NickName)
	assert.Equal(t, "carol", resp.Requests[1].Creator.NickName)

	relationshipRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestDeleteFriendSuccess(t *testing.T) {
	relationshipRepo := new(mocks.RelationshipRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	dispatcher := new(mocks.DispatcherMock)
	handler := NewFriendHandler(relationshipRepo, userRepo, new(mocks.ConversationRepositoryMock), dispatcher, nil)
	router := setupFriendRouter(handler)

	userRepo.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()
	relationshipRepo.On("RemoveFriend", mock.Anything, 1, 2).Return(nil).Once()
	dispatcher.On("DispatchFriendRemoved", mock.Anything, 2).Once()

	req := httptest.NewRequest(http.MethodDelete, "/friends/2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	relationshipRepo.AssertExpectations(t)
	dispatcher.AssertExpectations(t)
}

func TestDeleteFriendNotFriends(t *testing.T) {
	relationshipRepo := new(mocks.RelationshipRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFriendHandler(relationshipRepo, userRepo, new(mocks.ConversationRepositoryMock), new(mocks.DispatcherMock), nil)
	router := setupFriendRouter(handler)

	userRepo.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()
	relationshipRepo.On("RemoveFriend", mock.Anything, 1, 2).Return(models.ErrConflict).Once()

	req := httptest.NewRequest(http.MethodDelete, "/friends/2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	relationshipRepo.AssertExpectations(t)
}
