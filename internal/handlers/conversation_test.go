package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

func setupConversationRouter(handler *ConversationHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/conversations", handler.ListConversations)
	r.GET("/conversations/:conversation_id", handler.ConversationDetail)
	r.POST("/conversations/private", handler.StartPrivate)
	r.POST("/conversations/groups", handler.CreateGroup)
	return r
}

func TestListConversationsDisplayAndOrdering(t *testing.T) {
	conversationRepo := new(mocks.ConversationRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewConversationHandler(conversationRepo, messageRepo, userRepo, new(mocks.RelationshipRepositoryMock))
	router := setupConversationRouter(handler)

	name := "team"
	private := privateConversation(1, 1, 2)
	group := models.Conversation{ID: 2, Discriminator: models.ConversationGroup, GroupName: &name}

	older := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	cursor := older.Add(-time.Hour)

	conversationRepo.On("ListForUser", mock.Anything, 1).Return([]models.Conversation{private, group}, nil).Once()
	userRepo.On("BulkUsers", mock.Anything, []int{2}).Return([]models.User{{ID: 2, NickName: "bob", IconPath: "bob.png"}}, nil).Once()

	messageRepo.On("UnreadCountPrivate", mock.Anything, 1, 1).Return(2, nil).Once()
	messageRepo.On("LatestMessage", mock.Anything, 1).Return(models.Message{Content: "hi", SendTime: older}, nil).Once()

	conversationRepo.On("ReadCursor", mock.Anything, 2, 1).Return(cursor, nil).Once()
	messageRepo.On("UnreadCountSince", mock.Anything, 2, cursor).Return(5, nil).Once()
	messageRepo.On("LatestMessage", mock.Anything, 2).Return(models.Message{Content: "standup", SendTime: newer}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Conversations, 2)

	// Latest-message-first: the group spoke more recently.
	assert.Equal(t, 2, resp.Conversations[0].ConversationID)
	assert.Equal(t, "team", resp.Conversations[0].DisplayName)
	assert.Equal(t, 5, resp.Conversations[0].UnreadAmount)

	assert.Equal(t, 1, resp.Conversations[1].ConversationID)
	assert.Equal(t, "bob", resp.Conversations[1].DisplayName)
	assert.Equal(t, "bob.png", resp.Conversations[1].DisplayImage)
	assert.Equal(t, 2, resp.Conversations[1].UnreadAmount)
	require.NotNil(t, resp.Conversations[1].UserID)
	assert.Equal(t, 2, *resp.Conversations[1].UserID)

	conversationRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestListConversationsOrderByName(t *testing.T) {
	conversationRepo := new(mocks.ConversationRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewConversationHandler(conversationRepo, messageRepo, userRepo, new(mocks.RelationshipRepositoryMock))
	router := setupConversationRouter(handler)

	zed := "zed"
	ant := "ant"
	groupZ := models.Conversation{ID: 1, Discriminator: models.ConversationGroup, GroupName: &zed}
	groupA := models.Conversation{ID: 2, Discriminator: models.ConversationGroup, GroupName: &ant}

	conversationRepo.On("ListForUser", mock.Anything, 1).Return([]models.Conversation{groupZ, groupA}, nil).Once()
	userRepo.On("BulkUsers", mock.Anything, []int{}).Return([]models.User{}, nil).Once()
	conversationRepo.On("ReadCursor", mock.Anything, mock.Anything, 1).Return(time.Time{}, nil).Twice()
	messageRepo.On("UnreadCountSince", mock.Anything, mock.Anything, mock.Anything).Return(0, nil).Twice()
	messageRepo.On("LatestMessage", mock.Anything, mock.Anything).Return(models.Message{}, nil).Twice()

	req := httptest.NewRequest(http.MethodGet, "/conversations?orderByName=true", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Conversations, 2)
	assert.Equal(t, "ant", resp.Conversations[0].DisplayName)
	assert.Equal(t, "zed", resp.Conversations[1].DisplayName)
}

func TestConversationDetailNonMember(t *testing.T) {
	conversationRepo := new(mocks.ConversationRepositoryMock)
	handler := NewConversationHandler(conversationRepo, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock), new(mocks.RelationshipRepositoryMock))
	router := setupConversationRouter(handler)

	conversationRepo.On("IsMember", mock.Anything, 5, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	conversationRepo.AssertExpectations(t)
}

func TestConversationDetailNoMessagesFallsBackToCreatedAt(t *testing.T) {
	conversationRepo := new(mocks.ConversationRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewConversationHandler(conversationRepo, messageRepo, userRepo, new(mocks.RelationshipRepositoryMock))
	router := setupConversationRouter(handler)

	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	private := privateConversation(5, 1, 2)
	private.CreatedAt = created

	conversationRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil).Once()
	conversationRepo.On("GetConversation", mock.Anything, 5).Return(private, nil).Once()
	userRepo.On("BulkUsers", mock.Anything, []int{2}).Return([]models.User{{ID: 2, NickName: "bob"}}, nil).Once()
	messageRepo.On("UnreadCountPrivate", mock.Anything, 5, 1).Return(0, nil).Once()
	messageRepo.On("LatestMessage", mock.Anything, 5).Return(models.Message{}, repositories.ErrNoMessages).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var summary models.ConversationSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
	assert.Empty(t, summary.LatestMessage)
	assert.True(t, summary.LatestMessageTime.Equal(created))
}

func TestStartPrivateSelf(t *testing.T) {
	handler := NewConversationHandler(new(mocks.ConversationRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock), new(mocks.RelationshipRepositoryMock))
	router := setupConversationRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/conversations/private", bytes.NewBufferString(`{"userId":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartPrivateNotFriends(t *testing.T) {
	conversationRepo := new(mocks.ConversationRepositoryMock)
	relationshipRepo := new(mocks.RelationshipRepositoryMock)
	handler := NewConversationHandler(conversationRepo, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock), relationshipRepo)
	router := setupConversationRouter(handler)

	relationshipRepo.On("AreFriends", mock.Anything, 1, 2).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/private", bytes.NewBufferString(`{"userId":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	conversationRepo.AssertNotCalled(t, "FindOrCreatePrivate", mock.Anything, mock.Anything, mock.Anything)
	relationshipRepo.AssertExpectations(t)
}

func TestStartPrivateIdempotent(t *testing.T) {
	conversationRepo := new(mocks.ConversationRepositoryMock)
	relationshipRepo := new(mocks.RelationshipRepositoryMock)
	handler := NewConversationHandler(conversationRepo, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock), relationshipRepo)
	router := setupConversationRouter(handler)

	relationshipRepo.On("AreFriends", mock.Anything, 1, 2).Return(true, nil).Twice()
	conversationRepo.On("FindOrCreatePrivate", mock.Anything, 1, 2).Return(models.Conversation{ID: 5}, nil).Twice()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/conversations/private", bytes.NewBufferString(`{"userId":2}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.EqualValues(t, 5, resp["conversationId"])
	}

	conversationRepo.AssertExpectations(t)
}

func TestCreateGroupSuccess(t *testing.T) {
	conversationRepo := new(mocks.ConversationRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewConversationHandler(conversationRepo, new(mocks.MessageRepositoryMock), userRepo, new(mocks.RelationshipRepositoryMock))
	router := setupConversationRouter(handler)

	userRepo.On("BulkUsers", mock.Anything, []int{2, 3}).Return([]models.User{{ID: 2}, {ID: 3}}, nil).Once()
	conversationRepo.On("CreateGroup", mock.Anything, 1, "team", []int{2, 3}).Return(models.Conversation{ID: 7}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/groups", bytes.NewBufferString(`{"name":"team","memberIds":[2,3]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.EqualValues(t, 7, resp["conversationId"])

	conversationRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestCreateGroupUnknownMember(t *testing.T) {
	conversationRepo := new(mocks.ConversationRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewConversationHandler(conversationRepo, new(mocks.MessageRepositoryMock), userRepo, new(mocks.RelationshipRepositoryMock))
	router := setupConversationRouter(handler)

	userRepo.On("BulkUsers", mock.Anything, []int{2, 99}).Return([]models.User{{ID: 2}}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/groups", bytes.NewBufferString(`{"name":"team","memberIds":[2,99]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	conversationRepo.AssertNotCalled(t, "CreateGroup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
