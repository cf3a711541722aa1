package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"messenger-service/internal/models"
	"messenger-service/internal/push"
	"messenger-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) BulkUsers(ctx context.Context, ids []int) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) SearchByNick(ctx context.Context, term string) ([]models.User, error) {
	args := m.Called(ctx, term)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) UserIDByCredential(ctx context.Context, credential string) (int, error) {
	args := m.Called(ctx, credential)
	return args.Int(0), args.Error(1)
}

func (m *UserRepositoryMock) UpdateChannel(ctx context.Context, userID int, channelID int, connectKey string) error {
	args := m.Called(ctx, userID, channelID, connectKey)
	return args.Error(0)
}

type RelationshipRepositoryMock struct {
	mock.Mock
}

func (m *RelationshipRepositoryMock) CreateRequest(ctx context.Context, creatorID, targetID int) (models.FriendRequest, error) {
	args := m.Called(ctx, creatorID, targetID)
	var request models.FriendRequest
	if val := args.Get(0); val != nil {
		request = val.(models.FriendRequest)
	}
	return request, args.Error(1)
}

func (m *RelationshipRepositoryMock) GetRequest(ctx context.Context, requestID int) (models.FriendRequest, error) {
	args := m.Called(ctx, requestID)
	var request models.FriendRequest
	if val := args.Get(0); val != nil {
		request = val.(models.FriendRequest)
	}
	return request, args.Error(1)
}

func (m *RelationshipRepositoryMock) CompleteRequest(ctx context.Context, requestID, actingUserID int, accept bool) (models.FriendRequest, error) {
	args := m.Called(ctx, requestID, actingUserID, accept)
	var request models.FriendRequest
	if val := args.Get(0); val != nil {
		request = val.(models.FriendRequest)
	}
	return request, args.Error(1)
}

func (m *RelationshipRepositoryMock) ListRequestsForTarget(ctx context.Context, targetID int) ([]models.FriendRequest, error) {
	args := m.Called(ctx, targetID)
	var requests []models.FriendRequest
	if val := args.Get(0); val != nil {
		requests = val.([]models.FriendRequest)
	}
	return requests, args.Error(1)
}

func (m *RelationshipRepositoryMock) AreFriends(ctx context.Context, a, b int) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}

func (m *RelationshipRepositoryMock) RemoveFriend(ctx context.Context, userID, targetID int) error {
	args := m.Called(ctx, userID, targetID)
	return args.Error(0)
}

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) FindOrCreatePrivate(ctx context.Context, userA, userB int) (models.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	var conversation models.Conversation
	if val := args.Get(0); val != nil {
		conversation = val.(models.Conversation)
	}
	return conversation, args.Error(1)
}

func (m *ConversationRepositoryMock) FindPrivate(ctx context.Context, userA, userB int) (models.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	var conversation models.Conversation
	if val := args.Get(0); val != nil {
		conversation = val.(models.Conversation)
	}
	return conversation, args.Error(1)
}

func (m *ConversationRepositoryMock) CreateGroup(ctx context.Context, ownerID int, name string, memberIDs []int) (models.Conversation, error) {
	args := m.Called(ctx, ownerID, name, memberIDs)
	var conversation models.Conversation
	if val := args.Get(0); val != nil {
		conversation = val.(models.Conversation)
	}
	return conversation, args.Error(1)
}

func (m *ConversationRepositoryMock) GetConversation(ctx context.Context, conversationID int) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conversation models.Conversation
	if val := args.Get(0); val != nil {
		conversation = val.(models.Conversation)
	}
	return conversation, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID int) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var conversations []models.Conversation
	if val := args.Get(0); val != nil {
		conversations = val.([]models.Conversation)
	}
	return conversations, args.Error(1)
}

func (m *ConversationRepositoryMock) IsMember(ctx context.Context, conversationID, userID int) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) MemberIDs(ctx context.Context, conversationID int) ([]int, error) {
	args := m.Called(ctx, conversationID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *ConversationRepositoryMock) ReadCursor(ctx context.Context, conversationID, userID int) (time.Time, error) {
	args := m.Called(ctx, conversationID, userID)
	var cursor time.Time
	if val := args.Get(0); val != nil {
		cursor = val.(time.Time)
	}
	return cursor, args.Error(1)
}

func (m *ConversationRepositoryMock) AdvanceReadCursor(ctx context.Context, conversationID, userID int, at time.Time) error {
	args := m.Called(ctx, conversationID, userID, at)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, conversationID, senderID int, content string) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) RecentMessages(ctx context.Context, conversationID, take int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, take)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkPrivateRead(ctx context.Context, conversationID, viewerID int) error {
	args := m.Called(ctx, conversationID, viewerID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) UnreadCountPrivate(ctx context.Context, conversationID, viewerID int) (int, error) {
	args := m.Called(ctx, conversationID, viewerID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) UnreadCountSince(ctx context.Context, conversationID int, since time.Time) (int, error) {
	args := m.Called(ctx, conversationID, since)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) LatestMessage(ctx context.Context, conversationID int) (models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type ChannelRegistryMock struct {
	mock.Mock
}

func (m *ChannelRegistryMock) CreateChannel(ctx context.Context) (push.Channel, error) {
	args := m.Called(ctx)
	var channel push.Channel
	if val := args.Get(0); val != nil {
		channel = val.(push.Channel)
	}
	return channel, args.Error(1)
}

func (m *ChannelRegistryMock) ValidateChannel(ctx context.Context, channelID int, connectKey string) error {
	args := m.Called(ctx, channelID, connectKey)
	return args.Error(0)
}

func (m *ChannelRegistryMock) Push(ctx context.Context, channelID int, payload []byte, persist bool) error {
	args := m.Called(ctx, channelID, payload, persist)
	return args.Error(0)
}

type DispatcherMock struct {
	mock.Mock
}

func (m *DispatcherMock) DispatchNewMessage(ctx context.Context, conversationID int, sender models.User, content string, recipientIDs []int) {
	m.Called(ctx, conversationID, sender, content, recipientIDs)
}

func (m *DispatcherMock) DispatchNewFriendRequest(ctx context.Context, targetID, requesterID int) {
	m.Called(ctx, targetID, requesterID)
}

func (m *DispatcherMock) DispatchFriendAccepted(ctx context.Context, creatorID int) {
	m.Called(ctx, creatorID)
}

func (m *DispatcherMock) DispatchFriendRemoved(ctx context.Context, counterpartID int) {
	m.Called(ctx, counterpartID)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.RelationshipRepository = (*RelationshipRepositoryMock)(nil)
var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ push.ChannelRegistry = (*ChannelRegistryMock)(nil)
