package push

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
)

func TestEnsureChannelReusesValidChannel(t *testing.T) {
	registry := new(registryMock)
	users := new(userMock)
	p := NewProvisioner(registry, users)

	users.On("GetUser", mock.Anything, 1).Return(channelUser(1, 7), nil).Once()
	registry.On("ValidateChannel", mock.Anything, 7, "k").Return(nil).Once()

	channel, err := p.EnsureChannel(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, Channel{ID: 7, ConnectKey: "k"}, channel)

	registry.AssertNotCalled(t, "CreateChannel", mock.Anything)
	users.AssertNotCalled(t, "UpdateChannel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureChannelReplacesInvalidChannel(t *testing.T) {
	registry := new(registryMock)
	users := new(userMock)
	p := NewProvisioner(registry, users)

	users.On("GetUser", mock.Anything, 1).Return(channelUser(1, 7), nil).Once()
	registry.On("ValidateChannel", mock.Anything, 7, "k").Return(models.ErrNotFound).Once()
	registry.On("CreateChannel", mock.Anything).Return(Channel{ID: 8, ConnectKey: "k2"}, nil).Once()
	users.On("UpdateChannel", mock.Anything, 1, 8, "k2").Return(nil).Once()

	channel, err := p.EnsureChannel(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, Channel{ID: 8, ConnectKey: "k2"}, channel)

	registry.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestEnsureChannelFirstTime(t *testing.T) {
	registry := new(registryMock)
	users := new(userMock)
	p := NewProvisioner(registry, users)

	users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1}, nil).Once()
	registry.On("CreateChannel", mock.Anything).Return(Channel{ID: 3, ConnectKey: "k3"}, nil).Once()
	users.On("UpdateChannel", mock.Anything, 1, 3, "k3").Return(nil).Once()

	channel, err := p.EnsureChannel(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, channel.ID)

	registry.AssertNotCalled(t, "ValidateChannel", mock.Anything, mock.Anything, mock.Anything)
	registry.AssertExpectations(t)
}

type fakeChannelStore struct {
	mu   sync.Mutex
	user models.User
}

func (s *fakeChannelStore) GetUser(ctx context.Context, userID int) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, nil
}

func (s *fakeChannelStore) UpdateChannel(ctx context.Context, userID int, channelID int, connectKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user.CurrentChannel = &channelID
	s.user.ConnectKey = connectKey
	return nil
}

type fakeRegistry struct {
	mu       sync.Mutex
	created  int
	channels map[int]string
}

func (r *fakeRegistry) CreateChannel(ctx context.Context) (Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channels == nil {
		r.channels = make(map[int]string)
	}
	r.created++
	key := "key-" + strconv.Itoa(r.created)
	r.channels[r.created] = key
	return Channel{ID: r.created, ConnectKey: key}, nil
}

func (r *fakeRegistry) ValidateChannel(ctx context.Context, channelID int, connectKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key, ok := r.channels[channelID]; ok && key == connectKey {
		return nil
	}
	return fmt.Errorf("channel %d: %w", channelID, models.ErrNotFound)
}

func (r *fakeRegistry) Push(ctx context.Context, channelID int, payload []byte, persist bool) error {
	return nil
}

func TestEnsureChannelConcurrentSingleProvision(t *testing.T) {
	registry := &fakeRegistry{}
	store := &fakeChannelStore{user: models.User{ID: 1}}
	p := NewProvisioner(registry, store)

	var wg sync.WaitGroup
	results := make([]Channel, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			channel, err := p.EnsureChannel(context.Background(), 1)
			assert.NoError(t, err)
			results[i] = channel
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, registry.created)
	for _, channel := range results {
		assert.Equal(t, results[0], channel)
	}
}
