package push

import (
	"context"
	"sync"

	"messenger-service/internal/models"
)

// UserChannelStore reads and writes a user's channel id and connect key. The
// provisioner is the only legitimate writer of those fields.
type UserChannelStore interface {
	GetUser(ctx context.Context, userID int) (models.User, error)
	UpdateChannel(ctx context.Context, userID int, channelID int, connectKey string) error
}

// Provisioner serializes channel provisioning per user so two concurrent
// InitPusher calls never issue duplicate channels.
type Provisioner struct {
	registry ChannelRegistry
	users    UserChannelStore

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// NewProvisioner constructs a Provisioner.
func NewProvisioner(registry ChannelRegistry, users UserChannelStore) *Provisioner {
	return &Provisioner{
		registry: registry,
		users:    users,
		locks:    make(map[int]*sync.Mutex),
	}
}

// EnsureChannel returns the user's current channel, provisioning a new one
// when none exists or the stored one no longer validates. The whole
// read-validate-or-create sequence holds the per-user lock.
func (p *Provisioner) EnsureChannel(ctx context.Context, userID int) (Channel, error) {
	lock := p.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := p.users.GetUser(ctx, userID)
	if err != nil {
		return Channel{}, err
	}

	// Rows migrated from older deployments store NoChannel instead of NULL.
	if user.HasChannel() && *user.CurrentChannel != NoChannel {
		if err := p.registry.ValidateChannel(ctx, *user.CurrentChannel, user.ConnectKey); err == nil {
			return Channel{ID: *user.CurrentChannel, ConnectKey: user.ConnectKey}, nil
		}
	}

	channel, err := p.registry.CreateChannel(ctx)
	if err != nil {
		return Channel{}, err
	}
	if err := p.users.UpdateChannel(ctx, userID, channel.ID, channel.ConnectKey); err != nil {
		return Channel{}, err
	}
	return channel, nil
}

func (p *Provisioner) userLock(userID int) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[userID] = lock
	}
	return lock
}
