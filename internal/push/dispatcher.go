package push

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

// UserSource resolves recipients to their channel state.
type UserSource interface {
	GetUser(ctx context.Context, userID int) (models.User, error)
}

// EventPublisher mirrors dispatched events onto the AMQP exchange for
// downstream consumers. Failures are swallowed like push failures.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

const (
	defaultPushTimeout = 5 * time.Second
	defaultFanOutLimit = 8
)

// Dispatcher builds typed events and fans them out to recipient channels.
// Dispatch happens strictly after the triggering state mutation committed;
// delivery failures are logged and never surfaced to the caller.
type Dispatcher struct {
	registry    ChannelRegistry
	users       UserSource
	publisher   EventPublisher
	pushTimeout time.Duration
	fanOutLimit int
}

// NewDispatcher constructs a Dispatcher. publisher may be nil when no AMQP
// mirror is configured.
func NewDispatcher(registry ChannelRegistry, users UserSource, publisher EventPublisher) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		users:       users,
		publisher:   publisher,
		pushTimeout: defaultPushTimeout,
		fanOutLimit: defaultFanOutLimit,
	}
}

// DispatchNewMessage fans a message event out to every recipient. Callers
// exclude the sender from recipientIDs.
func (d *Dispatcher) DispatchNewMessage(ctx context.Context, conversationID int, sender models.User, content string, recipientIDs []int) {
	event := NewMessageEvent(conversationID, UserSummary{ID: sender.ID, NickName: sender.NickName, IconPath: sender.IconPath}, content)
	d.fanOut(ctx, event, "push_events.new_message", recipientIDs)
}

// DispatchNewFriendRequest notifies the request target.
func (d *Dispatcher) DispatchNewFriendRequest(ctx context.Context, targetID, requesterID int) {
	d.fanOut(ctx, NewFriendRequestEvent(requesterID), "push_events.new_friend_request", []int{targetID})
}

// DispatchFriendAccepted notifies the request creator.
func (d *Dispatcher) DispatchFriendAccepted(ctx context.Context, creatorID int) {
	d.fanOut(ctx, FriendAcceptedEvent(), "push_events.friend_accepted", []int{creatorID})
}

// DispatchFriendRemoved notifies the removed counterpart.
func (d *Dispatcher) DispatchFriendRemoved(ctx context.Context, counterpartID int) {
	d.fanOut(ctx, FriendRemovedEvent(), "push_events.friend_removed", []int{counterpartID})
}

// fanOut delivers one logical event to each recipient independently with
// bounded parallelism and joins before returning. One recipient failing never
// blocks the others.
func (d *Dispatcher) fanOut(ctx context.Context, event Event, routingKey string, recipientIDs []int) {
	payload, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).WithField("event_type", event.Type).Error("push event marshal failed")
		return
	}

	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, routingKey, event); err != nil {
			logrus.WithError(err).WithField("routing_key", routingKey).Warn("event mirror publish failed")
		}
	}

	var g errgroup.Group
	g.SetLimit(d.fanOutLimit)
	for _, recipientID := range recipientIDs {
		recipientID := recipientID
		g.Go(func() error {
			d.deliver(ctx, recipientID, event.Type, payload)
			return nil
		})
	}
	g.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, recipientID int, eventType EventType, payload []byte) {
	user, err := d.users.GetUser(ctx, recipientID)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"recipient_id": recipientID,
			"event_type":   eventType,
		}).Warn("push recipient lookup failed")
		observability.IncPushOutcome(string(eventType), "lookup_failed")
		return
	}

	// A user without a channel never initialized push; skip silently. Legacy
	// rows store NoChannel instead of NULL.
	if !user.HasChannel() || *user.CurrentChannel == NoChannel {
		observability.IncPushOutcome(string(eventType), "skipped_no_channel")
		return
	}

	pushCtx, cancel := context.WithTimeout(ctx, d.pushTimeout)
	defer cancel()

	if err := d.registry.Push(pushCtx, *user.CurrentChannel, payload, true); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"recipient_id": recipientID,
			"channel_id":   *user.CurrentChannel,
			"event_type":   eventType,
		}).Warn("push delivery failed")
		observability.IncPushOutcome(string(eventType), "failed")
		return
	}
	observability.IncPushOutcome(string(eventType), "delivered")
}
