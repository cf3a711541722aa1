package push

import "strconv"

// EventType discriminates push payloads.
type EventType string

const (
	EventNewMessage       EventType = "NewMessage"
	EventNewFriendRequest EventType = "NewFriendRequest"
	EventFriendAccepted   EventType = "FriendAccepted"
	EventFriendRemoved    EventType = "FriendRemoved"
)

// UserSummary is the sender view embedded in NewMessage events.
type UserSummary struct {
	ID       int    `json:"id"`
	NickName string `json:"nickName"`
	IconPath string `json:"iconPath"`
}

// Event is the wire payload pushed to client channels. The field names are
// part of the client contract and stay lower-camel-case regardless of Go
// conventions.
type Event struct {
	Type           EventType    `json:"type"`
	ConversationID *int         `json:"conversationId,omitempty"`
	Sender         *UserSummary `json:"sender,omitempty"`
	Content        *string      `json:"content,omitempty"`
	RequesterID    *string      `json:"requesterId,omitempty"`
}

// NewMessageEvent carries the minimal data a client needs to render an
// incoming message.
func NewMessageEvent(conversationID int, sender UserSummary, content string) Event {
	return Event{
		Type:           EventNewMessage,
		ConversationID: &conversationID,
		Sender:         &sender,
		Content:        &content,
	}
}

// NewFriendRequestEvent tells the target who is asking.
func NewFriendRequestEvent(requesterID int) Event {
	requester := strconv.Itoa(requesterID)
	return Event{
		Type:        EventNewFriendRequest,
		RequesterID: &requester,
	}
}

// FriendAcceptedEvent notifies the request creator.
func FriendAcceptedEvent() Event {
	return Event{Type: EventFriendAccepted}
}

// FriendRemovedEvent notifies the removed counterpart.
func FriendRemovedEvent() Event {
	return Event{Type: EventFriendRemoved}
}
