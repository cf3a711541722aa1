package models

import "time"

// Conversation discriminator values.
const (
	ConversationPrivate = "private"
	ConversationGroup   = "group"
)

// Conversation is a tagged union over the private and group variants.
// Private rows carry the ordered member pair; group rows carry the group's own
// display attributes, with membership tracked in group_members.
type Conversation struct {
	ID            int       `db:"id" json:"conversationId"`
	Discriminator string    `db:"discriminator" json:"discriminator"`
	User1ID       *int      `db:"user1_id" json:"-"`
	User2ID       *int      `db:"user2_id" json:"-"`
	GroupName     *string   `db:"group_name" json:"groupName,omitempty"`
	GroupImage    *string   `db:"group_image" json:"groupImage,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// IsPrivate reports whether the conversation is the two-party variant.
func (c Conversation) IsPrivate() bool {
	return c.Discriminator == ConversationPrivate
}

// OtherUserID returns the private counterpart of the viewer.
func (c Conversation) OtherUserID(viewerID int) (int, bool) {
	if !c.IsPrivate() || c.User1ID == nil || c.User2ID == nil {
		return 0, false
	}
	if *c.User1ID == viewerID {
		return *c.User2ID, true
	}
	if *c.User2ID == viewerID {
		return *c.User1ID, true
	}
	return 0, false
}

// GroupMember ties a user to a group conversation together with the read
// cursor marking the boundary before which messages count as read.
type GroupMember struct {
	ConversationID int       `db:"conversation_id" json:"conversationId"`
	UserID         int       `db:"user_id" json:"userId"`
	ReadAt         time.Time `db:"read_at" json:"readAt"`
	JoinedAt       time.Time `db:"joined_at" json:"joinedAt"`
}

// ConversationSummary is the viewer-relative list entry: display fields are
// the other member's attributes for private conversations and the group's own
// attributes otherwise.
type ConversationSummary struct {
	ConversationID    int       `json:"conversationId"`
	Discriminator     string    `json:"discriminator"`
	DisplayName       string    `json:"displayName"`
	DisplayImage      string    `json:"displayImage"`
	LatestMessage     string    `json:"latestMessage"`
	LatestMessageTime time.Time `json:"latestMessageTime"`
	UnreadAmount      int       `json:"unreadAmount"`
	UserID            *int      `json:"userId,omitempty"`
}
