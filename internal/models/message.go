package models

import "time"

// Message is immutable once stored except for the private-conversation read
// flag. Ordering within a conversation is send_time, ties broken by id.
type Message struct {
	ID             int       `db:"id" json:"id"`
	ConversationID int       `db:"conversation_id" json:"conversationId"`
	SenderID       int       `db:"sender_id" json:"senderId"`
	Content        string    `db:"content" json:"content"`
	Read           bool      `db:"read" json:"read"`
	SendTime       time.Time `db:"send_time" json:"sendTime"`
}
