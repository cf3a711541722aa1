package models

import "time"

// FriendRequest is created once and completed at most once; completed
// requests are never deleted.
type FriendRequest struct {
	ID         int       `db:"id" json:"id"`
	CreatorID  int       `db:"creator_id" json:"creatorId"`
	TargetID   int       `db:"target_id" json:"targetId"`
	CreateTime time.Time `db:"create_time" json:"createTime"`
	Completed  bool      `db:"completed" json:"completed"`
	Accepted   bool      `db:"accepted" json:"accepted"`
}

// Friendship is an undirected edge stored with user1_id < user2_id.
type Friendship struct {
	User1ID   int       `db:"user1_id" json:"user1Id"`
	User2ID   int       `db:"user2_id" json:"user2Id"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NormalizePair orders a user pair so every undirected edge has exactly one
// canonical row.
func NormalizePair(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}
