package models

import "time"

// User is the profile record exposed to clients. JSON field names are fixed
// lower-camel-case for client compatibility.
type User struct {
	ID             int       `db:"id" json:"id"`
	NickName       string    `db:"nick_name" json:"nickName"`
	Email          string    `db:"email" json:"email"`
	IconPath       string    `db:"icon_path" json:"iconPath"`
	Bio            string    `db:"bio" json:"bio"`
	CurrentChannel *int      `db:"current_channel" json:"-"`
	ConnectKey     string    `db:"connect_key" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// HasChannel reports whether the user ever initialized a push channel.
func (u User) HasChannel() bool {
	return u.CurrentChannel != nil
}

// Credential is a bearer token issued by the external auth flow.
type Credential struct {
	Value  string `db:"value"`
	UserID int    `db:"user_id"`
}
