package models

import "time"

// AnonymousName is the display name assigned to connections that join
// without a valid credential.
const AnonymousName = "Anonymous User"

// Identity describes the caller behind one websocket connection. It is
// resolved once at connection time and reused for every event the
// connection sends.
type Identity struct {
	ConnectionID    string `json:"socketId"`
	UserID          string `json:"userId,omitempty"`
	DisplayName     string `json:"name"`
	Email           string `json:"email,omitempty"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// Key returns the identifier used to deduplicate presence rows: the
// stable user ID for authenticated callers, the connection ID otherwise.
func (i Identity) Key() string {
	if i.IsAuthenticated && i.UserID != "" {
		return i.UserID
	}
	return i.ConnectionID
}

// Presence is one member's row in a room's live member list.
type Presence struct {
	ConnectionID    string    `json:"socketId"`
	UserID          string    `json:"userId,omitempty"`
	Name            string    `json:"name"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	JoinedAt        time.Time `json:"joinedAt"`
}

// ChatMessage is a single relayed chat message. Messages are immutable
// once created.
type ChatMessage struct {
	ID              uint      `json:"-" gorm:"primaryKey"`
	Room            string    `json:"room" gorm:"index"`
	Author          string    `json:"user"`
	AuthorID        string    `json:"userId,omitempty"`
	Text            string    `json:"text"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	CreatedAt       time.Time `json:"createdAt"`
}

// RoomRecord is the durable room document. It is authoritative for room
// existence; live state in the registry is authoritative for who is
// actually connected.
type RoomRecord struct {
	ID         uint       `json:"-" gorm:"primaryKey"`
	Name       string     `json:"name" gorm:"uniqueIndex"`
	Host       string     `json:"host"`
	Members    []Presence `json:"users" gorm:"serializer:json"`
	IsPublic   bool       `json:"isPublic"`
	Password   string     `json:"-"` // bcrypt hash, empty for public rooms
	CreatedAt  time.Time  `json:"createdAt"`
	LastActive time.Time  `json:"lastActive"`
}

// User is a registered account used by the HTTP auth API. Anonymous
// websocket connections never touch this table.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name"`
	Email        string    `json:"email" gorm:"uniqueIndex"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
