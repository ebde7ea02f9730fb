package models

import "time"

// Message is an append-only note between two users. Only Read ever changes.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	Read       bool      `json:"read"`
}

// Counterpart returns the other participant of m from userID's point of view.
func (m Message) Counterpart(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Conversation summarises the messages exchanged with one counterpart.
type Conversation struct {
	CounterpartID string  `json:"counterpart_id"`
	Counterpart   *User   `json:"counterpart,omitempty"`
	LastMessage   Message `json:"last_message"`
	Unread        int     `json:"unread"`
}

// Page is one range of a larger result set.
type Page[T any] struct {
	Items    []T `json:"items"`
	Count    int `json:"count"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}
