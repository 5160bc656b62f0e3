// Package models contains types shared across the application packages.
package models

import "time"

// User is the profile returned by the identity provider after a successful
// OAuth exchange.
type User struct {
	ID        uint64 `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Session pairs a logged-in user with the server-side session record.
type Session struct {
	ID        string
	User      User
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ChatMessage is a single message in a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
