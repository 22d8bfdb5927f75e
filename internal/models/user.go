package models

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile is the public part of a user written to users/{uid}.
type Profile struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   int64  `json:"createdAt"`
	Theme       string `json:"theme,omitempty"`
}

// Chat is a pairing between two users stored under chats/{chatId}.
type Chat struct {
	ID           string          `json:"id"`
	Participants map[string]bool `json:"participants"`
	CreatedAt    int64           `json:"createdAt"`
	UpdatedAt    int64           `json:"updatedAt"`
	Partner      *Profile        `json:"partner,omitempty"`
}
