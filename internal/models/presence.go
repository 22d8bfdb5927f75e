package models

// PresenceRecord lives under rooms/{room}/online/{uid} and rooms/{room}/typing/{uid}.
// It is a volatile projection of a live session and is never treated as durable.
type PresenceRecord struct {
	IsOnline    bool   `json:"isOnline"`
	IsTyping    bool   `json:"isTyping"`
	LastUpdated int64  `json:"timestamp"`
	DisplayName string `json:"displayName,omitempty"`
}

type PartnerStatus struct {
	PartnerOnline bool `json:"partner_online"`
	PartnerTyping bool `json:"partner_typing"`
}
