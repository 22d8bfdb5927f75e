package models

import "encoding/json"

type Kind string

const (
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindActivity Kind = "sharedActivity"
)

// ParseKind maps stored type tags onto a Kind. Unknown or empty tags are text.
func ParseKind(s string) Kind {
	switch s {
	case string(KindImage), "memory":
		return KindImage
	case string(KindActivity), "activity":
		return KindActivity
	default:
		return KindText
	}
}

// Message is one decoded chat entry as the view sees it.
type Message struct {
	ID         string    `json:"id"`
	SenderRef  string    `json:"sender_ref"`
	SenderName string    `json:"sender_name,omitempty"`
	Mine       bool      `json:"mine"`
	RawPayload string    `json:"-"`
	Plaintext  string    `json:"text"`
	CreatedAt  int64     `json:"created_at"` // ms, client clock
	Read       bool      `json:"read"`
	Kind       Kind      `json:"kind"`
	ImageURL   string    `json:"image_url,omitempty"`
	Activity   *Activity `json:"activity,omitempty"`
	Unreadable bool      `json:"unreadable,omitempty"`
}

// MessageRecord is the shape persisted under rooms/{room}/messages/{id}.
// Kind and Attachment may be stored in the clear next to the encoded payload.
type MessageRecord struct {
	Encrypted     string `json:"encrypted,omitempty"`
	EncryptedData string `json:"encryptedData,omitempty"` // older clients
	SenderID      string `json:"senderId,omitempty"`
	SenderUID     string `json:"senderUid,omitempty"` // older clients
	SenderName    string `json:"senderName,omitempty"`
	Timestamp     int64  `json:"timestamp"`
	Read          bool   `json:"read"`
	Kind          string `json:"kind,omitempty"`
	Attachment    string `json:"attachment,omitempty"`
}

func (r MessageRecord) Payload() string {
	if r.Encrypted != "" {
		return r.Encrypted
	}
	return r.EncryptedData
}

func (r MessageRecord) Author() string {
	if r.SenderID != "" {
		return r.SenderID
	}
	return r.SenderUID
}

// Envelope is the JSON document that gets encoded with the passphrase.
type Envelope struct {
	Text      string    `json:"text"`
	Type      Kind      `json:"type,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Activity  *Activity `json:"activity,omitempty"`
	Timestamp int64     `json:"timestamp,omitempty"`
}

type ActivityType string

const (
	ActivityQuiz        ActivityType = "quiz"
	ActivityScrapbook   ActivityType = "scrapbook"
	ActivityDatePlan    ActivityType = "datePlan"
	ActivityAnniversary ActivityType = "anniversary"
	ActivityAffirmation ActivityType = "affirmation"
)

// Activity is the structured attachment of a sharedActivity message.
type Activity struct {
	Type    ActivityType    `json:"activity"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
