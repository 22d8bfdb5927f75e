package activities

import (
	"math/rand"
	"strings"
	"time"

	"github.com/pelusa-v/bearboo-letters/internal/apperr"
	"github.com/pelusa-v/bearboo-letters/internal/models"
)

// busyThreshold is how many messages in the last day make a conversation busy.
const busyThreshold = 5

var (
	ErrUnknownCategory = apperr.InvalidArg("Please choose one of the message categories.")
	ErrUnknownMood     = apperr.InvalidArg("Please choose one of the moods.")
)

type MessageCategory struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Emoji    string   `yaml:"emoji" json:"emoji"`
	Messages []string `yaml:"messages" json:"messages,omitempty"`
}

// ContextLines are appended to a category's messages when the conversation
// fits them. Partner carries a {partner} placeholder.
type ContextLines struct {
	Busy    []string `yaml:"busy"`
	Partner string   `yaml:"partner"`
	Night   string   `yaml:"night"`
	Morning string   `yaml:"morning"`
	Photos  string   `yaml:"photos"`
}

// Conversation is what the suggestions know about a room. Clients build it
// from their decoded messages, so the server never needs the plaintext.
type Conversation struct {
	Partner string `json:"partner"`
	Recent  int    `json:"recent"` // messages in the last 24 hours
	Photos  bool   `json:"photos"`
	Hour    int    `json:"hour"` // local hour of day, 0-23
}

// ConversationOf summarises msgs as seen at now. The partner's name comes
// from their earliest message that carries one.
func ConversationOf(msgs []models.Message, now time.Time) Conversation {
	c := Conversation{Hour: now.Hour()}
	since := now.Add(-24 * time.Hour).UnixMilli()
	for _, m := range msgs {
		if m.CreatedAt > since {
			c.Recent++
		}
		if m.Kind == models.KindImage {
			c.Photos = true
		}
		if !m.Mine && c.Partner == "" {
			c.Partner = strings.TrimSpace(m.SenderName)
		}
	}
	return c
}

func (c Conversation) night() bool   { return c.Hour >= 20 || c.Hour < 6 }
func (c Conversation) morning() bool { return c.Hour >= 6 && c.Hour < 12 }

func findCategory(cats []MessageCategory, id string) (MessageCategory, bool) {
	for _, c := range cats {
		if c.ID == id {
			return c, true
		}
	}
	return MessageCategory{}, false
}

func listing(cats []MessageCategory) []MessageCategory {
	out := make([]MessageCategory, len(cats))
	for i, c := range cats {
		out[i] = MessageCategory{ID: c.ID, Name: c.Name, Emoji: c.Emoji}
	}
	return out
}

// SuggestionCategories lists the categories without their messages.
func (b *Bank) SuggestionCategories() []MessageCategory { return listing(b.MessageCategories) }

// MoodList lists the moods without their messages.
func (b *Bank) MoodList() []MessageCategory { return listing(b.Moods) }

// Suggestions returns the category's messages plus the context lines the
// conversation calls for, shuffled with seed.
func (b *Bank) Suggestions(category string, conv Conversation, seed int64) ([]string, error) {
	cat, ok := findCategory(b.MessageCategories, category)
	if !ok {
		return nil, ErrUnknownCategory
	}
	out := append([]string(nil), cat.Messages...)
	lines := b.ContextLines

	if category == "love" || category == "flirty" {
		if conv.Recent > busyThreshold {
			out = append(out, lines.Busy...)
		}
		if conv.Partner != "" && lines.Partner != "" {
			out = append(out, strings.ReplaceAll(lines.Partner, "{partner}", conv.Partner))
		}
	}
	if conv.night() && category != "goodnight" && lines.Night != "" {
		out = append(out, lines.Night)
	}
	if conv.morning() && category != "goodmorning" && lines.Morning != "" {
		out = append(out, lines.Morning)
	}
	if conv.Photos && (category == "love" || category == "flirty") && lines.Photos != "" {
		out = append(out, lines.Photos)
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}

// MoodMessages returns the fixed messages for a mood.
func (b *Bank) MoodMessages(mood string) ([]string, error) {
	m, ok := findCategory(b.Moods, mood)
	if !ok {
		return nil, ErrUnknownMood
	}
	return append([]string(nil), m.Messages...), nil
}
