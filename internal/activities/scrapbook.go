package activities

import "github.com/pelusa-v/bearboo-letters/internal/models"

type Memory struct {
	ID        string `json:"id"`
	ImageURL  string `json:"imageUrl"`
	Caption   string `json:"caption"`
	Sender    string `json:"sender"`
	Timestamp int64  `json:"timestamp"`
	Title     string `json:"title,omitempty"`
}

// Scrapbook collects the readable image messages of a conversation, oldest
// first, keeping the first message for each distinct image.
func Scrapbook(msgs []models.Message) []Memory {
	seen := map[string]bool{}
	var out []Memory
	for _, m := range msgs {
		if m.Kind != models.KindImage || m.Unreadable || m.ImageURL == "" || seen[m.ImageURL] {
			continue
		}
		seen[m.ImageURL] = true
		sender := m.SenderName
		if sender == "" {
			sender = m.SenderRef
		}
		out = append(out, Memory{
			ID:        m.ID,
			ImageURL:  m.ImageURL,
			Caption:   m.Plaintext,
			Sender:    sender,
			Timestamp: m.CreatedAt,
		})
	}
	return out
}
