package chat

import (
	"bytes"
	"encoding/json"

	"github.com/pelusa-v/bearboo-letters/internal/codec"
	"github.com/pelusa-v/bearboo-letters/internal/models"
	"github.com/pelusa-v/bearboo-letters/internal/realtime"
)

// MapRecord turns a stored record into a displayable message. It never fails: a
// record that does not decode keeps its slot and shows the placeholder.
func MapRecord(id string, rec models.MessageRecord, selfID, passphrase string, c codec.Codec) models.Message {
	author := rec.Author()
	m := models.Message{
		ID:         id,
		SenderRef:  author,
		SenderName: rec.SenderName,
		Mine:       author != "" && author == selfID,
		RawPayload: rec.Payload(),
		CreatedAt:  rec.Timestamp,
		Read:       rec.Read,
		Kind:       models.ParseKind(rec.Kind),
	}

	plain, err := decode(c, m.RawPayload, passphrase)
	if err != nil {
		m.Plaintext = codec.Placeholder
		m.Unreadable = true
		if m.Kind == models.KindImage {
			m.ImageURL = rec.Attachment
		}
		return m
	}

	env, ok := parseEnvelope(plain)
	if !ok {
		m.Plaintext = plain
		return m
	}
	m.Plaintext = env.Text
	m.ImageURL = env.ImageURL
	m.Activity = env.Activity
	switch {
	case env.Type != "":
		m.Kind = models.ParseKind(string(env.Type))
	case env.Activity != nil:
		m.Kind = models.KindActivity
	case env.ImageURL != "":
		m.Kind = models.KindImage
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = env.Timestamp
	}
	return m
}

func decode(c codec.Codec, token, passphrase string) (string, error) {
	if c == nil || token == "" || passphrase == "" {
		return "", codec.ErrUnreadable
	}
	return c.Decode(token, passphrase)
}

// parseEnvelope accepts only JSON objects; any other decoded text is a plain message.
func parseEnvelope(plain string) (models.Envelope, bool) {
	var env models.Envelope
	b := bytes.TrimSpace([]byte(plain))
	if len(b) == 0 || b[0] != '{' {
		return env, false
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return env, false
	}
	return env, true
}

// MapEntries maps a messages snapshot. Entries whose shape is not a message
// record still produce an unreadable message.
func MapEntries(entries []realtime.Entry, selfID, passphrase string, c codec.Codec) []models.Message {
	out := make([]models.Message, 0, len(entries))
	for _, e := range entries {
		rec, err := realtime.Decode[models.MessageRecord](e.Value)
		if err != nil {
			out = append(out, models.Message{
				ID:         e.Key,
				CreatedAt:  realtime.Int64(e.Value, "timestamp"),
				Plaintext:  codec.Placeholder,
				Kind:       models.KindText,
				Unreadable: true,
			})
			continue
		}
		out = append(out, MapRecord(e.Key, rec, selfID, passphrase, c))
	}
	return out
}

// NewRecord encodes an envelope into the record stored for a new message.
func NewRecord(env models.Envelope, self Identity, passphrase string, c codec.Codec) (models.MessageRecord, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return models.MessageRecord{}, err
	}
	token, err := c.Encode(string(b), passphrase)
	if err != nil {
		return models.MessageRecord{}, err
	}
	kind := env.Type
	if kind == "" {
		kind = models.KindText
	}
	return models.MessageRecord{
		Encrypted:  token,
		SenderID:   self.ID,
		SenderName: self.DisplayName,
		Timestamp:  env.Timestamp,
		Read:       false,
		Kind:       string(kind),
	}, nil
}
