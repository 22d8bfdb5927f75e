package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelusa-v/bearboo-letters/internal/codec"
	"github.com/pelusa-v/bearboo-letters/internal/models"
	"github.com/pelusa-v/bearboo-letters/internal/realtime"
)

func encodeEnvelope(t *testing.T, env models.Envelope, pass string) string {
	t.Helper()
	b, err := json.Marshal(env)
	require.NoError(t, err)
	tok, err := codec.Base64{}.Encode(string(b), pass)
	require.NoError(t, err)
	return tok
}

func TestMapRecordEnvelope(t *testing.T) {
	tok := encodeEnvelope(t, models.Envelope{Text: "Hello 💖", Type: models.KindText}, "pw")
	rec := models.MessageRecord{Encrypted: tok, SenderID: "alice", SenderName: "Alice", Timestamp: 100}

	mine := MapRecord("m1", rec, "alice", "pw", codec.Base64{})
	assert.True(t, mine.Mine)
	assert.Equal(t, "Hello 💖", mine.Plaintext)
	assert.Equal(t, models.KindText, mine.Kind)
	assert.Equal(t, int64(100), mine.CreatedAt)
	assert.Equal(t, tok, mine.RawPayload)

	theirs := MapRecord("m1", rec, "bob", "pw", codec.Base64{})
	assert.False(t, theirs.Mine)
	assert.Equal(t, "alice", theirs.SenderRef)
}

func TestMapRecordRawText(t *testing.T) {
	tok, _ := codec.Base64{}.Encode("just words", "pw")
	m := MapRecord("m1", models.MessageRecord{Encrypted: tok, SenderID: "a"}, "b", "pw", codec.Base64{})
	assert.Equal(t, "just words", m.Plaintext)
	assert.False(t, m.Unreadable)
}

func TestMapRecordWrongPassphrase(t *testing.T) {
	tok := encodeEnvelope(t, models.Envelope{Text: "secret"}, "pw")
	rec := models.MessageRecord{Encrypted: tok, SenderID: "a", Kind: "image", Attachment: "data:image/png;base64,AAAA"}

	m := MapRecord("m1", rec, "b", "nope", codec.Base64{})
	assert.True(t, m.Unreadable)
	assert.Equal(t, codec.Placeholder, m.Plaintext)
	assert.Equal(t, models.KindImage, m.Kind)
	assert.Equal(t, rec.Attachment, m.ImageURL)

	m = MapRecord("m1", rec, "b", "", codec.Base64{})
	assert.True(t, m.Unreadable)
}

func TestMapRecordLegacyFields(t *testing.T) {
	// older clients stored the whole message object as the envelope
	legacy := `{"text":"hi bear","sender":"me","timestamp":77,"read":false,"encrypted":""}`
	tok, _ := codec.Base64{}.Encode(legacy, "pw")
	m := MapRecord("m1", models.MessageRecord{EncryptedData: tok, SenderUID: "a"}, "b", "pw", codec.Base64{})
	assert.Equal(t, "hi bear", m.Plaintext)
	assert.Equal(t, "a", m.SenderRef)
	assert.Equal(t, int64(77), m.CreatedAt)
}

func TestMapRecordActivity(t *testing.T) {
	act := &models.Activity{Type: models.ActivityAffirmation, Payload: json.RawMessage(`{"text":"You are loved"}`)}
	tok := encodeEnvelope(t, models.Envelope{Text: "for you", Activity: act}, "pw")
	m := MapRecord("m1", models.MessageRecord{Encrypted: tok}, "b", "pw", codec.Base64{})
	assert.Equal(t, models.KindActivity, m.Kind)
	require.NotNil(t, m.Activity)
	assert.Equal(t, models.ActivityAffirmation, m.Activity.Type)
}

func TestMapEntriesKeepsMalformedSlots(t *testing.T) {
	tok := encodeEnvelope(t, models.Envelope{Text: "ok"}, "pw")
	msgs := MapEntries([]realtime.Entry{
		{Key: "1", Value: realtime.Value{"encrypted": tok, "senderId": "a", "timestamp": float64(1)}},
		{Key: "2", Value: realtime.Value{"timestamp": "not a number"}},
	}, "b", "pw", codec.Base64{})
	require.Len(t, msgs, 2)
	assert.Equal(t, "ok", msgs[0].Plaintext)
	assert.True(t, msgs[1].Unreadable)
	assert.Equal(t, codec.Placeholder, msgs[1].Plaintext)
}

func TestNewRecordRoundTrip(t *testing.T) {
	for _, c := range []codec.Codec{codec.Base64{}, codec.URI{}, codec.NewSealed(codec.Base64{})} {
		t.Run(c.Name(), func(t *testing.T) {
			rec, err := NewRecord(models.Envelope{Text: "Hello 💖", Timestamp: 5}, Identity{ID: "a", DisplayName: "A"}, "pw", c)
			require.NoError(t, err)
			assert.Equal(t, "text", rec.Kind)

			m := MapRecord("x", rec, "b", "pw", c)
			assert.Equal(t, "Hello 💖", m.Plaintext)
			assert.Equal(t, int64(5), m.CreatedAt)
		})
	}
}
