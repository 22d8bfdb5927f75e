package activities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelusa-v/bearboo-letters/internal/apperr"
	"github.com/pelusa-v/bearboo-letters/internal/models"
)

func TestConversationOf(t *testing.T) {
	now := time.Date(2026, 2, 14, 21, 30, 0, 0, time.UTC)
	msgs := []models.Message{
		{Mine: true, SenderName: "Ana", CreatedAt: now.Add(-48 * time.Hour).UnixMilli()},
		{SenderName: " Bo ", CreatedAt: now.Add(-2 * time.Hour).UnixMilli(), Kind: models.KindImage},
		{SenderName: "Someone else", CreatedAt: now.Add(-time.Hour).UnixMilli()},
	}
	c := ConversationOf(msgs, now)
	assert.Equal(t, Conversation{Partner: "Bo", Recent: 2, Photos: true, Hour: 21}, c)
}

func TestSuggestionsAddContextLines(t *testing.T) {
	b := Default()
	base, ok := findCategory(b.MessageCategories, "love")
	require.True(t, ok)
	lines := b.ContextLines

	tests := []struct {
		name     string
		category string
		conv     Conversation
		extra    []string
	}{
		{"quiet afternoon", "love", Conversation{Hour: 15}, nil},
		{"busy chat with a partner", "love", Conversation{Partner: "Bo", Recent: 6, Hour: 15},
			append(append([]string{}, lines.Busy...), "Bo, you're the love of my life ❤️")},
		{"exactly five is not busy", "love", Conversation{Recent: 5, Hour: 15}, nil},
		{"night", "love", Conversation{Hour: 23}, []string{lines.Night}},
		{"early hours count as night", "love", Conversation{Hour: 5}, []string{lines.Night}},
		{"morning", "love", Conversation{Hour: 6}, []string{lines.Morning}},
		{"photos", "love", Conversation{Photos: true, Hour: 15}, []string{lines.Photos}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Suggestions(tt.category, tt.conv, 1)
			require.NoError(t, err)
			want := append(append([]string{}, base.Messages...), tt.extra...)
			assert.ElementsMatch(t, want, got)
		})
	}
}

func TestSuggestionsSkipLinesForOtherCategories(t *testing.T) {
	b := Default()
	conv := Conversation{Partner: "Bo", Recent: 20, Photos: true, Hour: 22}

	night, err := b.Suggestions("goodnight", conv, 1)
	require.NoError(t, err)
	goodnight, _ := findCategory(b.MessageCategories, "goodnight")
	assert.ElementsMatch(t, goodnight.Messages, night, "no partner, busy, photo or bedtime lines")

	support, err := b.Suggestions("support", conv, 1)
	require.NoError(t, err)
	assert.Contains(t, support, b.ContextLines.Night)
	assert.NotContains(t, support, b.ContextLines.Photos)

	morning, err := b.Suggestions("goodmorning", Conversation{Hour: 8}, 1)
	require.NoError(t, err)
	assert.NotContains(t, morning, b.ContextLines.Morning)
}

func TestSuggestionsShuffleIsSeeded(t *testing.T) {
	b := Default()
	conv := Conversation{Hour: 15}
	first, err := b.Suggestions("miss", conv, 42)
	require.NoError(t, err)
	again, err := b.Suggestions("miss", conv, 42)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	miss, _ := findCategory(b.MessageCategories, "miss")
	first[0] = "changed"
	assert.NotEqual(t, "changed", miss.Messages[0], "the bank is not shared with callers")
}

func TestSuggestionErrors(t *testing.T) {
	b := Default()
	_, err := b.Suggestions("grumpy", Conversation{}, 1)
	assert.ErrorIs(t, err, ErrUnknownCategory)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))

	_, err = b.MoodMessages("grumpy")
	assert.ErrorIs(t, err, ErrUnknownMood)
}

func TestMoods(t *testing.T) {
	b := Default()
	ids := []string{}
	for _, m := range b.MoodList() {
		ids = append(ids, m.ID)
		assert.Empty(t, m.Messages)
		assert.NotEmpty(t, m.Emoji)
	}
	assert.Equal(t, []string{"love", "miss", "happy", "flirty", "support", "thankful"}, ids)

	msgs, err := b.MoodMessages("thankful")
	require.NoError(t, err)
	assert.Len(t, msgs, 6)
	assert.Equal(t, "Thank you for always being there for me 🙏", msgs[0])

	assert.Len(t, b.SuggestionCategories(), 6)
}
