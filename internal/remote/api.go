package remote

import (
	"context"
	"net/url"
	"strconv"

	"github.com/valyala/fasthttp"

	"github.com/pelusa-v/bearboo-letters/internal/activities"
	"github.com/pelusa-v/bearboo-letters/internal/models"
)

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, fasthttp.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

type Pairing struct {
	ChatID string `json:"chatId"`
	Room   string `json:"room"`
}

func (c *Client) Pair(ctx context.Context, partnerID string) (*Pairing, error) {
	var p Pairing
	if err := c.do(ctx, fasthttp.MethodPost, "/api/chats/pair", map[string]string{"partnerId": partnerID}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Chats(ctx context.Context) ([]models.Chat, error) {
	var out []models.Chat
	err := c.do(ctx, fasthttp.MethodGet, "/api/chats", nil, &out)
	return out, err
}

func (c *Client) SetTheme(ctx context.Context, theme string) (string, error) {
	var out struct {
		Theme string `json:"theme"`
	}
	err := c.do(ctx, fasthttp.MethodPut, "/api/prefs/theme", map[string]string{"theme": theme}, &out)
	return out.Theme, err
}

func (c *Client) Questions(ctx context.Context, partner string, count int) (*activities.Quiz, error) {
	q := url.Values{"partner": {partner}, "count": {strconv.Itoa(count)}}
	var out activities.Quiz
	if err := c.do(ctx, fasthttp.MethodGet, "/api/activities/questions?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Affirmation(ctx context.Context) (*activities.Affirmation, error) {
	var out activities.Affirmation
	if err := c.do(ctx, fasthttp.MethodGet, "/api/activities/affirmation", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Codec(ctx context.Context) (string, error) {
	var out struct {
		Codec string `json:"codec"`
	}
	err := c.do(ctx, fasthttp.MethodGet, "/api/config", nil, &out)
	return out.Codec, err
}

// Suggestions asks for messages in category, tuned to conv.
func (c *Client) Suggestions(ctx context.Context, category string, conv activities.Conversation) ([]string, error) {
	q := url.Values{
		"category": {category},
		"partner":  {conv.Partner},
		"recent":   {strconv.Itoa(conv.Recent)},
		"photos":   {strconv.FormatBool(conv.Photos)},
		"hour":     {strconv.Itoa(conv.Hour)},
	}
	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	err := c.do(ctx, fasthttp.MethodGet, "/api/activities/suggestions?"+q.Encode(), nil, &out)
	return out.Suggestions, err
}

func (c *Client) MoodSuggestions(ctx context.Context, mood string) ([]string, error) {
	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	err := c.do(ctx, fasthttp.MethodGet, "/api/activities/suggestions?"+url.Values{"mood": {mood}}.Encode(), nil, &out)
	return out.Suggestions, err
}
