package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pelusa-v/bearboo-letters/internal/apperr"
	"github.com/pelusa-v/bearboo-letters/internal/models"
	"github.com/pelusa-v/bearboo-letters/internal/realtime"
	"github.com/pelusa-v/bearboo-letters/internal/refs"
)

type pairRequest struct {
	PartnerID string `json:"partnerId"`
}

// PairHandler POST /api/chats/pair
func (h *Handler) PairHandler(c *fiber.Ctx) error {
	u := currentUser(c)
	var req pairRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	partnerID := strings.TrimSpace(req.PartnerID)
	if partnerID == "" || partnerID == u.ID {
		return h.fail(c, apperr.InvalidArg("choose someone else to chat with"))
	}
	ctx := c.UserContext()
	if _, err := h.auth.Profile(ctx, partnerID); err != nil {
		return h.fail(c, err)
	}

	chatID := refs.ChatID(u.ID, partnerID)
	now := h.now().UnixMilli()
	_, exists, err := h.store.Get(ctx, refs.Chat(chatID))
	if err != nil {
		return h.fail(c, apperr.ErrStoreFailure(err))
	}
	patch := realtime.Value{"updatedAt": now}
	if !exists {
		patch = realtime.Value{
			"participants": map[string]any{u.ID: true, partnerID: true},
			"createdAt":    now,
			"updatedAt":    now,
		}
	}
	if err := h.store.Update(ctx, refs.Chat(chatID), patch); err != nil {
		return h.fail(c, apperr.ErrStoreFailure(err))
	}
	for _, uid := range []string{u.ID, partnerID} {
		if err := h.store.Update(ctx, refs.UserChat(uid, chatID), realtime.Value{"updatedAt": now}); err != nil {
			return h.fail(c, apperr.ErrStoreFailure(err))
		}
	}

	status := fiber.StatusOK
	if !exists {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"chatId": chatID, "room": refs.Room(chatID)})
}

// ChatsHandler GET /api/chats
func (h *Handler) ChatsHandler(c *fiber.Ctx) error {
	u := currentUser(c)
	ctx := c.UserContext()
	entries, err := h.store.List(ctx, refs.UserChats(u.ID))
	if err != nil {
		return h.fail(c, apperr.ErrStoreFailure(err))
	}
	out := make([]models.Chat, 0, len(entries))
	for _, e := range entries {
		v, ok, err := h.store.Get(ctx, refs.Chat(e.Key))
		if err != nil {
			return h.fail(c, apperr.ErrStoreFailure(err))
		}
		if !ok {
			continue
		}
		chat, err := realtime.Decode[models.Chat](v)
		if err != nil {
			h.log.Warn().Err(err).Str("chat", e.Key).Msg("skipping malformed chat")
			continue
		}
		chat.ID = e.Key
		for pid := range chat.Participants {
			if pid == u.ID {
				continue
			}
			if pv, ok, _ := h.store.Get(ctx, refs.User(pid)); ok {
				if p, err := realtime.Decode[models.Profile](pv); err == nil {
					chat.Partner = &p
				}
			}
		}
		out = append(out, chat)
	}
	return c.JSON(out)
}

// JoinRoomHandler GET /api/rooms/:code normalizes a shared room code.
func (h *Handler) JoinRoomHandler(c *fiber.Ctx) error {
	room := refs.Room(c.Params("code"))
	if room == "" {
		return h.fail(c, apperr.InvalidArg("room code is required"))
	}
	return c.JSON(fiber.Map{"room": room})
}
