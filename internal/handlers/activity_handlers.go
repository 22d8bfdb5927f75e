package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pelusa-v/bearboo-letters/internal/activities"
	"github.com/pelusa-v/bearboo-letters/internal/apperr"
)

// QuestionsHandler GET /api/activities/questions?partner=&count=
func (h *Handler) QuestionsHandler(c *fiber.Ctx) error {
	count := c.QueryInt("count", 5)
	return c.JSON(h.bank.DailyQuiz(h.now(), c.Query("partner"), count))
}

// AffirmationHandler GET /api/activities/affirmation
func (h *Handler) AffirmationHandler(c *fiber.Ctx) error {
	return c.JSON(h.bank.DailyAffirmation(h.now()))
}

// DateIdeasHandler GET /api/activities/date-ideas?type=
func (h *Handler) DateIdeasHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"types": h.bank.DateTypes(),
		"ideas": h.bank.Ideas(c.Query("type")),
	})
}

// CountdownHandler GET /api/activities/countdown?date=&title=&type=
func (h *Handler) CountdownHandler(c *fiber.Ctx) error {
	a, err := h.bank.NewAnniversary("", c.Query("title", "Anniversary"), c.Query("date"), c.Query("type"))
	if err != nil {
		return h.fail(c, err)
	}
	now := h.now()
	cd, err := activities.CountdownTo(a.Date, now)
	if err != nil {
		return h.fail(c, err)
	}
	text, _ := activities.ShareText(a, now)
	return c.JSON(fiber.Map{"anniversary": a, "countdown": cd, "share": text})
}

// AnniversaryTypesHandler GET /api/activities/anniversary-types
func (h *Handler) AnniversaryTypesHandler(c *fiber.Ctx) error {
	return c.JSON(h.bank.AnniversaryTypes)
}

// SuggestionsHandler GET /api/activities/suggestions?category=&partner=&recent=&photos=&hour=
// or ?mood=. Without either it lists what can be asked for.
func (h *Handler) SuggestionsHandler(c *fiber.Ctx) error {
	if mood := c.Query("mood"); mood != "" {
		msgs, err := h.bank.MoodMessages(mood)
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(fiber.Map{"mood": mood, "suggestions": msgs})
	}
	category := c.Query("category")
	if category == "" {
		return c.JSON(fiber.Map{
			"categories": h.bank.SuggestionCategories(),
			"moods":      h.bank.MoodList(),
		})
	}
	now := h.now()
	conv := activities.Conversation{
		Partner: c.Query("partner"),
		Recent:  c.QueryInt("recent"),
		Photos:  c.QueryBool("photos"),
		Hour:    c.QueryInt("hour", now.Hour()),
	}
	if conv.Hour < 0 || conv.Hour > 23 {
		return h.fail(c, apperr.InvalidArg("hour must be between 0 and 23"))
	}
	msgs, err := h.bank.Suggestions(category, conv, now.UnixNano())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"category": category, "suggestions": msgs})
}
