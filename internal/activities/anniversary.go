package activities

import (
	"fmt"
	"strings"
	"time"

	"github.com/pelusa-v/bearboo-letters/internal/apperr"
)

type Anniversary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"` // 2006-01-02
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
}

type Countdown struct {
	Days   int  `json:"days"`
	Passed bool `json:"passed"`
}

var (
	ErrMissingAnniversary = apperr.InvalidArg("Please provide both a title and date")
	ErrBadDate            = apperr.InvalidArg("Please enter the date as " + DayLayout + ".")
)

func (b *Bank) NewAnniversary(id, title, date, typ string) (Anniversary, error) {
	title = strings.TrimSpace(title)
	if title == "" || date == "" {
		return Anniversary{}, ErrMissingAnniversary
	}
	if _, err := time.Parse(DayLayout, date); err != nil {
		return Anniversary{}, ErrBadDate
	}
	t, ok := b.AnniversaryType(typ)
	if !ok {
		t, _ = b.AnniversaryType("custom")
	}
	return Anniversary{ID: id, Title: title, Date: date, Type: t.Value, Emoji: t.Emoji}, nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// CountdownTo counts days from today to the date. A date from an earlier year
// counts to its next yearly occurrence; a date earlier this year counts the
// days since it.
func CountdownTo(date string, today time.Time) (Countdown, error) {
	target, err := time.Parse(DayLayout, date)
	if err != nil {
		return Countdown{}, ErrBadDate
	}
	now := midnight(today)
	target = midnight(target)

	diff := daysBetween(now, target)
	if diff >= 0 {
		return Countdown{Days: diff}, nil
	}
	if target.Year() < now.Year() {
		next := time.Date(now.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
		if next.Before(now) {
			next = next.AddDate(1, 0, 0)
		}
		return Countdown{Days: daysBetween(now, next)}, nil
	}
	return Countdown{Days: -diff, Passed: true}, nil
}

// ShareText is the chat message sent when an anniversary is shared.
func ShareText(a Anniversary, today time.Time) (string, error) {
	c, err := CountdownTo(a.Date, today)
	if err != nil {
		return "", err
	}
	d, _ := time.Parse(DayLayout, a.Date)
	when := d.Format("January 2, 2006")
	if c.Passed {
		return fmt.Sprintf("%s It's been %d days since our %s (%s)! %s", a.Emoji, c.Days, a.Title, when, a.Emoji), nil
	}
	return fmt.Sprintf("%s %d days until our %s (%s)! %s", a.Emoji, c.Days, a.Title, when, a.Emoji), nil
}
