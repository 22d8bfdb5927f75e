package activities

import (
	"sort"
	"strings"

	"github.com/pelusa-v/bearboo-letters/internal/apperr"
)

type PlanStatus string

const (
	PlanPlanned   PlanStatus = "planned"
	PlanCompleted PlanStatus = "completed"
)

type DatePlan struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
	Type        string     `json:"type"`
	Status      PlanStatus `json:"status"`
}

var ErrIncompletePlan = apperr.InvalidArg("Please fill out all fields")

func NewDatePlan(id, title, description, date, typ string) (DatePlan, error) {
	title, description = strings.TrimSpace(title), strings.TrimSpace(description)
	if title == "" || description == "" || date == "" {
		return DatePlan{}, ErrIncompletePlan
	}
	if typ == "" {
		typ = "movie"
	}
	return DatePlan{ID: id, Title: title, Description: description, Date: date, Type: typ, Status: PlanPlanned}, nil
}

// Ideas returns the suggestions for typ, or all of them keyed by type when
// typ is empty.
func (b *Bank) Ideas(typ string) map[string][]string {
	if typ != "" {
		ideas, ok := b.DateIdeas[typ]
		if !ok {
			return map[string][]string{}
		}
		return map[string][]string{typ: append([]string(nil), ideas...)}
	}
	out := make(map[string][]string, len(b.DateIdeas))
	for k, v := range b.DateIdeas {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (b *Bank) DateTypes() []string {
	out := make([]string, 0, len(b.DateIdeas))
	for k := range b.DateIdeas {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
