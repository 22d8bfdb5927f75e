// Package activities holds the relationship activities shared in a room: the
// daily compatibility quiz, affirmations, anniversaries, date plans, message
// suggestions and the scrapbook. Daily content is deterministic per calendar day so both partners
// see the same thing.
package activities

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed bank.yaml
var bankYAML []byte

type AnniversaryType struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
	Emoji string `yaml:"emoji" json:"emoji"`
}

// Bank is the content catalogue behind the activities.
type Bank struct {
	Categories        []string            `yaml:"categories"`
	TitleTemplates    []string            `yaml:"title_templates"`
	Templates         []string            `yaml:"templates"`
	Scenarios         []string            `yaml:"scenarios"`
	Affirmations      []string            `yaml:"affirmations"`
	DateIdeas         map[string][]string `yaml:"date_ideas"`
	AnniversaryTypes  []AnniversaryType   `yaml:"anniversary_types"`
	MessageCategories []MessageCategory   `yaml:"message_categories"`
	ContextLines      ContextLines        `yaml:"context_lines"`
	Moods             []MessageCategory   `yaml:"moods"`
}

// ParseBank reads a catalogue and checks that every list the activities draw
// from is non-empty.
func ParseBank(data []byte) (*Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("activities: parse bank: %w", err)
	}
	switch {
	case len(b.Categories) == 0, len(b.TitleTemplates) == 0:
		return nil, errors.New("activities: bank needs categories and title templates")
	case len(b.Templates) == 0, len(b.Scenarios) == 0:
		return nil, errors.New("activities: bank needs question templates and scenarios")
	case len(b.Affirmations) == 0:
		return nil, errors.New("activities: bank needs affirmations")
	case len(b.MessageCategories) == 0, len(b.Moods) == 0:
		return nil, errors.New("activities: bank needs message categories and moods")
	}
	return &b, nil
}

var defaultBank = mustParse(bankYAML)

func mustParse(data []byte) *Bank {
	b, err := ParseBank(data)
	if err != nil {
		panic(err)
	}
	return b
}

// Default returns the embedded catalogue.
func Default() *Bank { return defaultBank }

func (b *Bank) AnniversaryType(value string) (AnniversaryType, bool) {
	for _, t := range b.AnniversaryTypes {
		if t.Value == value {
			return t, true
		}
	}
	return AnniversaryType{}, false
}
