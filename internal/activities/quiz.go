package activities

import (
	"hash/fnv"
	"math/rand"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const DayLayout = "2006-01-02"

type Quiz struct {
	Day       string   `json:"day"`
	Title     string   `json:"title"`
	Questions []string `json:"questions"`
}

// daySeed is the same for every caller on a calendar day, whatever the time zone
// of the clock value passed in.
func daySeed(day time.Time, salt string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(day.Format("20060102")))
	_, _ = h.Write([]byte(salt))
	return int64(h.Sum64() & (1<<63 - 1))
}

func dayRand(day time.Time, salt string) *rand.Rand {
	return rand.New(rand.NewSource(daySeed(day, salt)))
}

// DailyQuiz picks count distinct question templates for day and fills them in
// for partner. count is clamped to the number of templates.
func (b *Bank) DailyQuiz(day time.Time, partner string, count int) Quiz {
	partner = strings.TrimSpace(partner)
	if partner == "" {
		partner = "your partner"
	}
	if count <= 0 {
		count = 5
	}
	if count > len(b.Templates) {
		count = len(b.Templates)
	}

	rng := dayRand(day, "questions")
	order := rng.Perm(len(b.Templates))[:count]
	questions := make([]string, 0, count)
	for _, i := range order {
		q := strings.ReplaceAll(b.Templates[i], "{partner}", partner)
		if strings.Contains(q, "{scenario}") {
			q = strings.ReplaceAll(q, "{scenario}", b.Scenarios[rng.Intn(len(b.Scenarios))])
		}
		questions = append(questions, q)
	}
	return Quiz{Day: day.Format(DayLayout), Title: b.GameTitle(day), Questions: questions}
}

func (b *Bank) GameTitle(day time.Time) string {
	rng := dayRand(day, "title")
	category := capitalize(b.Categories[rng.Intn(len(b.Categories))])
	tpl := b.TitleTemplates[rng.Intn(len(b.TitleTemplates))]
	return strings.ReplaceAll(tpl, "{category}", category)
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

// Answer is one partner's response to a quiz question.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuizShare is the payload of a shared quiz activity.
type QuizShare struct {
	Day     string   `json:"day"`
	Title   string   `json:"title"`
	Answers []Answer `json:"answers"`
}

// Match counts questions both partners answered the same way, ignoring case and
// surrounding space.
func Match(mine, theirs []Answer) (matched, total int) {
	byQuestion := make(map[string]string, len(theirs))
	for _, a := range theirs {
		byQuestion[a.Question] = normalizeAnswer(a.Answer)
	}
	for _, a := range mine {
		other, ok := byQuestion[a.Question]
		if !ok {
			continue
		}
		total++
		if other != "" && other == normalizeAnswer(a.Answer) {
			matched++
		}
	}
	return matched, total
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
