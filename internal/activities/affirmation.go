package activities

import "time"

type Affirmation struct {
	Day  string `json:"day"`
	Text string `json:"text"`
}

// DailyAffirmation is the same for both partners on a given day.
func (b *Bank) DailyAffirmation(day time.Time) Affirmation {
	rng := dayRand(day, "affirmation")
	return Affirmation{
		Day:  day.Format(DayLayout),
		Text: b.Affirmations[rng.Intn(len(b.Affirmations))],
	}
}
