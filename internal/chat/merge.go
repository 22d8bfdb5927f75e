package chat

import (
	"sort"

	"github.com/pelusa-v/bearboo-letters/internal/models"
)

// Merge replaces previous with snapshot wholesale, ordered by CreatedAt with the
// id as tie-break. The second result holds partner messages that were not in
// previous.
//
// CreatedAt comes from the sender's clock, so two skewed clients may interleave
// out of causal order.
func Merge(previous, snapshot []models.Message) ([]models.Message, []models.Message) {
	out := make([]models.Message, len(snapshot))
	copy(out, snapshot)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})

	seen := make(map[string]bool, len(previous))
	for _, m := range previous {
		seen[m.ID] = true
	}
	var arrived []models.Message
	for _, m := range out {
		if !m.Mine && !seen[m.ID] {
			arrived = append(arrived, m)
		}
	}
	return out, arrived
}
