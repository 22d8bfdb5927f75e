package chat

import (
	"math/rand"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelusa-v/bearboo-letters/internal/models"
)

func TestMergeOrdersByTimeThenID(t *testing.T) {
	snap := []models.Message{
		{ID: "c", CreatedAt: 20},
		{ID: "b", CreatedAt: 10},
		{ID: "a", CreatedAt: 20},
		{ID: "d", CreatedAt: 5},
	}
	got, _ := Merge(nil, snap)
	ids := make([]string, len(got))
	for i, m := range got {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"d", "b", "a", "c"}, ids)
	assert.Equal(t, "c", snap[0].ID, "input is not reordered")
}

func TestMergeKeepsEverySnapshotEntry(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	prev := []models.Message{{ID: "old", CreatedAt: 1}}
	for n := 0; n < 50; n++ {
		snap := make([]models.Message, n)
		for i := range snap {
			snap[i] = models.Message{ID: strconv.Itoa(rng.Intn(1000)) + "-" + strconv.Itoa(i), CreatedAt: int64(rng.Intn(5))}
		}
		got, _ := Merge(prev, snap)
		require.Len(t, got, n)
		assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool {
			if got[i].CreatedAt != got[j].CreatedAt {
				return got[i].CreatedAt < got[j].CreatedAt
			}
			return got[i].ID < got[j].ID
		}))
		prev = got
	}
}

func TestMergeReportsPartnerArrivals(t *testing.T) {
	prev := []models.Message{{ID: "1", CreatedAt: 1}}
	snap := []models.Message{
		{ID: "1", CreatedAt: 1},
		{ID: "2", CreatedAt: 2, Mine: true},
		{ID: "3", CreatedAt: 3},
	}
	_, arrived := Merge(prev, snap)
	require.Len(t, arrived, 1)
	assert.Equal(t, "3", arrived[0].ID)
}
