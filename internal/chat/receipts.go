package chat

import "github.com/pelusa-v/bearboo-letters/internal/models"

// Receipts decides which partner messages still need a read=true write. It
// remembers what it already issued so redelivered snapshots do not repeat writes
// while the store catches up.
type Receipts struct {
	issued map[string]bool
}

func NewReceipts() *Receipts {
	return &Receipts{issued: map[string]bool{}}
}

// Pending returns the ids to mark read and records them as issued. Ids that are
// no longer unread in msgs are forgotten.
func (r *Receipts) Pending(msgs []models.Message) []string {
	next := make(map[string]bool, len(r.issued))
	var out []string
	for _, m := range msgs {
		if m.Mine || m.Read || m.ID == "" {
			continue
		}
		next[m.ID] = true
		if !r.issued[m.ID] {
			out = append(out, m.ID)
		}
	}
	r.issued = next
	return out
}

// Forget lets a failed write be issued again on the next snapshot.
func (r *Receipts) Forget(id string) {
	delete(r.issued, id)
}

func (r *Receipts) Reset() {
	r.issued = map[string]bool{}
}
