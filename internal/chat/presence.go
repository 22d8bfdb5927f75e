package chat

import (
	"github.com/pelusa-v/bearboo-letters/internal/models"
	"github.com/pelusa-v/bearboo-letters/internal/realtime"
)

// ReducePresence reports whether anyone other than selfID is online or typing.
func ReducePresence(records map[string]models.PresenceRecord, selfID string) models.PartnerStatus {
	var st models.PartnerStatus
	for id, r := range records {
		if id == selfID {
			continue
		}
		st.PartnerOnline = st.PartnerOnline || r.IsOnline
		st.PartnerTyping = st.PartnerTyping || r.IsTyping
	}
	return st
}

// PresenceRecords decodes an online or typing snapshot keyed by user id.
// Malformed entries count as offline and not typing.
func PresenceRecords(entries []realtime.Entry) map[string]models.PresenceRecord {
	out := make(map[string]models.PresenceRecord, len(entries))
	for _, e := range entries {
		out[e.Key] = models.PresenceRecord{
			IsOnline:    realtime.Bool(e.Value, "isOnline"),
			IsTyping:    realtime.Bool(e.Value, "isTyping"),
			LastUpdated: realtime.Int64(e.Value, "timestamp"),
		}
		if name, ok := e.Value["displayName"].(string); ok {
			r := out[e.Key]
			r.DisplayName = name
			out[e.Key] = r
		}
	}
	return out
}
