package activities

import (
	"encoding/json"

	"github.com/pelusa-v/bearboo-letters/internal/models"
)

// Share wraps an activity payload for a sharedActivity message.
func Share(typ models.ActivityType, payload any) (models.Activity, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return models.Activity{}, err
	}
	return models.Activity{Type: typ, Payload: b}, nil
}

// Unwrap decodes the payload of a shared activity into out.
func Unwrap(act *models.Activity, out any) error {
	return json.Unmarshal(act.Payload, out)
}
