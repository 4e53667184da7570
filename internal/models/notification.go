// internal/models/notification.go
package models

import "time"

// Notification is a single message as reported by the backend.
type Notification struct {
	ID              string            `json:"id"`
	To              string            `json:"to"`
	Type            TemplateType      `json:"notification_type"`
	Status          string            `json:"status"`
	TemplateID      string            `json:"template_id,omitempty"`
	TemplateVersion int               `json:"template_version,omitempty"`
	JobID           string            `json:"job_id,omitempty"`
	Personalisation map[string]string `json:"personalisation,omitempty"`
	Subject         string            `json:"subject,omitempty"`
	Body            string            `json:"body,omitempty"`
	CreatedAt       *time.Time        `json:"created_at,omitempty"`
}

// OneOffRequest is the body of the backend send-notification call.
// Personalisation keeps the order values were collected in.
type OneOffRequest struct {
	TemplateID      string      `json:"template_id"`
	To              string      `json:"to"`
	Personalisation OrderedJSON `json:"personalisation"`
	SenderID        string      `json:"sender_id,omitempty"`
	CreatedBy       string      `json:"created_by,omitempty"`
}

// OrderedJSON is a pre-encoded JSON object.
type OrderedJSON []byte

func (o OrderedJSON) MarshalJSON() ([]byte, error) {
	if len(o) == 0 {
		return []byte("{}"), nil
	}
	return o, nil
}

// OneOffResponse carries the id of the notification the backend created.
type OneOffResponse struct {
	ID string `json:"id"`
}
