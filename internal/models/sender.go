// internal/models/sender.go
package models

// Sender is one entry on the choose-sender screen: an email reply-to
// address, an SMS sender id or a letter contact block.
type Sender struct {
	ID        string `json:"id"`
	Value     string `json:"value"`
	IsDefault bool   `json:"is_default"`
}

// Backend shapes for the three sender kinds.
type EmailReplyTo struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
	IsDefault    bool   `json:"is_default"`
}

type SMSSender struct {
	ID        string `json:"id"`
	SMSSender string `json:"sms_sender"`
	IsDefault bool   `json:"is_default"`
}

type LetterContact struct {
	ID           string `json:"id"`
	ContactBlock string `json:"contact_block"`
	IsDefault    bool   `json:"is_default"`
}

// DefaultSender returns the default entry, or the first when none is flagged.
func DefaultSender(senders []Sender) (Sender, bool) {
	for _, s := range senders {
		if s.IsDefault {
			return s, true
		}
	}
	if len(senders) > 0 {
		return senders[0], true
	}
	return Sender{}, false
}

// FindSender looks a sender up by id.
func FindSender(senders []Sender, id string) (Sender, bool) {
	for _, s := range senders {
		if s.ID == id {
			return s, true
		}
	}
	return Sender{}, false
}
