// Package draft holds the per-session state of an in-flight send.
package draft

import (
	"github.com/cds-snc/notification-admin-sub002/internal/models"
)

// Source records how the recipients of a bulk send were provided.
type Source string

const (
	SourceCSV Source = "csv"
	SourceS3  Source = "s3"
)

// SendDraft is the evolving send request. It refers to the template by id
// only; behaviour is always re-derived from a freshly fetched template.
type SendDraft struct {
	TemplateID        string `json:"template_id,omitempty"`
	SenderID          string `json:"sender_id,omitempty"`
	Recipient         string `json:"recipient,omitempty"`
	PlaceholderValues Values `json:"placeholder_values"`
	StepIndex         int    `json:"step_index"`
	PrefillSelf       bool   `json:"prefill_self,omitempty"`
	LetterPageCount   int    `json:"letter_page_count,omitempty"`
	UploadID          string `json:"upload_id,omitempty"`
	OriginalFileName  string `json:"original_file_name,omitempty"`
	Source            Source `json:"source,omitempty"`
}

// ForTemplate resets the draft when it belongs to a different template.
func (d *SendDraft) ForTemplate(templateID string) {
	if d.TemplateID == templateID {
		return
	}
	*d = SendDraft{TemplateID: templateID}
}

// ClearSender is applied on entry to the choose-sender step.
func (d *SendDraft) ClearSender() {
	d.SenderID = ""
}

// ClearRecipients is applied on entry to the choose-recipients step and on
// a fresh one-off start.
func (d *SendDraft) ClearRecipients() {
	d.Recipient = ""
	d.PlaceholderValues.Clear()
	d.LetterPageCount = 0
	d.StepIndex = 0
}

// ClearAfterSend drops everything a completed send consumed.
func (d *SendDraft) ClearAfterSend() {
	d.SenderID = ""
	d.Recipient = ""
	d.PlaceholderValues.Clear()
	d.LetterPageCount = 0
	d.StepIndex = 0
	d.UploadID = ""
	d.OriginalFileName = ""
	d.Source = ""
}

// SetValue stores a collected value. The recipient column value is also
// kept as Recipient.
func (d *SendDraft) SetValue(t *models.Template, name, value string) {
	d.PlaceholderValues.Set(name, value)
	if models.IsRecipientColumn(t.Type, name) && t.Type != models.TemplateTypeLetter {
		d.Recipient = value
	}
}

// Pruned drops values whose names are neither recipient columns nor
// placeholders of t.
func (d *SendDraft) Pruned(t *models.Template) {
	allowed := make(map[string]bool)
	for _, c := range t.ExpectedColumns() {
		allowed[models.NormaliseKey(c)] = true
	}
	kept := NewValues()
	for _, k := range d.PlaceholderValues.Keys() {
		if allowed[models.NormaliseKey(k)] {
			v, _ := d.PlaceholderValues.Get(k)
			kept.Set(k, v)
		}
	}
	d.PlaceholderValues = *kept
}

// Complete reports whether every field of the one-off flow has a value.
func (d *SendDraft) Complete(t *models.Template) bool {
	for _, f := range t.FieldsToFillIn(d.PrefillSelf) {
		if !d.PlaceholderValues.Has(f) {
			return false
		}
	}
	return d.Recipient != "" || t.Type == models.TemplateTypeLetter
}

// Flash is a one-time message shown on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// State is everything stored against a session id.
type State struct {
	Session models.Session `json:"session"`
	Draft   SendDraft      `json:"draft"`
	Flashes []Flash        `json:"flashes,omitempty"`
}

func (s *State) AddFlash(category, message string) {
	s.Flashes = append(s.Flashes, Flash{Category: category, Message: message})
}

// PopFlashes returns and clears pending flashes.
func (s *State) PopFlashes() []Flash {
	out := s.Flashes
	s.Flashes = nil
	return out
}
