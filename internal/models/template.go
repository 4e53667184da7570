// internal/models/template.go
package models

import (
	"regexp"
	"strings"
	"unicode"
)

type TemplateType string

const (
	TemplateTypeEmail  TemplateType = "email"
	TemplateTypeSMS    TemplateType = "sms"
	TemplateTypeLetter TemplateType = "letter"
)

// Channels are the template types a service can be permitted to send.
var Channels = []TemplateType{TemplateTypeEmail, TemplateTypeSMS, TemplateTypeLetter}

// Recipient column headings, in the order they appear in a spreadsheet.
const (
	ColumnEmailAddress = "email address"
	ColumnPhoneNumber  = "phone number"
	ColumnPostcode     = "postcode"
)

var letterAddressColumns = []string{
	"address line 1",
	"address line 2",
	"address line 3",
	"address line 4",
	"address line 5",
	"address line 6",
	"address line 7",
	ColumnPostcode,
}

// Template is an immutable snapshot of a template version. Behaviour that
// differs per channel switches on Type.
type Template struct {
	ID                    string       `json:"id"`
	Version               int          `json:"version"`
	Type                  TemplateType `json:"template_type"`
	Name                  string       `json:"name"`
	ServiceID             string       `json:"service"`
	Subject               string       `json:"subject,omitempty"`
	Content               string       `json:"content"`
	ReplyTo               string       `json:"reply_to,omitempty"`
	ReplyToText           string       `json:"reply_to_text,omitempty"`
	Postage               string       `json:"postage,omitempty"`
	RedactPersonalisation bool         `json:"redact_personalisation"`
}

// IsValidType reports whether t is one of the three channels.
func IsValidType(t TemplateType) bool {
	switch t {
	case TemplateTypeEmail, TemplateTypeSMS, TemplateTypeLetter:
		return true
	}
	return false
}

// HasSubject is true for email and letter templates.
func (t *Template) HasSubject() bool {
	return t.Type == TemplateTypeEmail || t.Type == TemplateTypeLetter
}

// RecipientColumns returns the fixed, ordered recipient headings for the
// template type.
func (t *Template) RecipientColumns() []string {
	return RecipientColumnsFor(t.Type)
}

func RecipientColumnsFor(templateType TemplateType) []string {
	switch templateType {
	case TemplateTypeEmail:
		return []string{ColumnEmailAddress}
	case TemplateTypeSMS:
		return []string{ColumnPhoneNumber}
	case TemplateTypeLetter:
		out := make([]string, len(letterAddressColumns))
		copy(out, letterAddressColumns)
		return out
	}
	return nil
}

// IsOptionalAddressColumn is true for letter address lines 3 to 7.
func IsOptionalAddressColumn(column string) bool {
	switch NormaliseKey(column) {
	case "addressline3", "addressline4", "addressline5", "addressline6", "addressline7":
		return true
	}
	return false
}

// IsRecipientColumn reports whether column is one of the recipient headings
// for the template type, ignoring case and punctuation.
func IsRecipientColumn(templateType TemplateType, column string) bool {
	key := NormaliseKey(column)
	for _, c := range RecipientColumnsFor(templateType) {
		if NormaliseKey(c) == key {
			return true
		}
	}
	return false
}

var placeholderPattern = regexp.MustCompile(`\(\(([^()]+)\)\)`)

// Placeholder is a single ((name)) or ((name??text)) marker.
type Placeholder struct {
	Name        string
	Conditional string
	IsCondition bool
}

func parsePlaceholder(inner string) Placeholder {
	if idx := strings.Index(inner, "??"); idx >= 0 {
		return Placeholder{
			Name:        strings.TrimSpace(inner[:idx]),
			Conditional: inner[idx+2:],
			IsCondition: true,
		}
	}
	return Placeholder{Name: strings.TrimSpace(inner)}
}

// Placeholders returns the unique placeholder names from the subject and
// body in order of first appearance.
func (t *Template) Placeholders() []string {
	seen := make(map[string]bool)
	var names []string
	sources := []string{t.Content}
	if t.HasSubject() {
		sources = []string{t.Subject, t.Content}
	}
	for _, src := range sources {
		for _, m := range placeholderPattern.FindAllStringSubmatch(src, -1) {
			p := parsePlaceholder(m[1])
			key := NormaliseKey(p.Name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			names = append(names, p.Name)
		}
	}
	return names
}

// PlaceholdersExcludingRecipient drops placeholders that are also recipient
// columns for the template type.
func (t *Template) PlaceholdersExcludingRecipient() []string {
	var out []string
	for _, p := range t.Placeholders() {
		if !IsRecipientColumn(t.Type, p) {
			out = append(out, p)
		}
	}
	return out
}

// ExpectedColumns is every column a spreadsheet for this template may carry:
// recipient columns first, then placeholders.
func (t *Template) ExpectedColumns() []string {
	return append(t.RecipientColumns(), t.PlaceholdersExcludingRecipient()...)
}

// FieldsToFillIn is the ordered list of one-off steps. With prefillSelf the
// recipient column of an email or SMS template is filled from the current
// user and is not a step.
func (t *Template) FieldsToFillIn(prefillSelf bool) []string {
	if t.Type == TemplateTypeLetter || !prefillSelf {
		return t.ExpectedColumns()
	}
	return t.PlaceholdersExcludingRecipient()
}

// ReplacePlaceholders calls fn for each marker in text and substitutes the
// returned string.
func ReplacePlaceholders(text string, fn func(Placeholder) string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(marker string) string {
		inner := marker[2 : len(marker)-2]
		return fn(parsePlaceholder(inner))
	})
}

// NormaliseKey lower-cases s and strips everything that is not a letter or
// digit. It is idempotent.
func NormaliseKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
