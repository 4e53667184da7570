// Package preview renders a template for a single row of values.
package preview

import (
	"strings"

	"github.com/cds-snc/notification-admin-sub002/internal/models"
	"github.com/cds-snc/notification-admin-sub002/internal/send/recipients"
)

// RedactedValue replaces placeholder values on templates that hide
// personalisation.
const RedactedValue = "*****"

// Options tweak rendering. SenderName prefixes SMS bodies when set.
type Options struct {
	SenderName string
	// Redact forces redaction even when the template does not ask for it.
	Redact bool
}

// Preview is a rendered message. Fields that do not apply to the channel
// are left zero.
type Preview struct {
	TemplateType  models.TemplateType
	Subject       string
	Body          string
	Recipient     string
	AddressLines  []string
	PageCount     int
	FragmentCount int
	CharCount     int
	IsUnicode     bool
	TooLong       bool
	// International is set for SMS to numbers outside the +1 zone, which
	// are billed at international rates.
	International bool
}

// Assemble substitutes values into t. values is keyed by normalised
// placeholder name; missing values render as empty strings.
func Assemble(t *models.Template, values map[string]string, opts Options) *Preview {
	redact := opts.Redact || t.RedactPersonalisation
	sub := func(p models.Placeholder) string {
		val := values[models.NormaliseKey(p.Name)]
		if p.IsCondition {
			if isTruthy(val) {
				return p.Conditional
			}
			return ""
		}
		if redact && val != "" {
			return RedactedValue
		}
		return val
	}

	p := &Preview{TemplateType: t.Type}
	p.Body = models.ReplacePlaceholders(t.Content, sub)
	if t.HasSubject() {
		p.Subject = collapseSpace(models.ReplacePlaceholders(t.Subject, sub))
	}

	switch t.Type {
	case models.TemplateTypeEmail:
		p.Recipient = strings.TrimSpace(values[models.NormaliseKey(models.ColumnEmailAddress)])
	case models.TemplateTypeSMS:
		p.Recipient = strings.TrimSpace(values[models.NormaliseKey(models.ColumnPhoneNumber)])
		p.International = p.Recipient != "" && recipients.IsInternationalPhoneNumber(p.Recipient)
		if opts.SenderName != "" {
			p.Body = opts.SenderName + ": " + p.Body
		}
		p.CharCount, p.IsUnicode = smsLength(p.Body)
		p.FragmentCount = fragments(p.CharCount, p.IsUnicode)
		p.TooLong = p.CharCount > SMSCharLimit
	case models.TemplateTypeLetter:
		p.AddressLines = addressLines(values)
		if len(p.AddressLines) > 0 {
			p.Recipient = p.AddressLines[0]
		}
		p.PageCount = PageCount(p.Body)
	}
	return p
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "true", "1":
		return true
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func addressLines(values map[string]string) []string {
	var lines []string
	for _, col := range models.RecipientColumnsFor(models.TemplateTypeLetter) {
		if v := strings.TrimSpace(values[models.NormaliseKey(col)]); v != "" {
			lines = append(lines, v)
		}
	}
	return lines
}
