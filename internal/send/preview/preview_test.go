package preview

import (
	"strings"
	"testing"

	"github.com/cds-snc/notification-admin-sub002/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestAssemble_Email(t *testing.T) {
	tmpl := &models.Template{
		Type:    models.TemplateTypeEmail,
		Subject: "Hello  ((First))",
		Content: "See you in ((city)).((urgent??Please hurry.))",
	}
	values := map[string]string{"emailaddress": " user@x.ca ", "first": "Jo", "city": "Ottawa", "urgent": "Yes"}

	p := Assemble(tmpl, values, Options{})
	assert.Equal(t, "Hello Jo", p.Subject)
	assert.Equal(t, "See you in Ottawa.Please hurry.", p.Body)
	assert.Equal(t, "user@x.ca", p.Recipient)

	values["urgent"] = "no"
	delete(values, "city")
	p = Assemble(tmpl, values, Options{})
	assert.Equal(t, "See you in .", p.Body)
}

func TestAssemble_Redaction(t *testing.T) {
	tmpl := &models.Template{Type: models.TemplateTypeEmail, Subject: "s", Content: "Code ((code)) for ((name))", RedactPersonalisation: true}
	p := Assemble(tmpl, map[string]string{"code": "1234"}, Options{})
	assert.Equal(t, "Code ***** for ", p.Body)

	plain := &models.Template{Type: models.TemplateTypeEmail, Content: "Code ((code))"}
	assert.Equal(t, "Code *****", Assemble(plain, map[string]string{"code": "1"}, Options{Redact: true}).Body)
}

func TestAssemble_SMS(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		prefix    string
		fragments int
		unicode   bool
		tooLong   bool
	}{
		{"single gsm", "Your code is ((code))", "", 1, false, false},
		{"prefixed", "Hi", "GC Notify", 1, false, false},
		{"two gsm fragments", strings.Repeat("a", 161), "", 2, false, false},
		{"extended chars count double", strings.Repeat("€", 81), "", 2, false, false},
		{"unicode", "Bonjour ((code)) ✓", "", 1, true, false},
		{"unicode multi", strings.Repeat("✓", 71), "", 2, true, false},
		{"too long", strings.Repeat("a", 613), "", 5, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := &models.Template{Type: models.TemplateTypeSMS, Content: tt.content}
			p := Assemble(tmpl, map[string]string{"phonenumber": "+16135550199", "code": "42"}, Options{SenderName: tt.prefix})
			assert.Equal(t, tt.fragments, p.FragmentCount)
			assert.Equal(t, tt.unicode, p.IsUnicode)
			assert.Equal(t, tt.tooLong, p.TooLong)
			assert.Equal(t, "+16135550199", p.Recipient)
			assert.Empty(t, p.Subject)
			if tt.prefix != "" {
				assert.True(t, strings.HasPrefix(p.Body, tt.prefix+": "))
			}
		})
	}
}

func TestAssemble_SMSInternational(t *testing.T) {
	tmpl := &models.Template{Type: models.TemplateTypeSMS, Content: "Code ((code))"}

	tests := map[string]bool{
		"+16135550199":    false,
		"613 555 0199":    false,
		"+44 7700 900123": true,
		"0044 7700900123": true,
		"":                false,
	}
	for number, want := range tests {
		p := Assemble(tmpl, map[string]string{"phonenumber": number, "code": "1"}, Options{})
		assert.Equal(t, want, p.International, number)
	}

	email := Assemble(&models.Template{Type: models.TemplateTypeEmail, Content: "x"},
		map[string]string{"emailaddress": "+44 7700 900123"}, Options{})
	assert.False(t, email.International)
}

func TestAssemble_Letter(t *testing.T) {
	tmpl := &models.Template{Type: models.TemplateTypeLetter, Subject: "Notice for ((name))", Content: "Dear ((name))"}
	values := map[string]string{
		"addressline1": "Jo Smith",
		"addressline2": "1 Main St",
		"addressline4": "Ottawa",
		"postcode":     "K1A 0B1",
		"name":         "Jo",
	}

	p := Assemble(tmpl, values, Options{})
	assert.Equal(t, []string{"Jo Smith", "1 Main St", "Ottawa", "K1A 0B1"}, p.AddressLines)
	assert.Equal(t, "Jo Smith", p.Recipient)
	assert.Equal(t, "Notice for Jo", p.Subject)
	assert.Equal(t, 1, p.PageCount)
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 1, PageCount("short"))
	assert.Equal(t, 1, PageCount(strings.Repeat("line\n", 27)))
	assert.Equal(t, 2, PageCount(strings.Repeat("line\n", 40)))
	assert.Equal(t, 3, PageCount(strings.Repeat("line\n", 28+48+1)))
	assert.Equal(t, 2, PageCount(strings.Repeat("x", 70*29)))
}
