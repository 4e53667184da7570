// internal/models/template_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Placeholder Extraction
// ==========================

func TestTemplate_Placeholders(t *testing.T) {
	tests := []struct {
		name     string
		template Template
		expected []string
	}{
		{
			name: "email subject before body",
			template: Template{
				Type:    TemplateTypeEmail,
				Subject: "Hello ((name))",
				Content: "Your code is ((code)) and ((Name))",
			},
			expected: []string{"name", "code"},
		},
		{
			name: "sms ignores subject",
			template: Template{
				Type:    TemplateTypeSMS,
				Subject: "((ignored))",
				Content: "((code)) is your code",
			},
			expected: []string{"code"},
		},
		{
			name: "conditional placeholder uses name before ??",
			template: Template{
				Type:    TemplateTypeSMS,
				Content: "((urgent??Please reply today)) ((first name))",
			},
			expected: []string{"urgent", "first name"},
		},
		{
			name: "whitespace and case collapse to one",
			template: Template{
				Type:    TemplateTypeEmail,
				Content: "((First Name)) ((first_name)) ((FIRSTNAME))",
			},
			expected: []string{"First Name"},
		},
		{
			name:     "no placeholders",
			template: Template{Type: TemplateTypeLetter, Content: "Plain"},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.template.Placeholders())
		})
	}
}

func TestTemplate_FieldsToFillIn(t *testing.T) {
	email := Template{Type: TemplateTypeEmail, Content: "((first)) ((city)) ((email address))"}
	assert.Equal(t, []string{"email address", "first", "city"}, email.FieldsToFillIn(false))
	assert.Equal(t, []string{"first", "city"}, email.FieldsToFillIn(true))

	letter := Template{Type: TemplateTypeLetter, Content: "Dear ((name))"}
	fields := letter.FieldsToFillIn(true)
	assert.Len(t, fields, 9)
	assert.Equal(t, "address line 1", fields[0])
	assert.Equal(t, "postcode", fields[7])
	assert.Equal(t, "name", fields[8])
}

func TestRecipientColumns(t *testing.T) {
	assert.Equal(t, []string{"email address"}, RecipientColumnsFor(TemplateTypeEmail))
	assert.Equal(t, []string{"phone number"}, RecipientColumnsFor(TemplateTypeSMS))
	assert.Len(t, RecipientColumnsFor(TemplateTypeLetter), 8)
	assert.Nil(t, RecipientColumnsFor("push"))

	assert.True(t, IsRecipientColumn(TemplateTypeEmail, " Email-Address "))
	assert.False(t, IsRecipientColumn(TemplateTypeSMS, "email address"))
	assert.True(t, IsOptionalAddressColumn("Address Line 5"))
	assert.False(t, IsOptionalAddressColumn("address line 2"))
}

// ==========================
// Key Normalisation
// ==========================

func TestNormaliseKey(t *testing.T) {
	inputs := []string{"Email Address", " phone_number ", "Address line 1", "Prénom", "", "((x))"}
	for _, in := range inputs {
		once := NormaliseKey(in)
		assert.Equal(t, once, NormaliseKey(once), "normalising twice should be a no-op for %q", in)
	}
	assert.Equal(t, "emailaddress", NormaliseKey("E-mail Address"))
	assert.Equal(t, "phonenumber", NormaliseKey("Phone Number"))
	assert.Equal(t, "prénom", NormaliseKey("Prénom"))
}

func TestReplacePlaceholders(t *testing.T) {
	out := ReplacePlaceholders("Hi ((name)), ((vip??welcome back))", func(p Placeholder) string {
		if p.IsCondition {
			return "[" + p.Conditional + "]"
		}
		return "<" + p.Name + ">"
	})
	assert.Equal(t, "Hi <name>, [welcome back]", out)
}

// ==========================
// Policy and Users
// ==========================

func TestNewServicePolicy(t *testing.T) {
	svc := &Service{
		ID:           "svc-1",
		Restricted:   true,
		Permissions:  []string{"email", "sms"},
		MessageLimit: 50,
	}
	p := NewServicePolicy(svc, 60, 50000, 100000, []string{"self@gov.ca"})
	assert.True(t, p.InTrialMode)
	assert.True(t, p.CanSend(TemplateTypeEmail))
	assert.False(t, p.CanSend(TemplateTypeLetter))
	assert.Equal(t, 0, p.RemainingMessages())
	assert.Equal(t, 50000, p.MaxRows)
	assert.Equal(t, []string{"self@gov.ca"}, p.SafelistIdentities)

	svc.Restricted = false
	svc.BulkSendEnabled = true
	p = NewServicePolicy(svc, 10, 50000, 100000, []string{"self@gov.ca"})
	assert.Equal(t, 100000, p.MaxRows)
	assert.Nil(t, p.SafelistIdentities)
	assert.Equal(t, 40, p.RemainingMessages())
}

func TestUser_HasPermission(t *testing.T) {
	u := &User{Permissions: map[string][]string{"svc-1": {UserPermissionSendMessages}}}
	assert.True(t, u.HasPermission("svc-1", UserPermissionSendMessages))
	assert.False(t, u.HasPermission("svc-1", UserPermissionManageTemplates))
	assert.False(t, u.HasPermission("svc-2", UserPermissionSendMessages))

	u.PlatformAdmin = true
	assert.True(t, u.HasPermission("svc-2", UserPermissionManageTemplates))
}

func TestDefaultSender(t *testing.T) {
	senders := []Sender{{ID: "a"}, {ID: "b", IsDefault: true}}
	s, ok := DefaultSender(senders)
	assert.True(t, ok)
	assert.Equal(t, "b", s.ID)

	_, ok = DefaultSender(nil)
	assert.False(t, ok)
}
