package placeholder

import (
	"testing"

	apperrors "github.com/cds-snc/notification-admin-sub002/internal/common/errors"
	"github.com/cds-snc/notification-admin-sub002/internal/models"
	"github.com/cds-snc/notification-admin-sub002/internal/send/recipients"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormFor_Kinds(t *testing.T) {
	intl := &models.ServicePolicy{Permissions: map[string]bool{"sms": true, models.PermissionInternationalSMS: true}}

	tests := []struct {
		name          string
		placeholder   string
		typ           models.TemplateType
		policy        *models.ServicePolicy
		kind          Kind
		international bool
	}{
		{"email recipient", "Email Address", models.TemplateTypeEmail, nil, KindEmail, false},
		{"phone recipient", "phone_number", models.TemplateTypeSMS, nil, KindPhone, false},
		{"international phone", "phone number", models.TemplateTypeSMS, intl, KindPhone, true},
		{"email column on sms template is text", "email address", models.TemplateTypeSMS, nil, KindText, false},
		{"phone column on email template is text", "phone number", models.TemplateTypeEmail, nil, KindText, false},
		{"free text", "name", models.TemplateTypeLetter, nil, KindText, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FormFor(tt.placeholder, tt.typ, false, tt.policy)
			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.international, f.International)
		})
	}
}

func TestForm_Validate(t *testing.T) {
	tests := []struct {
		name       string
		form       *Form
		input      string
		wantErr    string
		normalised string
	}{
		{"trims email", FormFor("email address", models.TemplateTypeEmail, false, nil), "  user@x.ca ", "", "user@x.ca"},
		{"bad email", FormFor("email address", models.TemplateTypeEmail, false, nil), "user@localhost", "Not a valid email address", ""},
		{"empty required", FormFor("name", models.TemplateTypeEmail, false, nil), "   ", "Cannot be empty", ""},
		{"empty optional", FormFor("address line 3", models.TemplateTypeLetter, true, nil), "", "", ""},
		{"recipient is never optional", FormFor("email address", models.TemplateTypeEmail, true, nil), "", "Cannot be empty", ""},
		{"local phone", FormFor("phone number", models.TemplateTypeSMS, false, nil), "(613) 555-0199", "", "+16135550199"},
		{"phone with letters", FormFor("phone number", models.TemplateTypeSMS, false, nil), "613-CALL-NOW", recipients.MsgPhoneLettersOrSymbols, ""},
		{"phone too short", FormFor("phone number", models.TemplateTypeSMS, false, nil), "613555", recipients.MsgPhoneNotEnoughDigits, ""},
		{"international not allowed", FormFor("phone number", models.TemplateTypeSMS, false, nil), "+44 7700 900123", recipients.MsgPhoneNotLocal, ""},
		{"free text kept as typed", FormFor("name", models.TemplateTypeSMS, false, nil), " Jo ", "", "Jo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate(tt.input)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.normalised, tt.form.Normalised)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, tt.form.Error)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeFormValidationFailed))
		})
	}
}

func TestForm_PhoneErrorsUseCatalogue(t *testing.T) {
	intl := &models.ServicePolicy{Permissions: map[string]bool{"sms": true, models.PermissionInternationalSMS: true}}

	tests := []struct {
		name  string
		form  *Form
		input string
		key   MessageKey
		fr    string
	}{
		{"letters", FormFor("phone number", models.TemplateTypeSMS, false, nil), "613-CALL-NOW", ErrPhoneLettersOrSymbols, "Ne doit pas contenir de lettres ni de symboles"},
		{"too short", FormFor("phone number", models.TemplateTypeSMS, false, nil), "613555", ErrPhoneNotEnoughDigits, "Pas assez de chiffres"},
		{"too long", FormFor("phone number", models.TemplateTypeSMS, false, nil), "+1 613 555 01999", ErrPhoneTooManyDigits, "Trop de chiffres"},
		{"bad area code", FormFor("phone number", models.TemplateTypeSMS, false, nil), "123 555 0199", ErrPhoneInvalid, "Numéro de téléphone non valide"},
		{"not local", FormFor("phone number", models.TemplateTypeSMS, false, nil), "+44 7700 900123", ErrPhoneNotLocal, "Numéro local non valide"},
		{"not international", FormFor("phone number", models.TemplateTypeSMS, false, intl), "+999 1", ErrPhoneNotInternational, "Numéro international non valide"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.form.Validate(tt.input))
			assert.Equal(t, tt.key, tt.form.ErrorKey)
			assert.Equal(t, Message(tt.key), tt.form.Error)
			assert.Equal(t, tt.fr, Localised("fr", tt.form.ErrorKey))
		})
	}

	f := FormFor("phone number", models.TemplateTypeSMS, false, nil)
	require.NoError(t, f.Validate("613 555 0199"))
	assert.Empty(t, f.ErrorKey)
}

func TestLocalised(t *testing.T) {
	assert.Equal(t, "Step 2 of 3", Message(StepHeadingOf, 2, 3))
	assert.Equal(t, "Ne peut pas être vide", Localised("fr", ErrCannotBeEmpty))
	assert.Equal(t, "Cannot be empty", Localised("de", ErrCannotBeEmpty))
}
