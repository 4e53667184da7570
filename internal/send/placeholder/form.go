// Package placeholder builds the single-field forms used to collect one
// value at a time on the one-off send steps.
package placeholder

import (
	"strings"

	apperrors "github.com/cds-snc/notification-admin-sub002/internal/common/errors"
	"github.com/cds-snc/notification-admin-sub002/internal/models"
	"github.com/cds-snc/notification-admin-sub002/internal/send/recipients"
)

type Kind string

const (
	KindText  Kind = "text"
	KindEmail Kind = "email"
	KindPhone Kind = "phone"
)

// Form validates one placeholder value. Value holds the trimmed input and
// Normalised the canonical form after a successful Validate. ErrorKey names
// the catalogue entry behind Error so pages can show it in another language.
type Form struct {
	Name          string
	Label         string
	Kind          Kind
	Optional      bool
	International bool

	Value      string
	Normalised string
	Error      string
	ErrorKey   MessageKey
}

// FormFor picks the validator for name. Recipient placeholders get the
// email or phone validator for their own channel only; everything else is
// free text.
func FormFor(name string, templateType models.TemplateType, optional bool, policy *models.ServicePolicy) *Form {
	f := &Form{
		Name:     name,
		Label:    name,
		Kind:     KindText,
		Optional: optional,
	}
	switch {
	case templateType == models.TemplateTypeEmail && models.NormaliseKey(name) == models.NormaliseKey(models.ColumnEmailAddress):
		f.Kind = KindEmail
		f.Label = Message(LabelEmailAddress)
		f.Optional = false
	case templateType == models.TemplateTypeSMS && models.NormaliseKey(name) == models.NormaliseKey(models.ColumnPhoneNumber):
		f.Kind = KindPhone
		f.Label = Message(LabelPhoneNumber)
		f.Optional = false
		f.International = policy != nil && policy.HasPermission(models.PermissionInternationalSMS)
	}
	return f
}

// Validate trims raw, checks it and records the result on the form. The
// returned error carries the catalogue message.
func (f *Form) Validate(raw string) error {
	f.Value = strings.TrimSpace(raw)
	f.Normalised = ""
	f.Error = ""
	f.ErrorKey = ""

	if f.Value == "" {
		if f.Optional {
			return nil
		}
		return f.fail(ErrCannotBeEmpty)
	}

	switch f.Kind {
	case KindEmail:
		addr, err := recipients.ValidateEmailAddress(f.Value)
		if err != nil {
			return f.fail(ErrInvalidEmail)
		}
		f.Normalised = addr
	case KindPhone:
		number, err := recipients.ValidatePhoneNumber(f.Value, f.International)
		if err != nil {
			return f.fail(phoneErrorKey(err))
		}
		f.Normalised = number
	default:
		f.Normalised = f.Value
	}
	return nil
}

func (f *Form) fail(key MessageKey) error {
	f.ErrorKey = key
	f.Error = Message(key)
	return apperrors.NewFormValidationFailedError(f.Name, f.Error)
}

func phoneErrorKey(err error) MessageKey {
	switch recipients.ErrorMessage(err) {
	case recipients.MsgPhoneLettersOrSymbols:
		return ErrPhoneLettersOrSymbols
	case recipients.MsgPhoneTooManyDigits:
		return ErrPhoneTooManyDigits
	case recipients.MsgPhoneNotEnoughDigits:
		return ErrPhoneNotEnoughDigits
	case recipients.MsgPhoneNotLocal:
		return ErrPhoneNotLocal
	case recipients.MsgPhoneNotInternational:
		return ErrPhoneNotInternational
	}
	return ErrPhoneInvalid
}
