package placeholder

import "fmt"

// MessageKey names an entry in the catalogue.
type MessageKey string

const (
	ErrCannotBeEmpty         MessageKey = "cannot_be_empty"
	ErrInvalidEmail          MessageKey = "invalid_email"
	ErrPhoneLettersOrSymbols MessageKey = "phone_letters_or_symbols"
	ErrPhoneTooManyDigits    MessageKey = "phone_too_many_digits"
	ErrPhoneNotEnoughDigits  MessageKey = "phone_not_enough_digits"
	ErrPhoneInvalid          MessageKey = "phone_invalid"
	ErrPhoneNotLocal         MessageKey = "phone_not_local"
	ErrPhoneNotInternational MessageKey = "phone_not_international"
	LabelEmailAddress        MessageKey = "label_email_address"
	LabelPhoneNumber         MessageKey = "label_phone_number"
	SkipUseMyEmail           MessageKey = "skip_use_my_email"
	SkipUseMyPhone           MessageKey = "skip_use_my_phone"
	StepHeadingOf            MessageKey = "step_heading_of"
)

var catalogue = map[string]map[MessageKey]string{
	"en": {
		ErrCannotBeEmpty:         "Cannot be empty",
		ErrInvalidEmail:          "Not a valid email address",
		ErrPhoneLettersOrSymbols: "Must not contain letters or symbols",
		ErrPhoneTooManyDigits:    "Too many digits",
		ErrPhoneNotEnoughDigits:  "Not enough digits",
		ErrPhoneInvalid:          "Not a valid phone number",
		ErrPhoneNotLocal:         "Not a valid local number",
		ErrPhoneNotInternational: "Not a valid international number",
		LabelEmailAddress:        "Email address",
		LabelPhoneNumber:         "Phone number",
		SkipUseMyEmail:           "Use my email address",
		SkipUseMyPhone:           "Use my phone number",
		StepHeadingOf:            "Step %d of %d",
	},
	"fr": {
		ErrCannotBeEmpty:         "Ne peut pas être vide",
		ErrInvalidEmail:          "Adresse courriel non valide",
		ErrPhoneLettersOrSymbols: "Ne doit pas contenir de lettres ni de symboles",
		ErrPhoneTooManyDigits:    "Trop de chiffres",
		ErrPhoneNotEnoughDigits:  "Pas assez de chiffres",
		ErrPhoneInvalid:          "Numéro de téléphone non valide",
		ErrPhoneNotLocal:         "Numéro local non valide",
		ErrPhoneNotInternational: "Numéro international non valide",
		LabelEmailAddress:        "Adresse courriel",
		LabelPhoneNumber:         "Numéro de téléphone",
		SkipUseMyEmail:           "Utiliser mon adresse courriel",
		SkipUseMyPhone:           "Utiliser mon numéro de téléphone",
		StepHeadingOf:            "Étape %d de %d",
	},
}

// Message returns the English text for key.
func Message(key MessageKey, args ...interface{}) string {
	return Localised("en", key, args...)
}

// Localised returns key in lang, falling back to English.
func Localised(lang string, key MessageKey, args ...interface{}) string {
	msgs, ok := catalogue[lang]
	if !ok {
		msgs = catalogue["en"]
	}
	msg, ok := msgs[key]
	if !ok {
		msg = catalogue["en"][key]
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}
