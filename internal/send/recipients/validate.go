// internal/send/recipients/validate.go
package recipients

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
)

// Validation messages shown next to a bad recipient.
const (
	MsgEmailInvalid          = "Not a valid email address"
	MsgPhoneLettersOrSymbols = "Must not contain letters or symbols"
	MsgPhoneTooManyDigits    = "Too many digits"
	MsgPhoneNotEnoughDigits  = "Not enough digits"
	MsgPhoneInvalid          = "Not a valid phone number"
	MsgPhoneNotLocal         = "Not a valid local number"
	MsgPhoneNotInternational = "Not a valid international number"
	MsgMissing               = "Missing"
	MsgNotInSafelist         = "You cannot send to this recipient while your service is in trial mode"
)

// ValidationError is a recipient that failed a check.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// ErrorMessage extracts the user-visible message from a validation error.
func ErrorMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

var validate = validator.New()

const maxEmailLength = 320

// ValidateEmailAddress checks syntax: local part, @, and a domain with at
// least one dot. The address is returned trimmed.
func ValidateEmailAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" || len(address) > maxEmailLength {
		return "", invalid(MsgEmailInvalid)
	}
	if err := validate.Var(address, "email"); err != nil {
		return "", invalid(MsgEmailInvalid)
	}
	at := strings.LastIndex(address, "@")
	domain := address[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") || strings.Contains(domain, "..") {
		return "", invalid(MsgEmailInvalid)
	}
	return address, nil
}

// ValidatePhoneNumber accepts a North American number, or any possible
// international number when international is true. It returns the E.164
// form.
func ValidatePhoneNumber(number string, international bool) (string, error) {
	digits, hasPlus, err := phoneDigits(number)
	if err != nil {
		return "", err
	}

	if isLocal(digits, hasPlus) {
		return validateLocal(digits)
	}
	if !international {
		return "", invalid(MsgPhoneNotLocal)
	}
	num, err := phonenumbers.Parse("+"+digits, "")
	if err != nil || !phonenumbers.IsPossibleNumber(num) {
		return "", invalid(MsgPhoneNotInternational)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// IsInternationalPhoneNumber reports whether number is outside the +1 zone.
func IsInternationalPhoneNumber(number string) bool {
	digits, hasPlus, err := phoneDigits(number)
	if err != nil {
		return false
	}
	return !isLocal(digits, hasPlus)
}

func phoneDigits(number string) (digits string, hasPlus bool, err error) {
	number = strings.TrimSpace(number)
	var b strings.Builder
	for i, r := range number {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+' && i == 0:
			hasPlus = true
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.' || r == ' ':
		default:
			return "", false, invalid(MsgPhoneLettersOrSymbols)
		}
	}
	digits = b.String()
	if strings.HasPrefix(digits, "00") && !hasPlus {
		digits = strings.TrimPrefix(digits, "00")
		hasPlus = true
	}
	if digits == "" {
		return "", false, invalid(MsgPhoneNotEnoughDigits)
	}
	return digits, hasPlus, nil
}

func isLocal(digits string, hasPlus bool) bool {
	if hasPlus {
		return strings.HasPrefix(digits, "1")
	}
	return len(digits) <= 10 || (len(digits) == 11 && digits[0] == '1')
}

func validateLocal(digits string) (string, error) {
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	switch {
	case len(digits) > 10:
		return "", invalid(MsgPhoneTooManyDigits)
	case len(digits) < 10:
		return "", invalid(MsgPhoneNotEnoughDigits)
	}
	if digits[0] < '2' || digits[3] < '2' {
		return "", invalid(MsgPhoneInvalid)
	}
	return "+1" + digits, nil
}

// NormaliseIdentity canonicalises an email or phone number for safelist
// comparison.
func NormaliseIdentity(identity string) string {
	identity = strings.TrimSpace(identity)
	if strings.Contains(identity, "@") {
		return strings.ToLower(identity)
	}
	if e164, err := ValidatePhoneNumber(identity, true); err == nil {
		return e164
	}
	return strings.ToLower(identity)
}

// Safelist is a set of normalised identities.
type Safelist map[string]struct{}

func NewSafelist(identities []string) Safelist {
	s := make(Safelist, len(identities))
	for _, id := range identities {
		if strings.TrimSpace(id) == "" {
			continue
		}
		s[NormaliseIdentity(id)] = struct{}{}
	}
	return s
}

func (s Safelist) Contains(identity string) bool {
	_, ok := s[NormaliseIdentity(identity)]
	return ok
}
