package reachfive

import (
	"regexp"
	"strings"
)

// Identifier kinds a user can log in with
const (
	IdentifierEmail  = "email"
	IdentifierPhone  = "phone_number"
	IdentifierCustom = "custom_identifier"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{6,15}$`)
)

// Identifier names exactly one of the ways a user is known
type Identifier struct {
	Email            string
	PhoneNumber      string
	CustomIdentifier string
}

// Kind returns which identifier is set, or "" if none is
func (id Identifier) Kind() string {
	switch {
	case id.Email != "":
		return IdentifierEmail
	case id.PhoneNumber != "":
		return IdentifierPhone
	case id.CustomIdentifier != "":
		return IdentifierCustom
	}
	return ""
}

// Validate checks that exactly one identifier is set and well formed
func (id Identifier) Validate() error {
	set := 0
	for _, v := range []string{id.Email, id.PhoneNumber, id.CustomIdentifier} {
		if v != "" {
			set++
		}
	}
	switch {
	case set == 0:
		return &ValidationError{Field: "identifier", Message: "email, phone number or custom identifier required"}
	case set > 1:
		return &ValidationError{Field: "identifier", Message: "only one of email, phone number or custom identifier may be set"}
	}
	if id.Email != "" && !IsValidEmail(id.Email) {
		return &ValidationError{Field: IdentifierEmail, Message: "invalid email format"}
	}
	if id.PhoneNumber != "" && !IsValidPhone(id.PhoneNumber) {
		return &ValidationError{Field: IdentifierPhone, Message: "invalid phone number"}
	}
	return nil
}

// ParseIdentifier sorts a free form login string into the right identifier field
func ParseIdentifier(s string) Identifier {
	s = strings.TrimSpace(s)
	switch DetectIdentifierType(s) {
	case IdentifierEmail:
		return Identifier{Email: s}
	case IdentifierPhone:
		return Identifier{PhoneNumber: s}
	}
	return Identifier{CustomIdentifier: s}
}

// DetectIdentifierType attempts to detect what type of identifier was provided
func DetectIdentifierType(s string) string {
	if strings.Contains(s, "@") {
		return IdentifierEmail
	}
	// Check if it looks like a phone number (starts with + or digit)
	if len(s) > 0 && (s[0] == '+' || (s[0] >= '0' && s[0] <= '9')) && IsValidPhone(s) {
		return IdentifierPhone
	}
	return IdentifierCustom
}

// IsValidEmail performs a syntactic email check
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// IsValidPhone accepts E.164 like numbers, ignoring common separators
func IsValidPhone(phone string) bool {
	cleaned := strings.NewReplacer("-", "", " ", "", "(", "", ")", "", ".", "").Replace(phone)
	return phoneRegex.MatchString(cleaned)
}

// ProfileValidator checks a signup profile before it is sent to the backend
type ProfileValidator func(profile *ProfileSignupRequest) error

// DefaultProfileValidator only rejects what the backend would reject for sure.
// Password strength is left to the backend policy.
var DefaultProfileValidator ProfileValidator = func(profile *ProfileSignupRequest) error {
	if profile == nil {
		return &ValidationError{Message: "profile required"}
	}
	if profile.Password == "" {
		return &ValidationError{Field: "password", Message: "is required"}
	}
	if profile.Email == "" && profile.PhoneNumber == "" && profile.CustomIdentifier == "" {
		return &ValidationError{Field: "identifier", Message: "email, phone number or custom identifier required"}
	}
	if profile.Email != "" && !IsValidEmail(profile.Email) {
		return &ValidationError{Field: IdentifierEmail, Message: "invalid email format"}
	}
	if profile.PhoneNumber != "" && !IsValidPhone(profile.PhoneNumber) {
		return &ValidationError{Field: IdentifierPhone, Message: "invalid phone number"}
	}
	return nil
}
