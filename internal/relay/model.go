package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Submission type tags. TypeTest marks internal smoke-test traffic and is
// exempt from CAPTCHA enforcement.
const (
	TypeEstimateRequest = "estimate_request"
	TypeTest            = "test"
)

// Submission is one inbound lead form post. It lives for a single request
// and is never persisted.
type Submission struct {
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	Phone    string   `json:"phone"`
	Email    string   `json:"email"`
	Address  string   `json:"address"`
	Services []string `json:"services"`
	Message  string   `json:"message"`

	// Attribution, informational only
	PageURL     string `json:"pageUrl"`
	Referrer    string `json:"referrer"`
	UTMSource   string `json:"utmSource"`
	UTMMedium   string `json:"utmMedium"`
	UTMCampaign string `json:"utmCampaign"`
	UTMTerm     string `json:"utmTerm"`
	UTMContent  string `json:"utmContent"`

	// Anti-abuse, not business data
	RecaptchaToken string `json:"recaptchaToken"`
	Honeypot       string `json:"honeypot"`
	Company        string `json:"company"` // alternate decoy name used by some form variants
}

var errEmptyBody = errors.New("empty request body")

// ParseSubmission decodes a request body into a Submission. Some clients
// double-encode the payload as a JSON string; that shape is accepted too.
func ParseSubmission(body []byte) (*Submission, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errEmptyBody
	}

	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, err
		}
		trimmed = []byte(inner)
	}

	var sub Submission
	if err := json.Unmarshal(trimmed, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// MissingFields returns the required contact fields that are absent or
// blank, in a stable order.
func (s *Submission) MissingFields() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", s.Name},
		{"phone", s.Phone},
		{"email", s.Email},
		{"address", s.Address},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// TrapField reports whether a decoy field was populated, and which one.
// Legitimate users never fill these; a non-empty value signals a bot.
func (s *Submission) TrapField() (string, bool) {
	if strings.TrimSpace(s.Honeypot) != "" {
		return "honeypot", true
	}
	if strings.TrimSpace(s.Company) != "" {
		return "company", true
	}
	return "", false
}

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneSeparators = regexp.MustCompile(`[\s\-().]`)
	phonePattern    = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
)

func validEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// normalizePhone strips common separator characters (spaces, dashes,
// parentheses, dots) so "(555) 123-4567" validates as 5551234567.
func normalizePhone(s string) string {
	return phoneSeparators.ReplaceAllString(strings.TrimSpace(s), "")
}

func validPhone(s string) bool {
	return phonePattern.MatchString(normalizePhone(s))
}
