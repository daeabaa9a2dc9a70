package relay

import (
	"strings"

	"golang.org/x/net/html"
)

// textEscaper escapes the five reserved HTML characters for text-node
// contexts.
var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// attrEscaper escapes only quotes, for values interpolated inside a quoted
// attribute such as an href. URLs must keep &, < and > intact to stay
// clickable, so this is deliberately narrower than textEscaper.
var attrEscaper = strings.NewReplacer(
	`"`, "&quot;",
	"'", "&#39;",
)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

// stripMarkup removes any element structure from s, keeping only text
// content. Script and style bodies are discarded entirely. Raw token bytes
// are kept so entities already escaped upstream stay escaped. Note that
// cleanText escapes before stripping, which leaves no raw angle brackets;
// on that path this pass is a no-op and only does work for callers that
// feed it unescaped markup.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skipDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			if n := string(name); n == "script" || n == "style" {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if n := string(name); (n == "script" || n == "style") && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Raw())
			}
		}
	}
}

// cleanText is the full sanitization pass for free-text fields headed for
// the email body: trim, escape reserved characters, then strip any residual
// markup the escape pass did not neutralize.
func cleanText(s string) string {
	return stripMarkup(escapeText(strings.TrimSpace(s)))
}

func cleanAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if cleaned := cleanText(v); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

// normalizeEmail canonicalizes an address for the reply-to header. It is
// never HTML-escaped; it must remain a deliverable address.
func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// cleanSubmission holds the sanitized view of a submission used for email
// composition. PageURL and Referrer stay raw here; they are escaped per
// context (attribute vs text node) at render time.
type cleanSubmission struct {
	Type     string
	Name     string
	Phone    string
	Email    string
	Address  string
	Services []string
	Message  string

	PageURL     string
	Referrer    string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	UTMTerm     string
	UTMContent  string
}

// Sanitize produces the outbound-safe view of the submission.
func (s *Submission) Sanitize() *cleanSubmission {
	return &cleanSubmission{
		Type:     strings.TrimSpace(s.Type),
		Name:     cleanText(s.Name),
		Phone:    cleanText(s.Phone),
		Email:    normalizeEmail(s.Email),
		Address:  cleanText(s.Address),
		Services: cleanAll(s.Services),
		Message:  cleanText(s.Message),

		PageURL:     strings.TrimSpace(s.PageURL),
		Referrer:    strings.TrimSpace(s.Referrer),
		UTMSource:   cleanText(s.UTMSource),
		UTMMedium:   cleanText(s.UTMMedium),
		UTMCampaign: cleanText(s.UTMCampaign),
		UTMTerm:     cleanText(s.UTMTerm),
		UTMContent:  cleanText(s.UTMContent),
	}
}
