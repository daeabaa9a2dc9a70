package relay

import (
	"fmt"
	"strings"
	"time"
)

// buildSubject selects the subject template for the submission type and
// appends the sanitized name when present.
func buildSubject(typ, name string) string {
	var base string
	switch typ {
	case TypeEstimateRequest:
		base = "New Estimate Request"
	case TypeTest:
		base = "Test Submission"
	default:
		base = "New Website Submission"
	}
	if name != "" {
		base += " from " + name
	}
	return base
}

type emailRow struct {
	label string
	html  string
	text  string
}

// buildRows renders one row per populated field; empty fields produce no
// row. Link fields get attribute escaping inside href and text escaping for
// the visible value.
func buildRows(c *cleanSubmission, submittedAt time.Time) []emailRow {
	var rows []emailRow

	addText := func(label, value string) {
		if value == "" {
			return
		}
		// value is already escaped by the sanitization pass
		rows = append(rows, emailRow{label: label, html: value, text: value})
	}
	addLink := func(label, rawURL string) {
		if rawURL == "" {
			return
		}
		rows = append(rows, emailRow{
			label: label,
			html:  fmt.Sprintf(`<a href="%s">%s</a>`, escapeAttr(rawURL), escapeText(rawURL)),
			text:  rawURL,
		})
	}

	addText("Name", c.Name)
	addText("Phone", c.Phone)
	// The address is kept unescaped for the Reply-To header; this row is a
	// text-node context, so it gets escaped here.
	addText("Email", escapeText(c.Email))
	addText("Address", c.Address)
	addText("Services", strings.Join(c.Services, ", "))
	addText("Message", c.Message)
	addLink("Page", c.PageURL)
	addLink("Referrer", c.Referrer)
	addText("UTM Source", c.UTMSource)
	addText("UTM Medium", c.UTMMedium)
	addText("UTM Campaign", c.UTMCampaign)
	addText("UTM Term", c.UTMTerm)
	addText("UTM Content", c.UTMContent)

	stamp := submittedAt.Format("January 2, 2006 at 3:04 PM MST")
	rows = append(rows, emailRow{label: "Submitted", html: escapeText(stamp), text: stamp})

	return rows
}

// buildHTMLBody renders the notification as a simple two-column table.
func buildHTMLBody(rows []emailRow) string {
	var b strings.Builder
	b.WriteString(`<table cellpadding="6" cellspacing="0" border="0">`)
	b.WriteString("\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "<tr><td><strong>%s</strong></td><td>%s</td></tr>\n", row.label, row.html)
	}
	b.WriteString("</table>")
	return b.String()
}

// buildTextBody renders a plain-text fallback for clients that strip HTML.
func buildTextBody(rows []emailRow) string {
	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b, "%s: %s\n", row.label, row.text)
	}
	return b.String()
}
