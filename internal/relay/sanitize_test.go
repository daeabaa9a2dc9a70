package relay

import (
	"strings"
	"testing"
)

func TestEscapeText(t *testing.T) {
	got := escapeText(`Tom & Jerry <b>"bold"</b> it's`)
	want := "Tom &amp; Jerry &lt;b&gt;&quot;bold&quot;&lt;/b&gt; it&#39;s"
	if got != want {
		t.Errorf("escapeText = %q, want %q", got, want)
	}
}

func TestEscapeAttr_OnlyQuotes(t *testing.T) {
	got := escapeAttr(`https://example.com/?a=1&b="x"`)
	if !strings.Contains(got, "&b=") {
		t.Errorf("attribute escaping must not touch ampersands: %q", got)
	}
	if strings.Contains(got, `"x"`) {
		t.Errorf("attribute escaping must neutralize quotes: %q", got)
	}
	if got != `https://example.com/?a=1&b=&quot;x&quot;` {
		t.Errorf("unexpected result: %q", got)
	}
}

func TestCleanText_ScriptPayload(t *testing.T) {
	got := cleanText("<script>alert(1)</script>Bob")
	if strings.Contains(got, "<script>") {
		t.Fatalf("script markup survived sanitization: %q", got)
	}
	if !strings.Contains(got, "Bob") {
		t.Fatalf("legitimate text should survive: %q", got)
	}
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text untouched", "hello world", "hello world"},
		{"tags removed", "<b>bold</b> move", "bold move"},
		{"script content discarded", "<script>alert(1)</script>after", "after"},
		{"style content discarded", "<style>body{}</style>text", "text"},
		{"escaped entities preserved", "a &amp; b", "a &amp; b"},
		{"nested markup", "<div><p>deep</p></div>", "deep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripMarkup(tt.input); got != tt.want {
				t.Errorf("stripMarkup(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := normalizeEmail("  Jane.Doe@Example.COM "); got != "jane.doe@example.com" {
		t.Errorf("normalizeEmail = %q", got)
	}
}

func TestSanitize_EmailNeverEscaped(t *testing.T) {
	sub := &Submission{
		Name:    `<i>Jane</i> O'Brien`,
		Phone:   "(555) 123-4567",
		Email:   "Jane+Leads@Example.com",
		Address: "1 Main St & Oak Ave",
		Message: "door <script>alert(1)</script> stuck",
	}
	clean := sub.Sanitize()

	if clean.Email != "jane+leads@example.com" {
		t.Errorf("email must be normalized, not escaped: %q", clean.Email)
	}
	if strings.Contains(clean.Email, "&amp;") || strings.Contains(clean.Email, "&#39;") {
		t.Errorf("email must never contain HTML entities: %q", clean.Email)
	}
	if !strings.Contains(clean.Name, "&#39;Brien") {
		t.Errorf("name apostrophe should be escaped: %q", clean.Name)
	}
	if strings.Contains(clean.Name, "<i>") {
		t.Errorf("name markup should be neutralized: %q", clean.Name)
	}
	if !strings.Contains(clean.Address, "&amp;") {
		t.Errorf("address ampersand should be escaped: %q", clean.Address)
	}
	if strings.Contains(clean.Message, "<script>") || strings.Contains(clean.Message, "alert(1)</script>") {
		t.Errorf("message script should be neutralized: %q", clean.Message)
	}
}

func TestSanitize_ServicesDropEmpties(t *testing.T) {
	sub := &Submission{Services: []string{" Spring Repair ", "", "  ", "<b>Opener</b>"}}
	clean := sub.Sanitize()
	if len(clean.Services) != 2 {
		t.Fatalf("expected 2 cleaned services, got %v", clean.Services)
	}
	if clean.Services[0] != "Spring Repair" {
		t.Errorf("unexpected first service: %q", clean.Services[0])
	}
	if strings.Contains(clean.Services[1], "<b>") {
		t.Errorf("service markup should be neutralized: %q", clean.Services[1])
	}
}
