package email

import "strings"

// Template bodies for automation emails. {{name}} is replaced with the
// recipient's display name; an empty name degrades to "there".
var templates = map[string]string{
	"nurture-1": "Hi {{name}},\n\n" +
		"Thanks for your interest. Over the next few days we'll share a couple of short pointers on getting value quickly.\n\n" +
		"If you'd rather talk sooner, just reply to this email.\n",
	"nurture-2": "Hi {{name}},\n\n" +
		"Quick tip: most teams see the biggest win by wiring their lead form first, so every enquiry lands in one place.\n",
	"nurture-3": "Hi {{name}},\n\n" +
		"One more thing before we leave you in peace: if anything was unclear, a fifteen-minute call usually sorts it out. Just reply and we'll set it up.\n",
	"demo-calendar-link": "Hi {{name}},\n\n" +
		"Great to see you're ready for a closer look. Pick any slot that suits you and we'll walk you through it:\n\n" +
		"{{calendar_url}}\n",
	"interest-resource": "Hi {{name}},\n\n" +
		"Here are a few resources other teams at your stage found useful. No strings attached.\n",
}

// RenderTemplate produces the body for a template ID.
// Unknown IDs yield ("", false) so callers can fail loudly instead of
// sending an empty email.
func RenderTemplate(templateID, name, calendarURL string) (string, bool) {
	body, ok := templates[templateID]
	if !ok {
		return "", false
	}
	if strings.TrimSpace(name) == "" {
		name = "there"
	}
	body = strings.ReplaceAll(body, "{{name}}", name)
	body = strings.ReplaceAll(body, "{{calendar_url}}", calendarURL)
	return body, true
}
