package notify

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	brazilCountryCode = "55"
	// whatsappPreviewLines caps how many delivered lines ride in the link so
	// the URL stays shareable.
	whatsappPreviewLines = 5
)

// NormalizePhone strips formatting from a phone number and prefixes the
// Brazilian country code when absent.
func NormalizePhone(number string) string {
	var digits strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	cleaned := digits.String()
	if cleaned == "" {
		return ""
	}
	if !strings.HasPrefix(cleaned, brazilCountryCode) {
		cleaned = brazilCountryCode + cleaned
	}
	return cleaned
}

// WhatsAppLink builds a wa.me deep link carrying the order summary and a
// preview of the delivered lines. Returns empty when there is no usable number.
func WhatsAppLink(number, orderID string, lines []string) string {
	phone := NormalizePhone(number)
	if phone == "" {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Order %s delivered!\n", orderID)
	preview := lines
	truncated := false
	if len(preview) > whatsappPreviewLines {
		preview = preview[:whatsappPreviewLines]
		truncated = true
	}
	for _, line := range preview {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		b.WriteString(trimmed)
		b.WriteString("\n")
	}
	if truncated {
		b.WriteString("...")
	}

	return "https://wa.me/" + phone + "?text=" + url.QueryEscape(strings.TrimSuffix(b.String(), "\n"))
}
