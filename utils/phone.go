package utils

import (
	"strings"
	"unicode"
)

// NormalizePhone keeps only the ASCII digits of a phone number.
// Two leads are the same prospect when their normalized phones match.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneKey is the grouping key used by the offline dedup pass: the digits
// when there are any, otherwise the trimmed lowercased raw value
func PhoneKey(raw string) string {
	if digits := NormalizePhone(raw); digits != "" {
		return digits
	}
	return strings.ToLower(strings.TrimSpace(raw))
}

// MessagingContactEmail is the synthesized contact identity given to leads
// that arrive through the messaging channel without an email address
func MessagingContactEmail(digits string) string {
	return "whatsapp+" + digits + "@lead.local"
}

// NamePrefix returns the first n letters of name in upper case, padded with X
func NamePrefix(name string, n int) string {
	var b strings.Builder
	for _, r := range name {
		if b.Len() >= n {
			break
		}
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	for b.Len() < n {
		b.WriteByte('X')
	}
	return b.String()
}
