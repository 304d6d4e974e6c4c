package sender

import "strings"

// DefaultCountryCode is used to rewrite local numbers that start with 0.
const DefaultCountryCode = "92"

// NormalizeSMSPhone rewrites an 11-digit local number starting with 0 to its
// +<country code> form. Numbers starting with + pass through, anything else
// is returned as-is.
func NormalizeSMSPhone(phone, countryCode string) string {
	p := strings.TrimSpace(phone)
	if strings.HasPrefix(p, "+") {
		return p
	}
	if len(p) == 11 && p[0] == '0' && isDigits(p) {
		return "+" + countryCode + p[1:]
	}
	return p
}

// DigitsOnlyPhone returns the number in digits-only international format:
// symbols are stripped and a leading 0 is replaced by the country code.
func DigitsOnlyPhone(phone, countryCode string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	if strings.HasPrefix(d, "00") {
		return d[2:]
	}
	if strings.HasPrefix(d, "0") {
		return countryCode + d[1:]
	}
	return d
}

// WhatsAppAddress is the channel-prefixed destination used by Twilio.
func WhatsAppAddress(phone, countryCode string) string {
	d := DigitsOnlyPhone(phone, countryCode)
	if d == "" {
		return ""
	}
	return "whatsapp:+" + d
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
