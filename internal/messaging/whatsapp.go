package messaging

import (
	"net/url"
	"strings"
)

// WhatsApp builds wa.me deep links for customer phones. The front desk
// uses these to ping a customer when their turn comes up.
type WhatsApp struct {
	countryCode string
}

func NewWhatsApp(countryCode string) *WhatsApp {
	if countryCode == "" {
		countryCode = "55"
	}
	return &WhatsApp{countryCode: countryCode}
}

// FormatPhone strips everything but digits and guarantees the country
// prefix.
func (w *WhatsApp) FormatPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, w.countryCode) {
		return digits
	}
	return w.countryCode + digits
}

// Link returns the chat URL for a phone with a pre-filled message.
func (w *WhatsApp) Link(phone, message string) string {
	u := url.URL{
		Scheme: "https",
		Host:   "wa.me",
		Path:   "/" + w.FormatPhone(phone),
	}
	if message != "" {
		q := url.Values{}
		q.Set("text", message)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
