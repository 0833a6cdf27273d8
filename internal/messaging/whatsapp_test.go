package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPhone(t *testing.T) {
	w := NewWhatsApp("55")

	tests := []struct {
		in   string
		want string
	}{
		{"+55 11 91234-5678", "5511912345678"},
		{"11 91234-5678", "5511912345678"},
		{"(11) 91234-5678", "5511912345678"},
		{"5511912345678", "5511912345678"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, w.FormatPhone(tt.in), tt.in)
	}
}

func TestLink(t *testing.T) {
	w := NewWhatsApp("")

	link := w.Link("11 91234-5678", "Sua vez chegou!")
	assert.Equal(t, "https://wa.me/5511912345678?text=Sua+vez+chegou%21", link)

	link = w.Link("+55 11 91234-5678", "")
	assert.Equal(t, "https://wa.me/5511912345678", link)
}
