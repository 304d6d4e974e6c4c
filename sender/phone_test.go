package sender

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSMSPhone(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"local eleven digits", "03001234567", "+923001234567"},
		{"already international", "+14155550100", "+14155550100"},
		{"surrounding spaces", " 03001234567 ", "+923001234567"},
		{"ten digits left alone", "3001234567", "3001234567"},
		{"non digit characters left alone", "0300-123456", "0300-123456"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeSMSPhone(tc.in, DefaultCountryCode))
		})
	}
}

func TestNormalizeSMSPhone_CustomCountryCode(t *testing.T) {
	assert.Equal(t, "+443001234567", NormalizeSMSPhone("03001234567", "44"))
}

func TestDigitsOnlyPhone(t *testing.T) {
	assert.Equal(t, "923001234567", DigitsOnlyPhone("0300 1234567", "92"))
	assert.Equal(t, "14155550100", DigitsOnlyPhone("+1 (415) 555-0100", "92"))
	assert.Equal(t, "447911123456", DigitsOnlyPhone("00447911123456", "92"))
	assert.Equal(t, "", DigitsOnlyPhone("n/a", "92"))
}

func TestWhatsAppAddress(t *testing.T) {
	assert.Equal(t, "whatsapp:+923001234567", WhatsAppAddress("03001234567", "92"))
	assert.Equal(t, "", WhatsAppAddress("", "92"))
}
