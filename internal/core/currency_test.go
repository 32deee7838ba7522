package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		code   string
		amount string
		want   string
	}{
		{"USD", "200", "$200.00"},
		{"usd", "1234.5", "$1,234.50"},
		{"USD", "0", "$0.00"},
		{"USD", "-12.5", "-$12.50"},
		{"GBP", "10", "£10.00"},
		{"EUR", "1234.5", "1.234,50 €"},
		{"EUR", "-3", "-3,00 €"},
		{"USD", "12345678901234567.89", "$12,345,678,901,234,567.89"},
		{"USD", "100000", "$100,000.00"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatCurrency(tc.code, dec(tc.amount)), "%s %s", tc.code, tc.amount)
	}
}

func TestFormatCurrency_ZeroDecimalCurrency(t *testing.T) {
	got := FormatCurrency("JPY", dec("1500.4"))
	assert.Contains(t, got, "1,500")
	assert.NotContains(t, got, ".")
}

func TestFormatCurrency_Fallback(t *testing.T) {
	assert.Equal(t, "NOPE 12.30", FormatCurrency("nope", dec("12.3")))
	assert.Equal(t, "12.30", FormatCurrency("", dec("12.3")))
}

func TestFormatFixed(t *testing.T) {
	cases := []struct{ in, want string }{
		{"0.00", "0.00"},
		{"999.99", "999.99"},
		{"1000", "1,000"},
		{"123456789.01", "123,456,789.01"},
	}
	for _, tc := range cases {
		if got := formatFixed(tc.in, ",", "."); got != tc.want {
			t.Fatalf("formatFixed(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
