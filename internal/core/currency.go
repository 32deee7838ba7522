package core

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

type displayLocale struct {
	tag language.Tag
	// symbolAfter renders "1.234,50 €" instead of "€1.234,50".
	symbolAfter bool
}

// displayLocales picks the locale used to render a currency. Anything not
// listed renders with American English conventions.
var displayLocales = map[string]displayLocale{
	"USD": {tag: language.AmericanEnglish},
	"EUR": {tag: language.German, symbolAfter: true},
	"GBP": {tag: language.BritishEnglish},
}

// FormatCurrency renders amount in the given ISO 4217 currency, e.g.
// "$1,234.50". It never fails: an unknown code or a formatter error yields
// the plain fixed-point literal.
func FormatCurrency(code string, amount decimal.Decimal) (out string) {
	code = strings.ToUpper(strings.TrimSpace(code))
	defer func() {
		if r := recover(); r != nil {
			out = fallbackLiteral(code, amount)
		}
	}()

	unit, err := currency.ParseISO(code)
	if err != nil {
		return fallbackLiteral(code, amount)
	}
	loc, ok := displayLocales[code]
	if !ok {
		loc = displayLocale{tag: language.AmericanEnglish}
	}
	p := message.NewPrinter(loc.tag)

	scale, _ := currency.Standard.Rounding(unit)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	sym := p.Sprint(currency.Symbol(unit))
	group, point := separators(p)
	num := formatFixed(amount.StringFixed(int32(scale)), group, point)
	if loc.symbolAfter {
		return sign + num + " " + sym
	}
	return sign + sym + num
}

// separators asks the printer how it writes 1234.5 and returns its grouping
// and decimal marks.
func separators(p *message.Printer) (group, point string) {
	sample := []rune(p.Sprint(number.Decimal(1234.5, number.Scale(1))))
	if len(sample) != 7 {
		return ",", "."
	}
	return string(sample[1]), string(sample[5])
}

// formatFixed regroups a StringFixed literal ("1234567.89") with the given
// marks. Digits are never routed through float64.
func formatFixed(fixed, group, point string) string {
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(group)
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteString(point)
		b.WriteString(frac)
	}
	return b.String()
}

func fallbackLiteral(code string, amount decimal.Decimal) string {
	if code == "" {
		return amount.StringFixed(2)
	}
	return code + " " + amount.StringFixed(2)
}
