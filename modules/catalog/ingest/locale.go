package ingest

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// numberFormat holds the separators a source writes numbers with.
// group is zero when the locale does not group digits.
type numberFormat struct {
	decimal rune
	group   rune
}

var invariantNumbers = numberFormat{decimal: '.'}

// numberFormatFor derives the separators of a BCP 47 locale from CLDR data by
// formatting a probe value and reading the separators back.
func numberFormatFor(locale string) (numberFormat, error) {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return numberFormat{}, fmt.Errorf("%w: locale %q: %v", ErrInvalidConfig, locale, err)
	}

	probe := []rune(message.NewPrinter(tag).Sprintf("%.1f", 1234567.5))

	nf := numberFormat{decimal: '.'}
	last := -1
	for i := len(probe) - 1; i >= 0; i-- {
		if !unicode.IsDigit(probe[i]) {
			last = i
			break
		}
	}
	if last < 0 {
		return nf, nil
	}
	nf.decimal = probe[last]
	for _, r := range probe[:last] {
		if !unicode.IsDigit(r) {
			nf.group = r
			break
		}
	}
	return nf, nil
}

func (nf numberFormat) normalize(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		switch {
		case nf.group != 0 && r == nf.group:
			continue
		case nf.group != 0 && unicode.IsSpace(nf.group) && unicode.IsSpace(r):
			continue
		case r == nf.decimal:
			b.WriteRune('.')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseDecimal returns nil when v is empty or not a number.
func (nf numberFormat) parseDecimal(v string) *decimal.Decimal {
	s := nf.normalize(v)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// parseInt returns nil when v is empty, not a number, fractional, or out of int64 range.
func (nf numberFormat) parseInt(v string) *int64 {
	d := nf.parseDecimal(v)
	if d == nil || !d.Equal(d.Truncate(0)) {
		return nil
	}
	bi := d.BigInt()
	if !bi.IsInt64() {
		return nil
	}
	n := bi.Int64()
	return &n
}
