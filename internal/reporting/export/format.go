package export

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLocale is used when the configured locale cannot be parsed.
const DefaultLocale = "es-DO"

// Formatter renders amounts for humans in one locale.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// NewFormatter builds a formatter for a BCP 47 locale such as "es-DO".
func NewFormatter(locale string) Formatter {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.MustParse(DefaultLocale)
	}
	return Formatter{tag: tag, printer: message.NewPrinter(tag)}
}

// Locale returns the formatter language tag.
func (f Formatter) Locale() string {
	return f.tag.String()
}

// Money formats an amount with two decimals and locale grouping.
func (f Formatter) Money(amount decimal.Decimal) string {
	if f.printer == nil {
		return amount.StringFixed(2)
	}
	return f.printer.Sprintf("%.2f", amount.Round(2).InexactFloat64())
}

// Days formats a fractional day count with one decimal.
func (f Formatter) Days(days float64) string {
	if f.printer == nil {
		return decimal.NewFromFloat(days).StringFixed(1)
	}
	return f.printer.Sprintf("%.1f", days)
}
