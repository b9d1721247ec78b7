package reporting

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

// DefaultTaxPlaces is the rounding scale of the taxable base when none is set.
const DefaultTaxPlaces int32 = 2

// TaxCalculator splits tax-inclusive totals at a flat rate.
type TaxCalculator struct {
	Rate   decimal.Decimal
	Places int32
}

// Split returns the taxable base and the embedded tax of total. The base is
// rounded to Places decimals and the tax absorbs the remainder, so
// base + tax == total.
func (c TaxCalculator) Split(total decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	divisor := one.Add(c.Rate)
	if divisor.Sign() <= 0 {
		return total, decimal.Zero
	}
	places := c.Places
	if places <= 0 {
		places = DefaultTaxPlaces
	}
	base := total.DivRound(divisor, places)
	return base, total.Sub(base)
}
