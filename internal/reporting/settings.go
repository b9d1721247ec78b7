package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Diony-dev/Veloce/internal/ledger"
)

// DefaultTopClients is used when neither caller nor configuration set a size.
const DefaultTopClients = 5

// Defaults are the process wide report settings.
type Defaults struct {
	Location         *time.Location
	TaxRate          decimal.Decimal
	TaxPlaces        int32
	TopClients       int
	OverdueAfterDays int
}

// Settings are the effective report settings of one organization.
type Settings struct {
	Location         *time.Location
	TaxRate          decimal.Decimal
	TaxPlaces        int32
	TopClients       int
	OverdueAfterDays int
}

// Resolve overlays organization overrides on the defaults.
func (d Defaults) Resolve(org ledger.Organization) Settings {
	st := Settings{
		Location:         org.Location(d.Location),
		TaxRate:          d.TaxRate,
		TaxPlaces:        d.TaxPlaces,
		TopClients:       d.TopClients,
		OverdueAfterDays: d.OverdueAfterDays,
	}
	if org.TaxRate.Valid {
		st.TaxRate = org.TaxRate.Decimal
	}
	if org.OverdueAfterDays != nil {
		st.OverdueAfterDays = *org.OverdueAfterDays
	}
	if st.TaxPlaces <= 0 {
		st.TaxPlaces = DefaultTaxPlaces
	}
	if st.TopClients <= 0 {
		st.TopClients = DefaultTopClients
	}
	return st
}
