package ledgerhttp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Diony-dev/Veloce/internal/ledger"
	"github.com/Diony-dev/Veloce/internal/shared"
)

// looseNumber accepts a JSON number or a numeric string and keeps the text
// for the service to coerce.
type looseNumber string

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*n = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = looseNumber(strings.TrimSpace(s))
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return fmt.Errorf("expected number, got %s", data)
		}
		*n = looseNumber(num.String())
	}
	return nil
}

type lineItemRequest struct {
	Description string      `json:"description" validate:"required,max=200"`
	Quantity    int         `json:"quantity" validate:"gt=0"`
	UnitPrice   looseNumber `json:"unit_price"`
	ProductID   string      `json:"product_id" validate:"max=64"`
}

type createInvoiceRequest struct {
	Seller        string              `json:"seller" validate:"max=120"`
	Customer      *ledger.CustomerRef `json:"customer"`
	CustomerID    string              `json:"customer_id" validate:"max=64"`
	Items         []lineItemRequest   `json:"items" validate:"required,min=1,max=500,dive"`
	Status        string              `json:"status" validate:"omitempty,oneof=Borrador Pendiente Enviado Pagado Vencido"`
	PaymentMethod string              `json:"payment_method" validate:"max=40"`
	IssuedAt      *time.Time          `json:"issued_at"`
}

func (req createInvoiceRequest) toInput() (ledger.CreateInvoiceInput, error) {
	input := ledger.CreateInvoiceInput{
		Seller:        strings.TrimSpace(req.Seller),
		Customer:      ledger.NoCustomer(),
		CustomerID:    strings.TrimSpace(req.CustomerID),
		Status:        ledger.InvoiceStatus(req.Status),
		PaymentMethod: ledger.PaymentMethod(strings.TrimSpace(req.PaymentMethod)),
	}
	if req.Customer != nil {
		input.Customer = *req.Customer
	}
	if req.IssuedAt != nil {
		input.IssuedAt = *req.IssuedAt
	}
	for i, item := range req.Items {
		price, err := ledger.ParseAmount(string(item.UnitPrice))
		if err != nil {
			return ledger.CreateInvoiceInput{}, fmt.Errorf("items[%d]: %w", i, err)
		}
		input.Items = append(input.Items, ledger.LineItemInput{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   price,
			ProductID:   strings.TrimSpace(item.ProductID),
		})
	}
	return input, nil
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=Borrador Pendiente Enviado Pagado Vencido"`
}

type createExpenseRequest struct {
	Description string      `json:"description" validate:"required,max=200"`
	Amount      looseNumber `json:"amount"`
	Category    string      `json:"category" validate:"max=80"`
	Date        string      `json:"date" validate:"max=40"`
	Vendor      string      `json:"vendor" validate:"max=120"`
	Receipt     string      `json:"receipt" validate:"max=500"`
}

type organizationRequest struct {
	Name             string      `json:"name" validate:"required,max=120"`
	Timezone         string      `json:"timezone" validate:"max=64"`
	TaxRate          looseNumber `json:"tax_rate"`
	OverdueAfterDays *int        `json:"overdue_after_days" validate:"omitempty,min=0,max=3650"`
	Currency         string      `json:"currency" validate:"omitempty,len=3,alpha"`
}

type invoiceList struct {
	Data       []ledger.Invoice  `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

type expenseList struct {
	Data []ledger.Expense `json:"data"`
}
