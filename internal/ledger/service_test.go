package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Diony-dev/Veloce/internal/ledger"
	"github.com/Diony-dev/Veloce/internal/ledger/memory"
)

type recordingInvalidator struct {
	bumps []uuid.UUID
	err   error
}

func (r *recordingInvalidator) Bump(_ context.Context, orgID uuid.UUID) error {
	r.bumps = append(r.bumps, orgID)
	return r.err
}

type collidingStore struct {
	*memory.Store
	failures int
	calls    int
}

func (s *collidingStore) CreateInvoice(ctx context.Context, inv ledger.Invoice) error {
	s.calls++
	if s.calls <= s.failures {
		return ledger.ErrDuplicate
	}
	return s.Store.CreateInvoice(ctx, inv)
}

func newService(t *testing.T, store ledger.Store, inv ledger.Invalidator) *ledger.Service {
	t.Helper()
	svc := ledger.NewService(store, ledger.ServiceConfig{NumberPrefix: "F", Invalidator: inv})
	svc.WithNow(func() time.Time { return time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC) })
	return svc
}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	store := memory.NewStore()
	inval := &recordingInvalidator{}
	svc := newService(t, store, inval)
	org := uuid.New()

	inv, err := svc.CreateInvoice(context.Background(), ledger.CreateInvoiceInput{
		OrganizationID: org,
		Customer:       ledger.LegacyCustomer("Pedro"),
		Items: []ledger.LineItemInput{
			{Description: "Cafe", Quantity: 3, UnitPrice: decimal.RequireFromString("25.50")},
			{Description: "Pan", Quantity: 2, UnitPrice: decimal.RequireFromString("10")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "76.5", inv.Items[0].Total.String())
	assert.Equal(t, "96.5", inv.Total.String())
	assert.Equal(t, ledger.StatusPending, inv.Status)
	assert.Equal(t, ledger.PaymentCash, inv.PaymentMethod)
	assert.Regexp(t, `^F-1710082800\d{3}$`, inv.Number)
	assert.Equal(t, []uuid.UUID{org}, inval.bumps)

	stored, err := store.GetInvoice(context.Background(), org, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.Number, stored.Number)
}

func TestCreateInvoiceStoresBlankCustomerAsAbsent(t *testing.T) {
	svc := newService(t, memory.NewStore(), nil)
	inv, err := svc.CreateInvoice(context.Background(), ledger.CreateInvoiceInput{
		OrganizationID: uuid.New(),
		Customer:       ledger.LegacyCustomer("   "),
		Items:          []ledger.LineItemInput{{Description: "Cafe", Quantity: 1, UnitPrice: decimal.NewFromInt(5)}},
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.CustomerAbsent, inv.Customer.Kind())
	assert.Equal(t, ledger.DefaultCustomerName, inv.CustomerName())
}

func TestCreateInvoiceValidation(t *testing.T) {
	svc := newService(t, memory.NewStore(), nil)
	ctx := context.Background()

	_, err := svc.CreateInvoice(ctx, ledger.CreateInvoiceInput{Items: []ledger.LineItemInput{{Quantity: 1}}})
	assert.ErrorIs(t, err, ledger.ErrMissingOrganization)

	org := uuid.New()
	_, err = svc.CreateInvoice(ctx, ledger.CreateInvoiceInput{OrganizationID: org})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = svc.CreateInvoice(ctx, ledger.CreateInvoiceInput{OrganizationID: org, Items: []ledger.LineItemInput{{Quantity: 0}}})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = svc.CreateInvoice(ctx, ledger.CreateInvoiceInput{
		OrganizationID: org,
		Items:          []ledger.LineItemInput{{Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}},
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = svc.CreateInvoice(ctx, ledger.CreateInvoiceInput{
		OrganizationID: org,
		Status:         "pagado",
		Items:          []ledger.LineItemInput{{Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestCreateInvoiceRetriesNumberCollision(t *testing.T) {
	store := &collidingStore{Store: memory.NewStore(), failures: 2}
	svc := newService(t, store, nil)

	_, err := svc.CreateInvoice(context.Background(), ledger.CreateInvoiceInput{
		OrganizationID: uuid.New(),
		Items:          []ledger.LineItemInput{{Quantity: 1, UnitPrice: decimal.NewFromInt(5)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, store.calls)

	store = &collidingStore{Store: memory.NewStore(), failures: 5}
	svc = newService(t, store, nil)
	_, err = svc.CreateInvoice(context.Background(), ledger.CreateInvoiceInput{
		OrganizationID: uuid.New(),
		Items:          []ledger.LineItemInput{{Quantity: 1, UnitPrice: decimal.NewFromInt(5)}},
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicate)
}

func TestCreateExpenseCoercesInput(t *testing.T) {
	store := memory.NewStore()
	svc := newService(t, store, nil)
	ctx := context.Background()
	org := uuid.New()
	loc, err := time.LoadLocation("America/Santo_Domingo")
	require.NoError(t, err)
	_, err = svc.SaveOrganization(ctx, ledger.Organization{ID: org, Timezone: "America/Santo_Domingo"})
	require.NoError(t, err)

	exp, err := svc.CreateExpense(ctx, ledger.CreateExpenseInput{OrganizationID: org, Description: "Luz", Amount: "", Date: "2024-03-05"})
	require.NoError(t, err)
	assert.True(t, exp.Amount.IsZero())
	at, ok := exp.Date.Time()
	require.True(t, ok)
	assert.True(t, at.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, loc)))

	exp, err = svc.CreateExpense(ctx, ledger.CreateExpenseInput{OrganizationID: org, Description: "Agua", Amount: " 1250.75 "})
	require.NoError(t, err)
	assert.Equal(t, "1250.75", exp.Amount.String())

	_, err = svc.CreateExpense(ctx, ledger.CreateExpenseInput{OrganizationID: org, Description: "Agua", Amount: "mil"})
	assert.ErrorIs(t, err, ledger.ErrValidation)
	_, err = svc.CreateExpense(ctx, ledger.CreateExpenseInput{OrganizationID: org, Description: "Agua", Date: "05/03/2024"})
	assert.ErrorIs(t, err, ledger.ErrValidation)
	_, err = svc.CreateExpense(ctx, ledger.CreateExpenseInput{OrganizationID: org, Amount: "1"})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestStatusAndDeleteScopedByOrganization(t *testing.T) {
	store := memory.NewStore()
	inval := &recordingInvalidator{err: errors.New("redis down")}
	svc := newService(t, store, inval)
	ctx := context.Background()
	org := uuid.New()

	inv, err := svc.CreateInvoice(ctx, ledger.CreateInvoiceInput{
		OrganizationID: org,
		Items:          []ledger.LineItemInput{{Quantity: 1, UnitPrice: decimal.NewFromInt(5)}},
	})
	require.NoError(t, err, "cache failures must not fail writes")

	err = svc.UpdateInvoiceStatus(ctx, uuid.New(), inv.ID, ledger.StatusPaid)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	require.NoError(t, svc.UpdateInvoiceStatus(ctx, org, inv.ID, ledger.StatusPaid))
	stored, err := svc.GetInvoice(ctx, org, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaid, stored.Status)

	assert.ErrorIs(t, svc.DeleteInvoice(ctx, uuid.New(), inv.ID), ledger.ErrNotFound)
	require.NoError(t, svc.DeleteInvoice(ctx, org, inv.ID))
	_, err = svc.GetInvoice(ctx, org, inv.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestListInvoicesRequiresOrganization(t *testing.T) {
	svc := newService(t, memory.NewStore(), nil)
	_, _, err := svc.ListInvoices(context.Background(), ledger.InvoiceFilter{})
	assert.ErrorIs(t, err, ledger.ErrMissingOrganization)
}

func TestSaveOrganizationValidation(t *testing.T) {
	svc := newService(t, memory.NewStore(), nil)
	ctx := context.Background()
	org := uuid.New()

	_, err := svc.SaveOrganization(ctx, ledger.Organization{ID: org, Timezone: "Mars/Olympus"})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = svc.SaveOrganization(ctx, ledger.Organization{ID: org, TaxRate: decimal.NewNullDecimal(decimal.NewFromInt(2))})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	saved, err := svc.SaveOrganization(ctx, ledger.Organization{ID: org, Name: "Colmado", TaxRate: decimal.NewNullDecimal(decimal.RequireFromString("0.16"))})
	require.NoError(t, err)
	assert.Equal(t, "Colmado", saved.Name)

	fresh, err := svc.Organization(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, fresh.TaxRate.Valid)
}
