package services

import (
	"errors"
	"testing"
	"time"

	jujuerrors "github.com/juju/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractpro/contractpro/internal/models"
	"github.com/contractpro/contractpro/validation"
)

func TestInvoiceCreateComputesTotals(t *testing.T) {
	e := newTestEnv(t)
	ctx := e.freelancer("f@example.com")
	client := e.newClient(ctx, "acme@example.com")

	in := e.invoiceInput(client.ID, 30*24*time.Hour)
	in.Items = append(in.Items, ItemInput{
		Description: "Hosting", Quantity: dec("2.5"), Rate: dec("40"),
	})
	inv, err := e.invoices.Create(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, "INV-0001", inv.InvoiceNumber)
	assert.Equal(t, models.InvoiceStatusDraft, inv.Status)
	assert.True(t, inv.Subtotal.Equal(dec("1100")), "subtotal %s", inv.Subtotal)
	assert.True(t, inv.TaxAmount.Equal(dec("93.5")), "tax %s", inv.TaxAmount)
	assert.True(t, inv.Total.Equal(dec("1193.5")), "total %s", inv.Total)
	require.Len(t, inv.Items, 2)
	assert.True(t, inv.Items[1].Amount.Equal(dec("100")))
	assert.True(t, inv.IssueDate.Equal(e.now()), "issue date defaults to now")
	assert.Empty(t, inv.Reminders)

	got, err := e.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Design work", got.Items[0].Description)
	assert.Equal(t, "Hosting", got.Items[1].Description)
	assert.True(t, got.Total.Equal(dec("1193.5")))
}

func TestInvoiceNumbersAreGlobal(t *testing.T) {
	e := newTestEnv(t)
	alice := e.freelancer("alice@example.com")
	bob := e.freelancer("bob@example.com")
	ca := e.newClient(alice, "a@example.com")
	cb := e.newClient(bob, "b@example.com")

	first := e.newInvoice(alice, ca.ID, 24*time.Hour)
	second := e.newInvoice(bob, cb.ID, 24*time.Hour)
	require.NoError(t, e.invoices.Delete(alice, first.ID))
	third := e.newInvoice(alice, ca.ID, 24*time.Hour)

	assert.Equal(t, "INV-0001", first.InvoiceNumber)
	assert.Equal(t, "INV-0002", second.InvoiceNumber)
	assert.Equal(t, "INV-0003", third.InvoiceNumber, "deleted invoices keep their number")
}

func TestInvoiceValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := e.freelancer("f@example.com")
	client := e.newClient(ctx, "acme@example.com")

	in := e.invoiceInput(client.ID, -48*time.Hour)
	in.TaxRate = decimal.NewFromInt(101)
	in.Items[0].Quantity = decimal.Zero
	in.Items = append(in.Items, ItemInput{Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(-1)})
	_, err := e.invoices.Create(ctx, in)

	var v validation.Violations
	require.True(t, errors.As(err, &v), "got %v", err)
	assert.Equal(t, "below_minimum", v["items.0.quantity"])
	assert.Equal(t, "required", v["items.1.description"])
	assert.Equal(t, "below_minimum", v["items.1.rate"])
	assert.Equal(t, "out_of_range", v["taxRate"])
	assert.Equal(t, "must_not_precede", v["dueDate"])

	_, err = e.invoices.Create(ctx, InvoiceInput{ClientID: client.ID, DueDate: e.now()})
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "required", v["items"])
}

func TestInvoiceLifecycle(t *testing.T) {
	e := newTestEnv(t)
	ctx := e.freelancer("f@example.com")
	client := e.newClient(ctx, "acme@example.com")
	inv := e.newInvoice(ctx, client.ID, 30*24*time.Hour)

	_, _, err := e.invoices.Remind(ctx, inv.ID)
	assert.ErrorIs(t, err, models.ErrNotYetSent)

	sent, err := e.invoices.Send(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, sent.Status)

	_, err = e.invoices.Send(ctx, inv.ID)
	assert.ErrorIs(t, err, models.ErrInvoiceAlreadySent)

	want := []models.ReminderType{models.ReminderFirst, models.ReminderSecond, models.ReminderFinal, models.ReminderFinal}
	for i, typ := range want {
		e.tick()
		got, reminder, err := e.invoices.Remind(ctx, inv.ID)
		require.NoError(t, err, "reminder %d", i)
		assert.Equal(t, typ, reminder.Type)
		assert.Equal(t, models.ReminderStatusSent, reminder.Status)
		assert.Len(t, got.Reminders, i+1)
		assert.Equal(t, models.InvoiceStatusSent, got.Status, "reminders do not change status")
	}

	e.tick()
	paid, err := e.invoices.MarkPaid(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, paid.PaidAt.Equal(e.now()))

	_, err = e.invoices.MarkPaid(ctx, inv.ID)
	var te *models.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "Invoice is already marked as paid", te.Reason)

	_, _, err = e.invoices.Remind(ctx, inv.ID)
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "Invoice has already been paid", te.Reason)

	got, err := e.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, got.Reminders, 4)
	assert.Equal(t, models.ReminderFirst, got.Reminders[0].Type)
	assert.Equal(t, models.ReminderFinal, got.Reminders[3].Type)
}

func TestInvoiceOverdue(t *testing.T) {
	e := newTestEnv(t)
	ctx := e.freelancer("f@example.com")
	client := e.newClient(ctx, "acme@example.com")

	late := e.sentInvoice(ctx, client.ID, 24*time.Hour)
	draft := e.newInvoice(ctx, client.ID, 24*time.Hour)
	e.advance(48 * time.Hour)

	list, total, err := e.invoices.List(ctx, ListParams{Status: string(models.InvoiceStatusOverdue)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, late.ID, list[0].ID)

	got, err := e.invoices.Get(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusDraft, got.Status)

	// Overdue invoices can still be reminded and paid.
	_, reminder, err := e.invoices.Remind(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReminderFirst, reminder.Type)
	paid, err := e.invoices.MarkPaid(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, paid.Status)
}

func TestInvoiceMarkedOverdueOnLoad(t *testing.T) {
	e := newTestEnv(t)
	ctx := e.freelancer("f@example.com")
	client := e.newClient(ctx, "acme@example.com")
	inv := e.sentInvoice(ctx, client.ID, time.Hour)

	e.advance(2 * time.Hour)
	got, err := e.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusOverdue, got.Status)

	var stored models.Invoice
	require.NoError(t, e.db.First(&stored, "id = ?", inv.ID).Error)
	assert.Equal(t, models.InvoiceStatusOverdue, stored.Status)
}

func TestInvoiceUpdateReplacesItems(t *testing.T) {
	e := newTestEnv(t)
	ctx := e.freelancer("f@example.com")
	client := e.newClient(ctx, "acme@example.com")
	inv := e.newInvoice(ctx, client.ID, 24*time.Hour)

	in := e.invoiceInput(client.ID, 10*24*time.Hour)
	in.TaxRate = decimal.Zero
	in.Notes = "Net 10"
	in.Items = []ItemInput{
		{Description: "Consulting", Quantity: dec("3"), Rate: dec("150")},
		{Description: "Travel", Quantity: dec("1"), Rate: dec("75.25")},
	}
	updated, err := e.invoices.Update(ctx, inv.ID, in)
	require.NoError(t, err)
	assert.True(t, updated.Total.Equal(dec("525.25")), "total %s", updated.Total)
	assert.Equal(t, inv.InvoiceNumber, updated.InvoiceNumber)

	got, err := e.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Consulting", got.Items[0].Description)
	assert.True(t, got.Items[1].Amount.Equal(dec("75.25")))
	assert.True(t, got.TaxAmount.IsZero())
	assert.Equal(t, "Net 10", got.Notes)

	var items int64
	require.NoError(t, e.db.Model(&models.InvoiceItem{}).Where("invoice_id = ?", inv.ID).Count(&items).Error)
	assert.EqualValues(t, 2, items)
}

func TestInvoiceOptimisticConflict(t *testing.T) {
	e := newTestEnv(t)
	ctx := e.freelancer("f@example.com")
	client := e.newClient(ctx, "acme@example.com")
	inv := e.sentInvoice(ctx, client.ID, 24*time.Hour)

	stale, err := e.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	_, err = e.invoices.MarkPaid(ctx, inv.ID)
	require.NoError(t, err)

	stale.Notes = "late edit"
	assert.ErrorIs(t, e.invoices.save(ctx, e.db, stale), ErrConflict)
}

func TestInvoiceOwnershipAndSearch(t *testing.T) {
	e := newTestEnv(t)
	alice := e.freelancer("alice@example.com")
	bob := e.freelancer("bob@example.com")
	client := e.newClient(alice, "acme@example.com")
	inv := e.newInvoice(alice, client.ID, 24*time.Hour)
	e.newInvoice(alice, client.ID, 24*time.Hour)

	_, err := e.invoices.Get(bob, inv.ID)
	assert.True(t, jujuerrors.Is(err, jujuerrors.NotFound), "got %v", err)
	_, err = e.invoices.MarkPaid(bob, inv.ID)
	assert.True(t, jujuerrors.Is(err, jujuerrors.NotFound), "got %v", err)

	list, total, err := e.invoices.List(alice, ListParams{Search: "inv-0001"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, inv.ID, list[0].ID)
	require.NotNil(t, list[0].Client)
	require.Len(t, list[0].Items, 1)

	_, url, err := e.invoices.ExportPDF(alice, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "/api/files/invoices/"+inv.ID+".pdf", url)
}
