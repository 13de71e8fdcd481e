package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/contractpro/contractpro/gate"
	"github.com/contractpro/contractpro/internal/models"
	"github.com/contractpro/contractpro/internal/policy"
	"github.com/contractpro/contractpro/validation"
)

func errInvoiceNotFound() error { return errors.NotFoundf("Invoice") }

var (
	minQuantity = decimal.RequireFromString("0.01")
	maxTaxRate  = decimal.NewFromInt(100)
)

// ItemInput is one billed line as supplied by the caller. The amount is
// always derived.
type ItemInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
}

// InvoiceInput is the writable part of an invoice. Number, status, totals
// and reminders are not accepted from callers.
type InvoiceInput struct {
	ClientID  string          `json:"clientId"`
	Items     []ItemInput     `json:"items"`
	TaxRate   decimal.Decimal `json:"taxRate"`
	Currency  models.Currency `json:"currency"`
	IssueDate time.Time       `json:"issueDate"`
	DueDate   time.Time       `json:"dueDate"`
	Notes     string          `json:"notes"`
}

// Validate checks the input. A missing issue date defaults to now.
func (in *InvoiceInput) Validate(now time.Time) validation.Violations {
	if in.Currency == "" {
		in.Currency = models.CurrencyUSD
	}
	if in.IssueDate.IsZero() {
		in.IssueDate = now
	}

	v := make(validation.Violations)
	validation.ID("clientId", in.ClientID, v)
	if len(in.Items) == 0 {
		v["items"] = "required"
	}
	for n := range in.Items {
		it := &in.Items[n]
		it.Description = strings.TrimSpace(it.Description)
		field := "items." + strconv.Itoa(n)
		validation.Required(field+".description", it.Description, v)
		validation.MaxLength(field+".description", it.Description, 200, v)
		validation.MinDecimal(field+".quantity", it.Quantity, minQuantity, v)
		validation.MinDecimal(field+".rate", it.Rate, decimal.Zero, v)
	}
	validation.RangeDecimal("taxRate", in.TaxRate, decimal.Zero, maxTaxRate, v)
	validation.OneOf("currency", string(in.Currency), models.Currencies, v)
	validation.RequiredTime("dueDate", in.DueDate, v)
	validation.NotBefore("dueDate", in.DueDate, in.IssueDate, v)
	validation.MaxLength("notes", in.Notes, 500, v)
	return v
}

func (in *InvoiceInput) apply(inv *models.Invoice) {
	inv.ClientID = in.ClientID
	inv.TaxRate = in.TaxRate
	inv.Currency = in.Currency
	inv.IssueDate = in.IssueDate.UTC()
	inv.DueDate = in.DueDate.UTC()
	inv.Notes = in.Notes
	inv.Items = make([]models.InvoiceItem, len(in.Items))
	for n, it := range in.Items {
		inv.Items[n] = models.InvoiceItem{
			InvoiceID:   inv.ID,
			Description: it.Description,
			Quantity:    it.Quantity,
			Rate:        it.Rate,
		}
	}
}

// InvoiceService runs invoice computation, numbering and the payment
// lifecycle.
type InvoiceService struct {
	Deps
}

func NewInvoiceService(d Deps) *InvoiceService {
	return &InvoiceService{Deps: d}
}

func orderByPosition(db *gorm.DB) *gorm.DB { return db.Order("position") }

// List returns one page of the caller's active invoices, newest first.
// Search matches the invoice number or notes; Status filters exactly.
func (s *InvoiceService) List(ctx context.Context, p ListParams) ([]models.Invoice, int64, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err := markInvoicesOverdue(ctx, s.DB, userID, s.now()); err != nil {
		return nil, 0, err
	}
	p = p.normalized()
	q := s.DB.WithContext(ctx).Model(&models.Invoice{}).Where("user_id = ? AND is_active = ?", userID, true)
	if p.Status != "" {
		q = q.Where("status = ?", p.Status)
	}
	if p.Search != "" {
		like := likePattern(p.Search)
		q = q.Where("(LOWER(invoice_number) LIKE ? ESCAPE '\\' OR LOWER(notes) LIKE ? ESCAPE '\\')", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Annotate(err, "count invoices")
	}
	invoices := []models.Invoice{}
	err = q.Preload("Client", preloadClientSummary).
		Preload("Items", orderByPosition).
		Preload("Reminders", orderByPosition).
		Order("created_at DESC").Limit(p.Limit).Offset(p.offset()).Find(&invoices).Error
	if err != nil {
		return nil, 0, errors.Annotate(err, "list invoices")
	}
	return invoices, total, nil
}

// Get loads one invoice, marking it overdue first if it is past due.
func (s *InvoiceService) Get(ctx context.Context, id string) (*models.Invoice, error) {
	return s.load(ctx, id, gate.ActionView)
}

func (s *InvoiceService) load(ctx context.Context, id string, action gate.Action) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.DB.WithContext(ctx).
		Preload("Client").
		Preload("Items", orderByPosition).
		Preload("Reminders", orderByPosition).
		Where("id = ? AND is_active = ?", id, true).First(&inv).Error
	if isNotFound(err) {
		return nil, errInvoiceNotFound()
	}
	if err != nil {
		return nil, errors.Annotate(err, "load invoice")
	}
	if err := authorize(ctx, s.Gate, action, policy.ResourceInvoice, &inv, errInvoiceNotFound); err != nil {
		return nil, err
	}
	if inv.MarkOverdue(s.now()) {
		if err := s.save(ctx, s.DB, &inv); err != nil && !errors.Is(err, ErrConflict) {
			return nil, err
		}
	}
	return &inv, nil
}

// save recomputes the derived fields and writes the invoice row with an
// optimistic version check. Items and reminders are written by callers.
func (s *InvoiceService) save(ctx context.Context, tx *gorm.DB, inv *models.Invoice) error {
	now := s.now()
	inv.Recompute(now)
	err := casUpdate(tx.WithContext(ctx), &models.Invoice{}, inv.ID, inv.Version, map[string]any{
		"client_id":  inv.ClientID,
		"subtotal":   inv.Subtotal,
		"tax_rate":   inv.TaxRate,
		"tax_amount": inv.TaxAmount,
		"total":      inv.Total,
		"currency":   inv.Currency,
		"status":     inv.Status,
		"issue_date": inv.IssueDate,
		"due_date":   inv.DueDate,
		"paid_at":    inv.PaidAt,
		"notes":      inv.Notes,
		"is_active":  inv.IsActive,
		"updated_at": now,
	})
	if errors.Is(err, ErrConflict) {
		s.Log.Warn().Str("invoice_id", inv.ID).Int("version", inv.Version).Msg("invoice update conflict")
		return err
	}
	if err != nil {
		return errors.Annotate(err, "save invoice")
	}
	inv.Version++
	inv.UpdatedAt = now
	return nil
}

// Create numbers and stores a draft invoice for one of the caller's active
// clients. Two concurrent creates may compute the same number; the loser
// fails with AlreadyExists.
func (s *InvoiceService) Create(ctx context.Context, in InvoiceInput) (*models.Invoice, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if v := in.Validate(now); !v.Empty() {
		return nil, v
	}
	client, err := activeOwnedClient(ctx, s.DB, userID, in.ClientID)
	if err != nil {
		return nil, err
	}

	inv := models.Invoice{
		UserID:    userID,
		Status:    models.InvoiceStatusDraft,
		IsActive:  true,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(&inv)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Invoice{}).Count(&count).Error; err != nil {
			return errors.Annotate(err, "count invoices")
		}
		inv.InvoiceNumber = models.GenerateInvoiceNumber(count)
		inv.Recompute(now)
		return tx.Omit("Client").Create(&inv).Error
	})
	if isDuplicate(err) {
		s.Log.Warn().Str("invoice_number", inv.InvoiceNumber).Msg("invoice number taken")
		return nil, errors.AlreadyExistsf("Invoice number %s", inv.InvoiceNumber)
	}
	if err != nil {
		return nil, errors.Annotate(err, "create invoice")
	}
	inv.Client = client
	if inv.Reminders == nil {
		inv.Reminders = []models.InvoiceReminder{}
	}
	s.Log.Info().Str("invoice_id", inv.ID).Str("invoice_number", inv.InvoiceNumber).Msg("invoice created")
	return &inv, nil
}

// Update replaces the writable fields and the item list, then recomputes.
func (s *InvoiceService) Update(ctx context.Context, id string, in InvoiceInput) (*models.Invoice, error) {
	if v := in.Validate(s.now()); !v.Empty() {
		return nil, v
	}
	inv, err := s.load(ctx, id, gate.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if in.ClientID != inv.ClientID {
		client, err := activeOwnedClient(ctx, s.DB, inv.UserID, in.ClientID)
		if err != nil {
			return nil, err
		}
		inv.Client = client
	}
	in.apply(inv)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.save(ctx, tx, inv); err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return errors.Annotate(err, "replace items")
		}
		return errors.Annotate(tx.Create(&inv.Items).Error, "replace items")
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Delete deactivates the invoice. Its number stays taken.
func (s *InvoiceService) Delete(ctx context.Context, id string) error {
	inv, err := s.load(ctx, id, gate.ActionDelete)
	if err != nil {
		return err
	}
	inv.IsActive = false
	if err := s.save(ctx, s.DB, inv); err != nil {
		return err
	}
	s.Log.Info().Str("invoice_id", inv.ID).Msg("invoice deactivated")
	return nil
}

// Send issues a draft invoice.
func (s *InvoiceService) Send(ctx context.Context, id string) (*models.Invoice, error) {
	return s.transition(ctx, id, gate.ActionSend, func(inv *models.Invoice, _ time.Time) error {
		return inv.Send()
	})
}

// MarkPaid settles the invoice.
func (s *InvoiceService) MarkPaid(ctx context.Context, id string) (*models.Invoice, error) {
	return s.transition(ctx, id, gate.ActionMarkPaid, func(inv *models.Invoice, now time.Time) error {
		return inv.MarkPaid(now)
	})
}

// Remind records the next payment reminder and returns it with the invoice.
func (s *InvoiceService) Remind(ctx context.Context, id string) (*models.Invoice, *models.InvoiceReminder, error) {
	inv, err := s.load(ctx, id, gate.ActionRemind)
	if err != nil {
		return nil, nil, err
	}
	reminder, err := inv.Remind(s.now())
	if err == nil {
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.save(ctx, tx, inv); err != nil {
				return err
			}
			return errors.Annotate(tx.Create(reminder).Error, "insert reminder")
		})
	}
	s.Metrics.Transition(policy.ResourceInvoice, string(gate.ActionRemind), err)
	if err != nil {
		return nil, nil, err
	}
	s.Log.Info().Str("invoice_id", inv.ID).Str("type", string(reminder.Type)).Msg("invoice reminder sent")
	return inv, reminder, nil
}

func (s *InvoiceService) transition(ctx context.Context, id string, action gate.Action, step func(*models.Invoice, time.Time) error) (*models.Invoice, error) {
	inv, err := s.load(ctx, id, action)
	if err != nil {
		return nil, err
	}
	err = step(inv, s.now())
	if err == nil {
		err = s.save(ctx, s.DB, inv)
	}
	s.Metrics.Transition(policy.ResourceInvoice, string(action), err)
	if err != nil {
		return nil, err
	}
	s.Log.Info().Str("invoice_id", inv.ID).Str("action", string(action)).Str("status", string(inv.Status)).Msg("invoice transition")
	return inv, nil
}

// ExportPDF returns the invoice with the download location of its document.
func (s *InvoiceService) ExportPDF(ctx context.Context, id string) (*models.Invoice, string, error) {
	inv, err := s.load(ctx, id, gate.ActionExport)
	if err != nil {
		return nil, "", err
	}
	return inv, "/api/files/invoices/" + inv.ID + ".pdf", nil
}

// markInvoicesOverdue flips every past-due sent invoice of userID to overdue
// in one statement. An empty userID covers all users.
func markInvoicesOverdue(ctx context.Context, db *gorm.DB, userID string, now time.Time) error {
	q := db.WithContext(ctx).Model(&models.Invoice{}).
		Where("status = ? AND due_date < ?", models.InvoiceStatusSent, now)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	err := q.Updates(map[string]any{
		"status":     models.InvoiceStatusOverdue,
		"version":    gorm.Expr("version + 1"),
		"updated_at": now,
	}).Error
	return errors.Annotate(err, "mark invoices overdue")
}
