package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// InvoiceStatuses lists every invoice status, for filter validation.
var InvoiceStatuses = []string{
	string(InvoiceStatusDraft), string(InvoiceStatusSent), string(InvoiceStatusPaid),
	string(InvoiceStatusOverdue), string(InvoiceStatusCancelled),
}

// ReminderType is the escalation step of a payment reminder.
type ReminderType string

const (
	ReminderFirst  ReminderType = "first"
	ReminderSecond ReminderType = "second"
	ReminderFinal  ReminderType = "final"
)

// ReminderStatus records whether a reminder went out.
type ReminderStatus string

const (
	ReminderStatusSent   ReminderStatus = "sent"
	ReminderStatusFailed ReminderStatus = "failed"
)

// Invoice is a bill issued by a freelancer to one of their clients.
// Subtotal, TaxAmount, Total and every item Amount are derived by Recompute
// and are never taken from callers.
type Invoice struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserID   string  `gorm:"type:varchar(36);index;not null" json:"userId"`
	ClientID string  `gorm:"type:varchar(36);index;not null" json:"clientId"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	InvoiceNumber string `gorm:"size:20;uniqueIndex;not null" json:"invoiceNumber"`

	Items     []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"subtotal"`
	TaxRate   decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0" json:"taxRate"`
	TaxAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"taxAmount"`
	Total     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total"`
	Currency  Currency        `gorm:"size:3;not null;default:'USD'" json:"currency"`

	Status    InvoiceStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`
	IssueDate time.Time     `gorm:"not null" json:"issueDate"`
	DueDate   time.Time     `gorm:"not null" json:"dueDate"`
	PaidAt    *time.Time    `json:"paidAt,omitempty"`
	Notes     string        `gorm:"size:500" json:"notes,omitempty"`

	Reminders []InvoiceReminder `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"reminders"`

	IsActive bool `gorm:"not null;default:true;index" json:"isActive"`
	Version  int  `gorm:"not null;default:1" json:"version"`
}

// InvoiceItem is one billed line. Position keeps the caller's ordering.
type InvoiceItem struct {
	ID          string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	InvoiceID   string          `gorm:"type:varchar(36);index;not null" json:"-"`
	Position    int             `gorm:"not null;default:0" json:"-"`
	Description string          `gorm:"size:200;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	Rate        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"rate"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
}

// InvoiceReminder is an append-only record of a payment reminder.
type InvoiceReminder struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	InvoiceID string         `gorm:"type:varchar(36);index;not null" json:"-"`
	Position  int            `gorm:"not null;default:0" json:"-"`
	DateSent  time.Time      `gorm:"not null" json:"dateSent"`
	Type      ReminderType   `gorm:"size:10;not null" json:"type"`
	Status    ReminderStatus `gorm:"size:10;not null" json:"status"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = newID()
	}
	if i.Status == "" {
		i.Status = InvoiceStatusDraft
	}
	if i.Version == 0 {
		i.Version = 1
	}
	return nil
}

func (it *InvoiceItem) BeforeCreate(*gorm.DB) error {
	if it.ID == "" {
		it.ID = newID()
	}
	return nil
}

func (r *InvoiceReminder) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = newID()
	}
	return nil
}

// GetUserID implements Ownable.
func (i *Invoice) GetUserID() string { return i.UserID }

// GenerateInvoiceNumber formats the number for the invoice created after
// existing others: INV-0001, INV-0002, ...
func GenerateInvoiceNumber(existing int64) string {
	return fmt.Sprintf("INV-%04d", existing+1)
}

// Recompute derives item amounts and totals from the items and tax rate,
// then applies the overdue rule. It is idempotent for a fixed clock.
func (i *Invoice) Recompute(now time.Time) {
	subtotal := decimal.Zero
	for n := range i.Items {
		i.Items[n].Position = n
		i.Items[n].Amount = i.Items[n].Quantity.Mul(i.Items[n].Rate)
		subtotal = subtotal.Add(i.Items[n].Amount)
	}
	i.Subtotal = subtotal
	i.TaxAmount = subtotal.Mul(i.TaxRate).Div(hundred)
	i.Total = subtotal.Add(i.TaxAmount)
	i.MarkOverdue(now)
}

// MarkOverdue flips a sent invoice past its due date to overdue and reports
// whether it did.
func (i *Invoice) MarkOverdue(now time.Time) bool {
	if i.Status == InvoiceStatusSent && i.DueDate.Before(now) {
		i.Status = InvoiceStatusOverdue
		return true
	}
	return false
}

// Send issues a draft invoice. No timestamp is recorded.
func (i *Invoice) Send() error {
	if i.Status != InvoiceStatusDraft {
		return ErrInvoiceAlreadySent
	}
	i.Status = InvoiceStatusSent
	return nil
}

// NextReminderType picks the escalation step from the reminders already sent.
func (i *Invoice) NextReminderType() ReminderType {
	switch len(i.Reminders) {
	case 0:
		return ReminderFirst
	case 1:
		return ReminderSecond
	default:
		return ReminderFinal
	}
}

// Remind appends a reminder and returns it. The invoice status is unchanged.
func (i *Invoice) Remind(now time.Time) (*InvoiceReminder, error) {
	switch i.Status {
	case InvoiceStatusPaid:
		return nil, ErrAlreadyPaid
	case InvoiceStatusDraft:
		return nil, ErrNotYetSent
	}
	i.Reminders = append(i.Reminders, InvoiceReminder{
		InvoiceID: i.ID,
		Position:  len(i.Reminders),
		DateSent:  now,
		Type:      i.NextReminderType(),
		Status:    ReminderStatusSent,
	})
	return &i.Reminders[len(i.Reminders)-1], nil
}

// MarkPaid settles the invoice.
func (i *Invoice) MarkPaid(now time.Time) error {
	if i.Status == InvoiceStatusPaid {
		return ErrAlreadyMarkedPaid
	}
	i.Status = InvoiceStatusPaid
	i.PaidAt = &now
	return nil
}
