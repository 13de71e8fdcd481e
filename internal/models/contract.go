package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ContractStatus represents where a contract is in its signature lifecycle.
type ContractStatus string

const (
	ContractStatusDraft     ContractStatus = "draft"
	ContractStatusSent      ContractStatus = "sent"
	ContractStatusSigned    ContractStatus = "signed"
	ContractStatusExpired   ContractStatus = "expired"
	ContractStatusCancelled ContractStatus = "cancelled"
)

// ContractStatuses lists every contract status, for filter validation.
var ContractStatuses = []string{
	string(ContractStatusDraft), string(ContractStatusSent), string(ContractStatusSigned),
	string(ContractStatusExpired), string(ContractStatusCancelled),
}

// Contract is an agreement sent by a freelancer to a client for signature.
// Implements Ownable.
type Contract struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserID   string  `gorm:"type:varchar(36);index;not null" json:"userId"`
	ClientID string  `gorm:"type:varchar(36);index;not null" json:"clientId"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	Title    string          `gorm:"size:200;not null" json:"title"`
	Content  string          `gorm:"type:text;not null" json:"content"`
	Terms    string          `gorm:"type:text" json:"terms,omitempty"`
	Amount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount"`
	Currency Currency        `gorm:"size:3;not null;default:'USD'" json:"currency"`

	Status      ContractStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`
	SignatureID *string        `gorm:"size:64" json:"signatureId,omitempty"`
	SentAt      *time.Time     `json:"sentAt,omitempty"`
	SignedAt    *time.Time     `json:"signedAt,omitempty"`
	ExpiresAt   time.Time      `gorm:"not null" json:"expiresAt"`

	IsActive bool `gorm:"not null;default:true;index" json:"isActive"`
	Version  int  `gorm:"not null;default:1" json:"version"`
}

// BeforeCreate assigns an id and the initial lifecycle state.
func (c *Contract) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.Status == "" {
		c.Status = ContractStatusDraft
	}
	if c.Version == 0 {
		c.Version = 1
	}
	return nil
}

// GetUserID implements Ownable.
func (c *Contract) GetUserID() string { return c.UserID }

// SendForSignature moves a draft to sent and records the signature request.
func (c *Contract) SendForSignature(now time.Time, signatureID string) error {
	if c.Status != ContractStatusDraft {
		return ErrAlreadySentOrSigned
	}
	c.Status = ContractStatusSent
	c.SentAt = &now
	c.SignatureID = &signatureID
	return nil
}

// Sign completes a sent contract.
func (c *Contract) Sign(now time.Time) error {
	if c.Status != ContractStatusSent {
		return ErrMustBeSentFirst
	}
	c.Status = ContractStatusSigned
	c.SignedAt = &now
	return nil
}

// AutoExpire marks a sent contract expired once its deadline has passed and
// reports whether the status changed. Signed contracts are never expired.
func (c *Contract) AutoExpire(now time.Time) bool {
	if c.Status == ContractStatusSent && c.ExpiresAt.Before(now) {
		c.Status = ContractStatusExpired
		return true
	}
	return false
}
