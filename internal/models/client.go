package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultCountry is used when a client address omits the country.
const DefaultCountry = "United States"

// Address is embedded into Client with an address_ column prefix.
type Address struct {
	Street  string `gorm:"size:255" json:"street,omitempty"`
	City    string `gorm:"size:100" json:"city,omitempty"`
	State   string `gorm:"size:100" json:"state,omitempty"`
	ZipCode string `gorm:"size:20" json:"zipCode,omitempty"`
	Country string `gorm:"size:100" json:"country,omitempty"`
}

// Client is a customer of a freelancer. Email is unique per owner.
type Client struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_clients_user_email,priority:1" json:"userId"`

	Name    string  `gorm:"size:100;not null" json:"name"`
	Email   string  `gorm:"size:255;not null;uniqueIndex:idx_clients_user_email,priority:2" json:"email"`
	Company string  `gorm:"size:100;not null" json:"company"`
	Phone   string  `gorm:"size:20" json:"phone,omitempty"`
	Address Address `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Notes   string  `gorm:"size:500" json:"notes,omitempty"`

	IsActive bool `gorm:"not null;default:true;index" json:"isActive"`
}

// BeforeCreate assigns an id and fills address defaults.
func (c *Client) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	c.Email = NormalizeEmail(c.Email)
	if c.Address.Country == "" {
		c.Address.Country = DefaultCountry
	}
	return nil
}

// GetUserID implements Ownable.
func (c *Client) GetUserID() string { return c.UserID }
