// Package models holds the persisted ContractPro records and the lifecycle
// rules that keep their derived fields and statuses consistent.
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Money goes over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Currency is one of the supported ISO currency codes.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyCAD Currency = "CAD"
	CurrencyAUD Currency = "AUD"
)

// Currencies lists every accepted currency, in display order.
var Currencies = []string{
	string(CurrencyUSD), string(CurrencyEUR), string(CurrencyGBP),
	string(CurrencyCAD), string(CurrencyAUD),
}

// Ownable is implemented by records that belong to a single user.
type Ownable interface {
	GetUserID() string
}

func newID() string { return uuid.NewString() }

var hundred = decimal.NewFromInt(100)

// NewSignatureID returns a reference for a signature request.
func NewSignatureID() string { return "sig-" + uuid.NewString() }
