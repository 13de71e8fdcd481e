package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRequiredAndLength(t *testing.T) {
	v := Violations{}
	Required("name", "   ", v)
	Length("name", "   ", 1, 100, v)
	assert.Equal(t, "required", v["name"])

	v = Violations{}
	Length("title", strings.Repeat("x", 201), 1, 200, v)
	Length("company", "Acme", 1, 100, v)
	MaxLength("notes", strings.Repeat("é", 500), 500, v)
	assert.Equal(t, Violations{"title": "length_1_200"}, v)
}

func TestEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"john@example.com", true},
		{"a.b+c@sub.example.co", true},
		{"no-at-sign", false},
		{"John <john@example.com>", false},
		{"john@localhost", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v := Violations{}
			Email("email", tt.in, v)
			assert.Equal(t, tt.want, v.Empty())
		})
	}
}

func TestPhone(t *testing.T) {
	for in, want := range map[string]bool{
		"+15550123456": true,
		"5550123":      true,
		"0123":         false,
		"555-0123":     false,
		"+12345678901234567": false,
		"": true,
	} {
		v := Violations{}
		Phone("phone", in, v)
		assert.Equal(t, want, v.Empty(), "phone %q", in)
	}
}

func TestOneOfAndID(t *testing.T) {
	v := Violations{}
	OneOf("currency", "JPY", []string{"USD", "EUR"}, v)
	OneOf("status", "", []string{"draft"}, v)
	ID("clientId", "not-a-uuid", v)
	ID("userId", uuid.NewString(), v)
	assert.Equal(t, Violations{"currency": "invalid_value", "clientId": "invalid_id"}, v)
}

func TestDecimalRanges(t *testing.T) {
	v := Violations{}
	MinDecimal("amount", decimal.NewFromInt(-1), decimal.Zero, v)
	MinDecimal("rate", decimal.Zero, decimal.Zero, v)
	RangeDecimal("taxRate", decimal.NewFromInt(101), decimal.Zero, decimal.NewFromInt(100), v)
	RangeDecimal("discount", decimal.NewFromInt(100), decimal.Zero, decimal.NewFromInt(100), v)
	assert.Equal(t, Violations{"amount": "below_minimum", "taxRate": "out_of_range"}, v)
}

func TestTimeRules(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	v := Violations{}
	After("expiresAt", now, now, v)
	NotBefore("dueDate", now.Add(-time.Hour), now, v)
	RequiredTime("issueDate", time.Time{}, v)
	After("ok", now.Add(time.Nanosecond), now, v)
	NotBefore("sameDay", now, now, v)
	assert.Equal(t, Violations{
		"expiresAt": "must_be_in_future",
		"dueDate":   "must_not_precede",
		"issueDate": "required",
	}, v)
}

func TestFirstViolationWins(t *testing.T) {
	v := Violations{}
	Required("email", "", v)
	Email("email", "", v)
	assert.Equal(t, "required", v["email"])
	assert.EqualError(t, v.Err(), "validation failed: email: required")
	assert.NoError(t, Violations{}.Err())
}
