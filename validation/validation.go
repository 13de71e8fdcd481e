// Package validation collects field-level violations at the request boundary.
// Each helper records at most one violation per field; the first one wins.
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Violations maps a field name to a short machine-readable reason.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Error makes Violations usable as an error value.
func (v Violations) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + v[k]
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Err returns v as an error, or nil when there are no violations.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v Violations) add(field, reason string) {
	if _, exists := v[field]; !exists {
		v[field] = reason
	}
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.add(field, "required")
	}
}

// Length checks the trimmed rune length; an empty value is left to Required.
func Length(field, value string, minLen, maxLen int, v Violations) {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n == 0 {
		return
	}
	if n < minLen || n > maxLen {
		v.add(field, fmt.Sprintf("length_%d_%d", minLen, maxLen))
	}
}

// MaxLength allows empty values.
func MaxLength(field, value string, maxLen int, v Violations) {
	if utf8.RuneCountInString(strings.TrimSpace(value)) > maxLen {
		v.add(field, fmt.Sprintf("max_length_%d", maxLen))
	}
}

func Email(field, value string, v Violations) {
	if value == "" {
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || !strings.Contains(value[strings.LastIndex(value, "@"):], ".") {
		v.add(field, "invalid_email")
	}
}

var phonePattern = regexp.MustCompile(`^[\+]?[1-9][\d]{0,15}$`)

// Phone accepts an optional leading + followed by up to 16 digits.
func Phone(field, value string, v Violations) {
	if value == "" {
		return
	}
	if !phonePattern.MatchString(value) {
		v.add(field, "invalid_phone")
	}
}

// OneOf checks value against a closed set; empty values are skipped.
func OneOf(field, value string, allowed []string, v Violations) {
	if value == "" {
		return
	}
	if !slices.Contains(allowed, value) {
		v.add(field, "invalid_value")
	}
}

// ID checks for a well-formed record identifier.
func ID(field, value string, v Violations) {
	if _, err := uuid.Parse(value); err != nil {
		v.add(field, "invalid_id")
	}
}

// MinDecimal requires val >= minVal.
func MinDecimal(field string, val, minVal decimal.Decimal, v Violations) {
	if val.LessThan(minVal) {
		v.add(field, "below_minimum")
	}
}

// RangeDecimal requires minVal <= val <= maxVal.
func RangeDecimal(field string, val, minVal, maxVal decimal.Decimal, v Violations) {
	if val.LessThan(minVal) || val.GreaterThan(maxVal) {
		v.add(field, "out_of_range")
	}
}

// After requires t to be strictly later than ref.
func After(field string, t, ref time.Time, v Violations) {
	if !t.After(ref) {
		v.add(field, "must_be_in_future")
	}
}

// NotBefore requires t >= ref.
func NotBefore(field string, t, ref time.Time, v Violations) {
	if t.Before(ref) {
		v.add(field, "must_not_precede")
	}
}

// RequiredTime flags a zero timestamp.
func RequiredTime(field string, t time.Time, v Violations) {
	if t.IsZero() {
		v.add(field, "required")
	}
}
