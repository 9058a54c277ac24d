package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidFundName  = errors.New("invalid fund name")
	ErrInvalidCurrency  = errors.New("invalid currency code")
	ErrAmountTooLarge   = errors.New("amount exceeds maximum allowed")
	ErrNoteTooLong      = errors.New("note exceeds maximum length")
	ErrMetadataTooLarge = errors.New("metadata size exceeds limit")
	ErrInvalidIDFormat  = errors.New("invalid ID format")
)

// Validation constants
const (
	MaxFundNameLength = 255
	MinFundNameLength = 1
	MaxNoteLength     = 4096
	MaxMetadataSize   = 10240           // 10KB
	MaxCallAmount     = "1000000000000" // 1 trillion
)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
	"ZAR": true, "KES": true, "AED": true, "HKD": true,
}

// ValidateFundName validates fund name
func ValidateFundName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) < MinFundNameLength {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidFundName)
	}

	if len(name) > MaxFundNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidFundName, MaxFundNameLength)
	}

	return nil
}

// ValidateCurrency validates currency code
func ValidateCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if !validCurrencies[currency] {
		return fmt.Errorf("%w: %s is not a valid ISO 4217 currency code", ErrInvalidCurrency, currency)
	}

	return nil
}

// ValidateAmount validates a transaction amount
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	maxAmount, _ := decimal.NewFromString(MaxCallAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxCallAmount)
	}

	return nil
}

// ValidateNote validates a rejection reason or change-request note.
// The note is mandatory for both operations.
func ValidateNote(note string, required error) error {
	note = strings.TrimSpace(note)

	if note == "" {
		return required
	}

	if len(note) > MaxNoteLength {
		return fmt.Errorf("%w: note exceeds %d characters", ErrNoteTooLong, MaxNoteLength)
	}

	return nil
}

// ValidateMetadata validates metadata size
func ValidateMetadata(metadata map[string]any) error {
	if metadata == nil {
		return nil
	}

	// Estimate size (rough approximation)
	size := 0
	for k, v := range metadata {
		size += len(k)
		size += len(fmt.Sprintf("%v", v))
	}

	if size > MaxMetadataSize {
		return fmt.Errorf("%w: metadata size %d bytes exceeds limit of %d bytes", ErrMetadataTooLarge, size, MaxMetadataSize)
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
