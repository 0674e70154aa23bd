package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type scanSource interface {
	Scan(dest ...any) error
}

func stringPtr(v string) *string {
	return &v
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

func timePtr(v time.Time) *time.Time {
	cloned := v.UTC()
	return &cloned
}

// money rounds to the two decimal places every balance and ledger
// amount is stored with.
func money(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
