package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

type PromoCode struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	Code              string          `db:"code" json:"code"`
	DiscountType      DiscountType    `db:"discount_type" json:"discount_type"`
	DiscountValue     decimal.Decimal `db:"discount_value" json:"discount_value"`
	MinOrderAmount    decimal.Decimal `db:"min_order_amount" json:"min_order_amount"`
	MaxUses           *int            `db:"max_uses" json:"max_uses,omitempty"`
	MaxUsesPerCustomer *int           `db:"max_uses_per_customer" json:"max_uses_per_customer,omitempty"`
	UsedCount         int             `db:"used_count" json:"used_count"`
	IsActive          bool            `db:"is_active" json:"is_active"`
	ExpiryDate        *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	FirstTimeOnly     bool            `db:"first_time_only" json:"first_time_only"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}
