package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

type OrderItem struct {
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Variation *string         `json:"variation,omitempty"`
}

type Order struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	CustomerName      string          `db:"customer_name" json:"customer_name"`
	CustomerPhone     string          `db:"customer_phone" json:"customer_phone"`
	CustomerEmail     *string         `db:"customer_email" json:"customer_email,omitempty"`
	Items             []OrderItem     `db:"items" json:"items"`
	ItemsText         string          `db:"items_text" json:"items_text"`
	TotalAmount       decimal.Decimal `db:"total_amount" json:"total_amount"`
	Remark            *string         `db:"remark" json:"remark,omitempty"`
	Status            OrderStatus     `db:"status" json:"status"`
	PaymentScreenshot *string         `db:"payment_screenshot" json:"payment_screenshot,omitempty"`
	PaymentMethod     *string         `db:"payment_method" json:"payment_method,omitempty"`
	PromoCode         *string         `db:"promo_code" json:"promo_code,omitempty"`
	DiscountAmount    decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	CreditsUsed       decimal.Decimal `db:"credits_used" json:"credits_used"`
	CreditsPending    bool            `db:"credits_pending" json:"credits_pending"`
	CreditsDeducted   bool            `db:"credits_deducted" json:"credits_deducted"`
	CreditsAwarded    decimal.Decimal `db:"credits_awarded" json:"credits_awarded"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

type OrderStatusHistory struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	OrderID   uuid.UUID   `db:"order_id" json:"order_id"`
	OldStatus OrderStatus `db:"old_status" json:"old_status"`
	NewStatus OrderStatus `db:"new_status" json:"new_status"`
	Note      *string     `db:"note" json:"note,omitempty"`
	UpdatedBy *string     `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}
