package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Product struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	CategoryID  *uuid.UUID      `db:"category_id" json:"category_id,omitempty"`
	Price       decimal.Decimal `db:"price" json:"price"`
	ImageURL    *string         `db:"image_url" json:"image_url,omitempty"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	SortOrder   int             `db:"sort_order" json:"sort_order"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}
