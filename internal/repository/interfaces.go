package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gameshop-hub/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflict")
)

type Pagination struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

type CustomerListFilter struct {
	Keyword    *string    `json:"keyword,omitempty"`
	Pagination Pagination `json:"pagination"`
}

type OrderListFilter struct {
	Status        *model.OrderStatus `json:"status,omitempty"`
	CustomerEmail *string            `json:"customer_email,omitempty"`
	StartTime     *time.Time         `json:"start_time,omitempty"`
	EndTime       *time.Time         `json:"end_time,omitempty"`
	Pagination    Pagination         `json:"pagination"`
}

type AuditListFilter struct {
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	ResourceType *string    `json:"resource_type,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Pagination   Pagination `json:"pagination"`
}

type CustomerRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.Customer, error)
	FindByReferralCode(ctx context.Context, code string) (*model.Customer, error)
	Create(ctx context.Context, customer *model.Customer) error
	Update(ctx context.Context, customer *model.Customer) error
	// SetReferralCode fails with ErrConflict when the code is already taken.
	SetReferralCode(ctx context.Context, email, code string) error
	List(ctx context.Context, filter CustomerListFilter) ([]*model.Customer, error)
	Count(ctx context.Context, filter CustomerListFilter) (int64, error)
}

// CreditLogRepository is read-only: ledger rows are appended exclusively
// inside the credit service's transactions and never mutated after.
type CreditLogRepository interface {
	ListByCustomer(ctx context.Context, email string, page Pagination) ([]*model.CreditLogEntry, error)
	CountByCustomer(ctx context.Context, email string) (int64, error)
	SumByCustomer(ctx context.Context, email string) (decimal.Decimal, error)
}

type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	Create(ctx context.Context, order *model.Order) error
	CountByCustomer(ctx context.Context, email string) (int64, error)
	List(ctx context.Context, filter OrderListFilter) ([]*model.Order, error)
	Count(ctx context.Context, filter OrderListFilter) (int64, error)
	History(ctx context.Context, orderID uuid.UUID) ([]*model.OrderStatusHistory, error)
}

type ReferralRepository interface {
	Create(ctx context.Context, referral *model.Referral) error
	ListByReferrer(ctx context.Context, email string, page Pagination) ([]*model.Referral, error)
	CountByReferrer(ctx context.Context, email string) (int64, error)
	TotalEarnedByReferrer(ctx context.Context, email string) (decimal.Decimal, error)
}

type MultiplierEventRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.MultiplierEvent, error)
	Create(ctx context.Context, event *model.MultiplierEvent) error
	Update(ctx context.Context, event *model.MultiplierEvent) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, page Pagination) ([]*model.MultiplierEvent, error)
	// ActiveAt returns enabled events whose window contains now.
	ActiveAt(ctx context.Context, now time.Time) ([]*model.MultiplierEvent, error)
	DeactivateEnded(ctx context.Context, now time.Time) (int64, error)
}

type PromoRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.PromoCode, error)
	FindByCode(ctx context.Context, code string) (*model.PromoCode, error)
	Create(ctx context.Context, promo *model.PromoCode) error
	Update(ctx context.Context, promo *model.PromoCode) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, page Pagination) ([]*model.PromoCode, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) error
}

type CatalogRepository interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	CreateProduct(ctx context.Context, product *model.Product) error
	UpdateProduct(ctx context.Context, product *model.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListProducts(ctx context.Context, categoryID *uuid.UUID, activeOnly bool, page Pagination) ([]*model.Product, error)
	CreateCategory(ctx context.Context, category *model.Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]*model.Category, error)
}

type AdminUserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.AdminUser, error)
	FindByUsername(ctx context.Context, username string) (*model.AdminUser, error)
	Create(ctx context.Context, user *model.AdminUser) error
}

type AuditRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
	List(ctx context.Context, filter AuditListFilter) ([]*model.AuditLog, error)
}

// SettingsRepository stores one JSON document per settings kind
// (credit_settings, referral_settings, daily_reward_settings).
type SettingsRepository interface {
	Get(ctx context.Context, kind string) ([]byte, error)
	Upsert(ctx context.Context, kind string, data []byte) error
}
