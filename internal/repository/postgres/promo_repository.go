package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
)

type promoRepository struct {
	pool *pgxpool.Pool
}

func NewPromoRepository(pool *pgxpool.Pool) repository.PromoRepository {
	return &promoRepository{pool: pool}
}

var _ repository.PromoRepository = (*promoRepository)(nil)

const promoColumns = `
	id,
	code,
	discount_type,
	discount_value,
	min_order_amount,
	max_uses,
	max_uses_per_customer,
	used_count,
	is_active,
	expiry_date,
	first_time_only,
	created_at
`

func (r *promoRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PromoCode, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes WHERE id = $1`
	promo, err := scanPromoCode(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return promo, nil
}

func (r *promoRepository) FindByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes WHERE code = $1`
	promo, err := scanPromoCode(r.pool.QueryRow(ctx, query, strings.ToUpper(strings.TrimSpace(code))))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return promo, nil
}

func (r *promoRepository) Create(ctx context.Context, promo *model.PromoCode) error {
	if promo.ID == uuid.Nil {
		promo.ID = uuid.New()
	}
	if promo.CreatedAt.IsZero() {
		promo.CreatedAt = time.Now().UTC()
	}
	promo.Code = strings.ToUpper(strings.TrimSpace(promo.Code))

	query := `
		INSERT INTO promo_codes (
			id, code, discount_type, discount_value, min_order_amount, max_uses,
			max_uses_per_customer, used_count, is_active, expiry_date,
			first_time_only, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		promo.ID,
		promo.Code,
		promo.DiscountType,
		promo.DiscountValue,
		promo.MinOrderAmount,
		promo.MaxUses,
		promo.MaxUsesPerCustomer,
		promo.UsedCount,
		promo.IsActive,
		promo.ExpiryDate,
		promo.FirstTimeOnly,
		promo.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *promoRepository) Update(ctx context.Context, promo *model.PromoCode) error {
	query := `
		UPDATE promo_codes
		SET discount_type = $2,
			discount_value = $3,
			min_order_amount = $4,
			max_uses = $5,
			max_uses_per_customer = $6,
			is_active = $7,
			expiry_date = $8,
			first_time_only = $9
		WHERE id = $1
	`

	tag, err := r.pool.Exec(
		ctx,
		query,
		promo.ID,
		promo.DiscountType,
		promo.DiscountValue,
		promo.MinOrderAmount,
		promo.MaxUses,
		promo.MaxUsesPerCustomer,
		promo.IsActive,
		promo.ExpiryDate,
		promo.FirstTimeOnly,
	)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *promoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM promo_codes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *promoRepository) List(ctx context.Context, page repository.Pagination) ([]*model.PromoCode, error) {
	limit, offset := normalizePagination(page)

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+promoColumns+`
		   FROM promo_codes
		  ORDER BY created_at DESC
		  LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	promos := make([]*model.PromoCode, 0, limit)
	for rows.Next() {
		item, err := scanPromoCode(rows)
		if err != nil {
			return nil, err
		}
		promos = append(promos, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return promos, nil
}

func (r *promoRepository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE promo_codes SET used_count = used_count + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func scanPromoCode(src scanTarget) (*model.PromoCode, error) {
	promo := &model.PromoCode{}
	err := src.Scan(
		&promo.ID,
		&promo.Code,
		&promo.DiscountType,
		&promo.DiscountValue,
		&promo.MinOrderAmount,
		&promo.MaxUses,
		&promo.MaxUsesPerCustomer,
		&promo.UsedCount,
		&promo.IsActive,
		&promo.ExpiryDate,
		&promo.FirstTimeOnly,
		&promo.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return promo, nil
}
