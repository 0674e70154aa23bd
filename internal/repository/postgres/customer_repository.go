package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
)

type customerRepository struct {
	pool *pgxpool.Pool
}

func NewCustomerRepository(pool *pgxpool.Pool) repository.CustomerRepository {
	return &customerRepository{pool: pool}
}

var _ repository.CustomerRepository = (*customerRepository)(nil)

const customerColumns = `
	id,
	email,
	name,
	phone,
	credit_balance,
	daily_reward_streak,
	last_daily_reward_date,
	referral_code,
	referred_by,
	referred_by_code,
	created_at,
	updated_at
`

func (r *customerRepository) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email = $1`
	customer, err := scanCustomer(r.pool.QueryRow(ctx, query, model.NormalizeEmail(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (r *customerRepository) FindByReferralCode(ctx context.Context, code string) (*model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE referral_code = $1`
	customer, err := scanCustomer(r.pool.QueryRow(ctx, query, strings.ToUpper(strings.TrimSpace(code))))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	customer.Email = model.NormalizeEmail(customer.Email)

	now := time.Now().UTC()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	if customer.UpdatedAt.IsZero() {
		customer.UpdatedAt = customer.CreatedAt
	}

	query := `
		INSERT INTO customers (
			id, email, name, phone, credit_balance, daily_reward_streak,
			last_daily_reward_date, referral_code, referred_by, referred_by_code,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		customer.ID,
		customer.Email,
		customer.Name,
		customer.Phone,
		customer.CreditBalance,
		customer.DailyRewardStreak,
		customer.LastDailyRewardDate,
		customer.ReferralCode,
		customer.ReferredBy,
		customer.ReferredByCode,
		customer.CreatedAt,
		customer.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *customerRepository) Update(ctx context.Context, customer *model.Customer) error {
	customer.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE customers
		SET name = $2,
			phone = $3,
			credit_balance = $4,
			daily_reward_streak = $5,
			last_daily_reward_date = $6,
			referral_code = $7,
			referred_by = $8,
			referred_by_code = $9,
			updated_at = $10
		WHERE email = $1
	`

	tag, err := r.pool.Exec(
		ctx,
		query,
		model.NormalizeEmail(customer.Email),
		customer.Name,
		customer.Phone,
		customer.CreditBalance,
		customer.DailyRewardStreak,
		customer.LastDailyRewardDate,
		customer.ReferralCode,
		customer.ReferredBy,
		customer.ReferredByCode,
		customer.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *customerRepository) SetReferralCode(ctx context.Context, email, code string) error {
	query := `
		UPDATE customers
		SET referral_code = $2,
			updated_at = NOW()
		WHERE email = $1
		  AND referral_code IS NULL
	`
	tag, err := r.pool.Exec(ctx, query, model.NormalizeEmail(email), strings.ToUpper(strings.TrimSpace(code)))
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *customerRepository) List(ctx context.Context, filter repository.CustomerListFilter) ([]*model.Customer, error) {
	limit, offset := normalizePagination(filter.Pagination)

	args := make([]any, 0, 3)
	conditions := buildCustomerListConditions(filter, &args)

	var builder strings.Builder
	builder.WriteString("SELECT ")
	builder.WriteString(customerColumns)
	builder.WriteString(" FROM customers")

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	args = append(args, limit, offset)
	_, _ = fmt.Fprintf(&builder, " ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]*model.Customer, 0, limit)
	for rows.Next() {
		item, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return customers, nil
}

func (r *customerRepository) Count(ctx context.Context, filter repository.CustomerListFilter) (int64, error) {
	args := make([]any, 0, 1)
	conditions := buildCustomerListConditions(filter, &args)

	var builder strings.Builder
	builder.WriteString("SELECT COUNT(*) FROM customers")
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, builder.String(), args...).Scan(&total); err != nil {
		return 0, err
	}

	return total, nil
}

func buildCustomerListConditions(filter repository.CustomerListFilter, args *[]any) []string {
	conditions := make([]string, 0, 1)

	if filter.Keyword != nil {
		keyword := "%" + strings.TrimSpace(*filter.Keyword) + "%"
		*args = append(*args, keyword)
		argPos := len(*args)
		conditions = append(conditions, fmt.Sprintf("(email ILIKE $%d OR name ILIKE $%d)", argPos, argPos))
	}

	return conditions
}

func scanCustomer(src scanTarget) (*model.Customer, error) {
	customer := &model.Customer{}
	err := src.Scan(
		&customer.ID,
		&customer.Email,
		&customer.Name,
		&customer.Phone,
		&customer.CreditBalance,
		&customer.DailyRewardStreak,
		&customer.LastDailyRewardDate,
		&customer.ReferralCode,
		&customer.ReferredBy,
		&customer.ReferredByCode,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return customer, nil
}
