package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
)

type creditLogRepository struct {
	pool *pgxpool.Pool
}

func NewCreditLogRepository(pool *pgxpool.Pool) repository.CreditLogRepository {
	return &creditLogRepository{pool: pool}
}

var _ repository.CreditLogRepository = (*creditLogRepository)(nil)

const creditLogColumns = `
	id,
	customer_email,
	amount,
	reason,
	kind,
	balance_before,
	balance_after,
	order_id,
	multiplier,
	created_by,
	created_at
`

func (r *creditLogRepository) ListByCustomer(
	ctx context.Context,
	email string,
	page repository.Pagination,
) ([]*model.CreditLogEntry, error) {
	limit, offset := normalizePagination(page)

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+creditLogColumns+`
		   FROM credit_logs
		  WHERE customer_email = $1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		model.NormalizeEmail(email),
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*model.CreditLogEntry, 0, limit)
	for rows.Next() {
		entry, err := scanCreditLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *creditLogRepository) CountByCustomer(ctx context.Context, email string) (int64, error) {
	var total int64
	err := r.pool.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM credit_logs WHERE customer_email = $1`,
		model.NormalizeEmail(email),
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *creditLogRepository) SumByCustomer(ctx context.Context, email string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.pool.QueryRow(
		ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM credit_logs WHERE customer_email = $1`,
		model.NormalizeEmail(email),
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func scanCreditLog(src scanTarget) (*model.CreditLogEntry, error) {
	entry := &model.CreditLogEntry{}
	err := src.Scan(
		&entry.ID,
		&entry.CustomerEmail,
		&entry.Amount,
		&entry.Reason,
		&entry.Kind,
		&entry.BalanceBefore,
		&entry.BalanceAfter,
		&entry.OrderID,
		&entry.Multiplier,
		&entry.CreatedBy,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return entry, nil
}
