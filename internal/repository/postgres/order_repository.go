package postgres

import (
	"context"
	"encoding/json"
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

type orderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) repository.OrderRepository {
	return &orderRepository{pool: pool}
}

var _ repository.OrderRepository = (*orderRepository)(nil)

const orderColumns = `
	id,
	customer_name,
	customer_phone,
	customer_email,
	items,
	items_text,
	total_amount,
	remark,
	status,
	payment_screenshot,
	payment_method,
	promo_code,
	discount_amount,
	credits_used,
	credits_pending,
	credits_deducted,
	credits_awarded,
	created_at,
	updated_at
`

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	if order.Status == "" {
		order.Status = model.OrderStatusPending
	}

	itemsRaw, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (
			id, customer_name, customer_phone, customer_email, items, items_text,
			total_amount, remark, status, payment_screenshot, payment_method,
			promo_code, discount_amount, credits_used, credits_pending,
			credits_deducted, credits_awarded, created_at, updated_at
		)
		VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18, $19
		)
	`

	_, err = r.pool.Exec(
		ctx,
		query,
		order.ID,
		order.CustomerName,
		order.CustomerPhone,
		order.CustomerEmail,
		itemsRaw,
		order.ItemsText,
		order.TotalAmount,
		order.Remark,
		order.Status,
		order.PaymentScreenshot,
		order.PaymentMethod,
		order.PromoCode,
		order.DiscountAmount,
		order.CreditsUsed,
		order.CreditsPending,
		order.CreditsDeducted,
		order.CreditsAwarded,
		order.CreatedAt,
		order.UpdatedAt,
	)
	return err
}

func (r *orderRepository) CountByCustomer(ctx context.Context, email string) (int64, error) {
	var total int64
	err := r.pool.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM orders WHERE customer_email = $1`,
		model.NormalizeEmail(email),
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *orderRepository) List(ctx context.Context, filter repository.OrderListFilter) ([]*model.Order, error) {
	limit, offset := normalizePagination(filter.Pagination)

	args := make([]any, 0, 6)
	conditions := buildOrderListConditions(filter, &args)

	var builder strings.Builder
	builder.WriteString("SELECT ")
	builder.WriteString(orderColumns)
	builder.WriteString(" FROM orders")

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

	orders := make([]*model.Order, 0, limit)
	for rows.Next() {
		item, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *orderRepository) Count(ctx context.Context, filter repository.OrderListFilter) (int64, error) {
	args := make([]any, 0, 4)
	conditions := buildOrderListConditions(filter, &args)

	var builder strings.Builder
	builder.WriteString("SELECT COUNT(*) FROM orders")
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

func (r *orderRepository) History(ctx context.Context, orderID uuid.UUID) ([]*model.OrderStatusHistory, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT id, order_id, old_status, new_status, note, updated_by, created_at
		   FROM order_status_history
		  WHERE order_id = $1
		  ORDER BY created_at ASC`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]*model.OrderStatusHistory, 0, 8)
	for rows.Next() {
		entry := &model.OrderStatusHistory{}
		if err := rows.Scan(
			&entry.ID,
			&entry.OrderID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.Note,
			&entry.UpdatedBy,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		history = append(history, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return history, nil
}

func buildOrderListConditions(filter repository.OrderListFilter, args *[]any) []string {
	conditions := make([]string, 0, 4)

	if filter.Status != nil {
		*args = append(*args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(*args)))
	}
	if filter.CustomerEmail != nil {
		*args = append(*args, model.NormalizeEmail(*filter.CustomerEmail))
		conditions = append(conditions, fmt.Sprintf("customer_email = $%d", len(*args)))
	}
	if filter.StartTime != nil {
		*args = append(*args, *filter.StartTime)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(*args)))
	}
	if filter.EndTime != nil {
		*args = append(*args, *filter.EndTime)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(*args)))
	}

	return conditions
}

func scanOrder(src scanTarget) (*model.Order, error) {
	order := &model.Order{}
	var itemsRaw []byte
	err := src.Scan(
		&order.ID,
		&order.CustomerName,
		&order.CustomerPhone,
		&order.CustomerEmail,
		&itemsRaw,
		&order.ItemsText,
		&order.TotalAmount,
		&order.Remark,
		&order.Status,
		&order.PaymentScreenshot,
		&order.PaymentMethod,
		&order.PromoCode,
		&order.DiscountAmount,
		&order.CreditsUsed,
		&order.CreditsPending,
		&order.CreditsDeducted,
		&order.CreditsAwarded,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &order.Items); err != nil {
			return nil, err
		}
	}

	return order, nil
}
