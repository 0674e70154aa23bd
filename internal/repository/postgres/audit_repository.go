package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
)

type auditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) repository.AuditRepository {
	return &auditRepository{pool: pool}
}

var _ repository.AuditRepository = (*auditRepository)(nil)

const auditLogColumns = `
	id,
	user_id,
	action,
	resource_type,
	resource_id,
	old_value,
	new_value,
	ip_address,
	user_agent,
	created_at
`

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	oldValue, err := encodeJSONMap(log.OldValue)
	if err != nil {
		return err
	}
	newValue, err := encodeJSONMap(log.NewValue)
	if err != nil {
		return err
	}

	return r.pool.QueryRow(
		ctx,
		`INSERT INTO audit_logs (user_id, action, resource_type, resource_id, old_value, new_value, ip_address, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		log.UserID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		oldValue,
		newValue,
		log.IPAddress,
		log.UserAgent,
		log.CreatedAt,
	).Scan(&log.ID)
}

func (r *auditRepository) List(ctx context.Context, filter repository.AuditListFilter) ([]*model.AuditLog, error) {
	args := make([]any, 0, 6)
	conditions := buildAuditListConditions(filter, &args)

	var builder strings.Builder
	builder.WriteString("SELECT ")
	builder.WriteString(auditLogColumns)
	builder.WriteString(" FROM audit_logs")
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	limit, offset := normalizePagination(filter.Pagination)
	args = append(args, limit, offset)
	builder.WriteString(fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)))

	rows, err := r.pool.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*model.AuditLog, 0)
	for rows.Next() {
		log, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}

func buildAuditListConditions(filter repository.AuditListFilter, args *[]any) []string {
	conditions := make([]string, 0, 4)

	if filter.UserID != nil {
		*args = append(*args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(*args)))
	}
	if filter.ResourceType != nil {
		*args = append(*args, *filter.ResourceType)
		conditions = append(conditions, fmt.Sprintf("resource_type = $%d", len(*args)))
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

func scanAuditLog(src scanTarget) (*model.AuditLog, error) {
	log := &model.AuditLog{}

	var oldValue, newValue []byte
	err := src.Scan(
		&log.ID,
		&log.UserID,
		&log.Action,
		&log.ResourceType,
		&log.ResourceID,
		&oldValue,
		&newValue,
		&log.IPAddress,
		&log.UserAgent,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if log.OldValue, err = decodeJSONMap(oldValue); err != nil {
		return nil, err
	}
	if log.NewValue, err = decodeJSONMap(newValue); err != nil {
		return nil, err
	}

	return log, nil
}
