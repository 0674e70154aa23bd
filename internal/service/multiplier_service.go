package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
)

var (
	ErrMultiplierEventNotFound = errors.New("multiplier event not found")
	ErrInvalidMultiplierInput  = errors.New("invalid multiplier event input")
)

type MultiplierEventInput struct {
	Name       string                 `json:"name"`
	Multiplier decimal.Decimal        `json:"multiplier"`
	StartTime  time.Time              `json:"start_time"`
	EndTime    time.Time              `json:"end_time"`
	AppliesTo  []model.RewardCategory `json:"applies_to"`
	IsActive   *bool                  `json:"is_active"`
}

type MultiplierService struct {
	eventRepo repository.MultiplierEventRepository
	auditRepo repository.AuditRepository
	logger    *zap.Logger
}

func NewMultiplierService(
	eventRepo repository.MultiplierEventRepository,
	auditRepo repository.AuditRepository,
	logger *zap.Logger,
) *MultiplierService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MultiplierService{
		eventRepo: eventRepo,
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// EffectiveMultiplier returns the highest multiplier among active
// events whose window contains now and that cover the category.
// Overlapping events never stack.
func (s *MultiplierService) EffectiveMultiplier(
	ctx context.Context,
	category model.RewardCategory,
	now time.Time,
) (decimal.Decimal, *model.MultiplierEvent, error) {
	one := decimal.NewFromInt(1)
	if s.eventRepo == nil {
		return one, nil, errors.New("multiplier event repository is nil")
	}

	events, err := s.eventRepo.ActiveAt(ctx, now)
	if err != nil {
		return one, nil, err
	}

	best := one
	var bestEvent *model.MultiplierEvent
	for _, e := range events {
		if !e.Covers(category) {
			continue
		}
		if e.Multiplier.GreaterThan(best) {
			best = e.Multiplier
			bestEvent = e
		}
	}

	return best, bestEvent, nil
}

func (s *MultiplierService) Create(
	ctx context.Context,
	operatorID *uuid.UUID,
	input MultiplierEventInput,
) (*model.MultiplierEvent, error) {
	if s.eventRepo == nil {
		return nil, errors.New("multiplier event repository is nil")
	}
	if err := validateMultiplierInput(input); err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	multiplierEvent := &model.MultiplierEvent{
		ID:         uuid.New(),
		Name:       strings.TrimSpace(input.Name),
		Multiplier: input.Multiplier,
		StartTime:  input.StartTime.UTC(),
		EndTime:    input.EndTime.UTC(),
		AppliesTo:  input.AppliesTo,
		IsActive:   active,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.eventRepo.Create(ctx, multiplierEvent); err != nil {
		return nil, err
	}

	s.writeAudit(ctx, operatorID, "multiplier_event.create", multiplierEvent)
	return multiplierEvent, nil
}

func (s *MultiplierService) Update(
	ctx context.Context,
	operatorID *uuid.UUID,
	id uuid.UUID,
	input MultiplierEventInput,
) (*model.MultiplierEvent, error) {
	if s.eventRepo == nil {
		return nil, errors.New("multiplier event repository is nil")
	}
	if err := validateMultiplierInput(input); err != nil {
		return nil, err
	}

	multiplierEvent, err := s.eventRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrMultiplierEventNotFound
	}
	if err != nil {
		return nil, err
	}

	multiplierEvent.Name = strings.TrimSpace(input.Name)
	multiplierEvent.Multiplier = input.Multiplier
	multiplierEvent.StartTime = input.StartTime.UTC()
	multiplierEvent.EndTime = input.EndTime.UTC()
	multiplierEvent.AppliesTo = input.AppliesTo
	if input.IsActive != nil {
		multiplierEvent.IsActive = *input.IsActive
	}

	if err := s.eventRepo.Update(ctx, multiplierEvent); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMultiplierEventNotFound
		}
		return nil, err
	}

	s.writeAudit(ctx, operatorID, "multiplier_event.update", multiplierEvent)
	return multiplierEvent, nil
}

func (s *MultiplierService) Delete(ctx context.Context, operatorID *uuid.UUID, id uuid.UUID) error {
	if s.eventRepo == nil {
		return errors.New("multiplier event repository is nil")
	}

	err := s.eventRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrMultiplierEventNotFound
	}
	if err != nil {
		return err
	}

	if s.auditRepo != nil {
		resourceID := id.String()
		_ = s.auditRepo.Create(ctx, &model.AuditLog{
			UserID:       operatorID,
			Action:       "multiplier_event.delete",
			ResourceType: stringPtr("multiplier_event"),
			ResourceID:   &resourceID,
			CreatedAt:    time.Now().UTC(),
		})
	}

	return nil
}

func (s *MultiplierService) List(ctx context.Context, page repository.Pagination) ([]*model.MultiplierEvent, error) {
	if s.eventRepo == nil {
		return nil, errors.New("multiplier event repository is nil")
	}
	return s.eventRepo.List(ctx, page)
}

func (s *MultiplierService) ActiveNow(ctx context.Context) ([]*model.MultiplierEvent, error) {
	if s.eventRepo == nil {
		return nil, errors.New("multiplier event repository is nil")
	}
	return s.eventRepo.ActiveAt(ctx, time.Now().UTC())
}

// DeactivateEnded flips is_active off for events whose window has
// passed. The scheduler calls this on a fixed interval.
func (s *MultiplierService) DeactivateEnded(ctx context.Context, now time.Time) (int64, error) {
	if s.eventRepo == nil {
		return 0, errors.New("multiplier event repository is nil")
	}

	count, err := s.eventRepo.DeactivateEnded(ctx, now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("deactivated ended multiplier events", zap.Int64("count", count))
	}
	return count, nil
}

func (s *MultiplierService) writeAudit(
	ctx context.Context,
	operatorID *uuid.UUID,
	action string,
	multiplierEvent *model.MultiplierEvent,
) {
	if s.auditRepo == nil || multiplierEvent == nil {
		return
	}

	resourceID := multiplierEvent.ID.String()
	_ = s.auditRepo.Create(ctx, &model.AuditLog{
		UserID:       operatorID,
		Action:       action,
		ResourceType: stringPtr("multiplier_event"),
		ResourceID:   &resourceID,
		NewValue: map[string]interface{}{
			"name":       multiplierEvent.Name,
			"multiplier": multiplierEvent.Multiplier.String(),
			"start_time": multiplierEvent.StartTime.Format(time.RFC3339),
			"end_time":   multiplierEvent.EndTime.Format(time.RFC3339),
			"is_active":  multiplierEvent.IsActive,
		},
		CreatedAt: time.Now().UTC(),
	})
}

func validateMultiplierInput(input MultiplierEventInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return ErrInvalidMultiplierInput
	}
	if input.Multiplier.LessThan(decimal.NewFromInt(1)) {
		return ErrInvalidMultiplierInput
	}
	if !input.EndTime.After(input.StartTime) {
		return ErrInvalidMultiplierInput
	}
	for _, category := range input.AppliesTo {
		if !category.Valid() {
			return ErrInvalidMultiplierInput
		}
	}
	return nil
}
