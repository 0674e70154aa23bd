package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gameshop-hub/internal/service"
)

type MultiplierJob struct {
	multiplierService *service.MultiplierService
	logger            *zap.Logger
}

func NewMultiplierJob(multiplierService *service.MultiplierService, logger *zap.Logger) *MultiplierJob {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MultiplierJob{
		multiplierService: multiplierService,
		logger:            logger,
	}
}

func (j *MultiplierJob) DeactivateEnded() {
	if j == nil || j.multiplierService == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := j.multiplierService.DeactivateEnded(ctx, time.Now().UTC()); err != nil {
		j.logger.Warn("multiplier deactivate sweep failed", zap.Error(err))
	}
}
