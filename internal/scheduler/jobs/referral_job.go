package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gameshop-hub/internal/service"
)

type ReferralJob struct {
	referralService *service.ReferralService
	logger          *zap.Logger
}

func NewReferralJob(referralService *service.ReferralService, logger *zap.Logger) *ReferralJob {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReferralJob{
		referralService: referralService,
		logger:          logger,
	}
}

func (j *ReferralJob) ReleasePendingRewards() {
	if j == nil || j.referralService == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	released, err := j.referralService.ReleasePendingRewards(ctx)
	if err != nil {
		j.logger.Warn("referral pending release failed", zap.Error(err))
		return
	}
	if released > 0 {
		j.logger.Info("referral pending rewards released", zap.Int64("count", released))
	}
}
