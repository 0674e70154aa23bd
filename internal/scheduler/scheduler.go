package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	specMultiplierSweep = "0 */10 * * * *"
	specReferralRelease = "0 */15 * * * *"
)

type MultiplierTask interface {
	DeactivateEnded()
}

type ReferralTask interface {
	ReleasePendingRewards()
}

type Deps struct {
	MultiplierJob MultiplierTask
	ReferralJob   ReferralTask
}

func NewScheduler(deps Deps, logger *zap.Logger) *cron.Cron {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))

	if deps.MultiplierJob != nil {
		addFunc(c, specMultiplierSweep, "multiplier.deactivate_ended", logger, deps.MultiplierJob.DeactivateEnded)
	}
	if deps.ReferralJob != nil {
		addFunc(c, specReferralRelease, "referral.release_pending", logger, deps.ReferralJob.ReleasePendingRewards)
	}

	return c
}

func addFunc(c *cron.Cron, spec string, name string, logger *zap.Logger, fn func()) {
	if c == nil || fn == nil {
		return
	}

	if _, err := c.AddFunc(spec, func() {
		defer recoverJobPanic(name, logger)
		start := time.Now()
		fn()
		logger.Debug("scheduler job finished", zap.String("job", name), zap.Duration("cost", time.Since(start)))
	}); err != nil {
		logger.Error("register scheduler job failed",
			zap.String("job", name),
			zap.String("spec", spec),
			zap.Error(err),
		)
	}
}

func recoverJobPanic(jobName string, logger *zap.Logger) {
	if logger == nil {
		return
	}

	if recovered := recover(); recovered != nil {
		logger.Error("scheduler job panic recovered",
			zap.String("job", jobName),
			zap.Any("panic", recovered),
		)
	}
}
