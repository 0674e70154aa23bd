package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
)

const settingsDefaultCacheTTL = 60 * time.Second

const (
	settingsKindCredit      = "credit_settings"
	settingsKindReferral    = "referral_settings"
	settingsKindDailyReward = "daily_reward_settings"
)

var ErrInvalidSettingsInput = errors.New("invalid settings input")

// SettingsService serves the three configuration singletons with a
// short read cache. Updates write through and drop the cached copy so
// the next read sees the new document.
type SettingsService struct {
	settingsRepo repository.SettingsRepository
	auditRepo    repository.AuditRepository
	logger       *zap.Logger

	cacheTTL time.Duration
	cacheMu  sync.RWMutex
	cache    map[string]cachedSettings
}

type cachedSettings struct {
	raw       []byte
	expiresAt time.Time
}

func NewSettingsService(
	settingsRepo repository.SettingsRepository,
	auditRepo repository.AuditRepository,
	logger *zap.Logger,
) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SettingsService{
		settingsRepo: settingsRepo,
		auditRepo:    auditRepo,
		logger:       logger,
		cacheTTL:     settingsDefaultCacheTTL,
		cache:        make(map[string]cachedSettings),
	}
}

func (s *SettingsService) CreditSettings(ctx context.Context) (model.CreditSettings, error) {
	settings := model.DefaultCreditSettings()
	if err := s.load(ctx, settingsKindCredit, &settings); err != nil {
		return model.CreditSettings{}, err
	}
	return settings, nil
}

func (s *SettingsService) UpdateCreditSettings(
	ctx context.Context,
	operatorID *uuid.UUID,
	settings model.CreditSettings,
) error {
	if settings.CashbackPercentage.Sign() < 0 || settings.MinOrderAmount.Sign() < 0 {
		return ErrInvalidSettingsInput
	}
	return s.store(ctx, settingsKindCredit, operatorID, settings)
}

func (s *SettingsService) ReferralSettings(ctx context.Context) (model.ReferralSettings, error) {
	settings := model.DefaultReferralSettings()
	if err := s.load(ctx, settingsKindReferral, &settings); err != nil {
		return model.ReferralSettings{}, err
	}
	return settings, nil
}

func (s *SettingsService) UpdateReferralSettings(
	ctx context.Context,
	operatorID *uuid.UUID,
	settings model.ReferralSettings,
) error {
	if settings.ReferrerReward.Sign() < 0 || settings.RefereeReward.Sign() < 0 {
		return ErrInvalidSettingsInput
	}
	if settings.MinPurchaseAmount.Sign() < 0 {
		return ErrInvalidSettingsInput
	}
	return s.store(ctx, settingsKindReferral, operatorID, settings)
}

func (s *SettingsService) DailyRewardSettings(ctx context.Context) (model.DailyRewardSettings, error) {
	settings := model.DefaultDailyRewardSettings()
	if err := s.load(ctx, settingsKindDailyReward, &settings); err != nil {
		return model.DailyRewardSettings{}, err
	}
	return settings, nil
}

func (s *SettingsService) UpdateDailyRewardSettings(
	ctx context.Context,
	operatorID *uuid.UUID,
	settings model.DailyRewardSettings,
) error {
	if settings.RewardAmount.Sign() < 0 {
		return ErrInvalidSettingsInput
	}
	for _, bonus := range settings.StreakMilestones {
		if bonus.Sign() < 0 {
			return ErrInvalidSettingsInput
		}
	}
	return s.store(ctx, settingsKindDailyReward, operatorID, settings)
}

// load unmarshals the stored document over the caller's defaults, so
// fields absent from an older document keep their default values.
func (s *SettingsService) load(ctx context.Context, kind string, dest any) error {
	if s.settingsRepo == nil {
		return errors.New("settings repository is nil")
	}

	if raw := s.getCached(kind); raw != nil {
		return json.Unmarshal(raw, dest)
	}

	raw, err := s.settingsRepo.Get(ctx, kind)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return err
	}

	s.setCached(kind, raw)
	return nil
}

func (s *SettingsService) store(ctx context.Context, kind string, operatorID *uuid.UUID, settings any) error {
	if s.settingsRepo == nil {
		return errors.New("settings repository is nil")
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}

	if err := s.settingsRepo.Upsert(ctx, kind, raw); err != nil {
		return err
	}

	s.invalidate(kind)

	if s.auditRepo != nil {
		var newValue map[string]interface{}
		_ = json.Unmarshal(raw, &newValue)
		_ = s.auditRepo.Create(ctx, &model.AuditLog{
			UserID:       operatorID,
			Action:       "settings.update",
			ResourceType: stringPtr("settings"),
			ResourceID:   stringPtr(kind),
			NewValue:     newValue,
			CreatedAt:    time.Now().UTC(),
		})
	}

	return nil
}

func (s *SettingsService) getCached(kind string) []byte {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	entry, ok := s.cache[kind]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil
	}
	return entry.raw
}

func (s *SettingsService) setCached(kind string, raw []byte) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache[kind] = cachedSettings{raw: raw, expiresAt: time.Now().Add(s.cacheTTL)}
}

func (s *SettingsService) invalidate(kind string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.cache, kind)
}
