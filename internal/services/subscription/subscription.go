// Package subscription реализует журнал подписок: последнее известное состояние каждой
// подписки пользователя и проверку доступа к платным возможностям.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/models"
)

// Repository определяет методы хранилища подписок.
type Repository interface {
	GetSubscriptionByBillingID(ctx context.Context, billingSubscriptionID string) (*models.Subscription, error)
	ListSubscriptionsByUserID(ctx context.Context, userID string) ([]models.Subscription, error)
	UpsertSubscription(ctx context.Context, in models.SubscriptionUpsert) (*models.Subscription, error)
	// RemoveSubscription возвращает владельца удалённой подписки или пустую строку.
	RemoveSubscription(ctx context.Context, billingSubscriptionID string) (string, error)
}

// Cache описывает методы для кэширования данных и счётчики версий.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
	Version(ctx context.Context, key string) (int64, error)
	Bump(ctx context.Context, key string) (int64, error)
}

// Service реализует журнал подписок с кэшированием списка подписок пользователя.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// NewService создает новый экземпляр Service. cache может быть nil.
func NewService(repo Repository, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

func userVersionKey(userID string) string {
	return "subscriptions:user:" + userID + ":version"
}

// userCacheKey включает версию: снимок, прочитанный до записи, сохраняется
// под устаревшей версией и после записи уже не читается.
func userCacheKey(userID string, version int64) string {
	return "subscriptions:user:" + userID + ":v" + strconv.FormatInt(version, 10)
}

// GetByBillingSubscriptionID возвращает подписку или nil, если её нет.
func (s *Service) GetByBillingSubscriptionID(ctx context.Context, billingSubscriptionID string) (*models.Subscription, error) {
	const op = "subscription.GetByBillingSubscriptionID"
	sub, err := s.repo.GetSubscriptionByBillingID(ctx, billingSubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// ListByUser возвращает все подписки пользователя, сначала пробуя кэш.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Subscription, error) {
	const op = "subscription.ListByUser"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))

	if s.cache == nil {
		return s.listFromRepo(ctx, op, userID)
	}

	version, err := s.cache.Version(ctx, userVersionKey(userID))
	if err != nil {
		log.Warn("failed to read subscriptions cache version", sl.Err(err))
		return s.listFromRepo(ctx, op, userID)
	}
	key := userCacheKey(userID, version)

	var cached []models.Subscription
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		log.Warn("failed to read subscriptions from cache", sl.Err(err))
	}
	if found {
		return cached, nil
	}

	subs, err := s.listFromRepo(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, subs, s.ttl); err != nil {
		log.Warn("failed to cache subscriptions", sl.Err(err))
	}
	return subs, nil
}

func (s *Service) listFromRepo(ctx context.Context, op, userID string) ([]models.Subscription, error) {
	subs, err := s.repo.ListSubscriptionsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// GetCurrent возвращает текущую подписку пользователя или nil.
func (s *Service) GetCurrent(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "subscription.GetCurrent"
	subs, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return Current(subs), nil
}

// HasActive сообщает, есть ли у пользователя подписка в статусе active.
func (s *Service) HasActive(ctx context.Context, userID string) (bool, error) {
	const op = "subscription.HasActive"
	subs, err := s.ListByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	for i := range subs {
		if subs[i].IsActive() {
			return true, nil
		}
	}
	return false, nil
}

// Upsert создаёт или обновляет подписку по BillingSubscriptionID.
func (s *Service) Upsert(ctx context.Context, in models.SubscriptionUpsert) (*models.Subscription, error) {
	const op = "subscription.Upsert"
	sub, err := s.repo.UpsertSubscription(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, sub.UserID)
	if in.UserID != "" && in.UserID != sub.UserID {
		s.invalidate(ctx, in.UserID)
	}
	s.log.Info("subscription upserted",
		slog.String("billing_subscription_id", sub.BillingSubscriptionID),
		slog.String("user_id", sub.UserID),
		slog.String("status", sub.Status),
	)
	return sub, nil
}

// Remove удаляет подписку. Отсутствие подписки не считается ошибкой.
func (s *Service) Remove(ctx context.Context, billingSubscriptionID string) error {
	const op = "subscription.Remove"
	userID, err := s.repo.RemoveSubscription(ctx, billingSubscriptionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if userID == "" {
		s.log.Info("subscription to remove not found", slog.String("billing_subscription_id", billingSubscriptionID))
		return nil
	}

	s.invalidate(ctx, userID)
	s.log.Info("subscription removed",
		slog.String("billing_subscription_id", billingSubscriptionID),
		slog.String("user_id", userID),
	)
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	version, err := s.cache.Bump(ctx, userVersionKey(userID))
	if err != nil {
		s.log.Warn("failed to bump subscriptions cache version", slog.String("user_id", userID), sl.Err(err))
		return
	}
	if err := s.cache.Invalidate(ctx, userCacheKey(userID, version-1)); err != nil {
		s.log.Warn("failed to invalidate subscriptions cache", slog.String("user_id", userID), sl.Err(err))
	}
}

// Current выбирает текущую подписку: активная (при нескольких с наибольшим концом периода),
// иначе с наибольшим концом периода. Для пустого списка — nil.
func Current(subs []models.Subscription) *models.Subscription {
	var best *models.Subscription
	for i := range subs {
		sub := &subs[i]
		switch {
		case best == nil:
			best = sub
		case sub.IsActive() != best.IsActive():
			if sub.IsActive() {
				best = sub
			}
		case sub.CurrentPeriodEnd > best.CurrentPeriodEnd:
			best = sub
		}
	}
	if best == nil {
		return nil
	}
	res := *best
	return &res
}
