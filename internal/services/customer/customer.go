// Package customer реализует справочник клиентов: соответствие пользователя и клиента
// платёжной системы и безопасное создание клиента при первом обращении.
package customer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/saas-billing/internal/cache"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/models"
	"github.com/magabrotheeeer/saas-billing/internal/paymentprovider"
)

// Пространство имён для детерминированных ключей идемпотентности.
var idempotencyNamespace = uuid.MustParse("6f1c7a8e-3b7e-4d2a-9a57-0f2f4b1e5c11")

// Repository определяет методы хранилища клиентов.
type Repository interface {
	GetCustomerByUserID(ctx context.Context, userID string) (*models.Customer, error)
	GetCustomerByBillingID(ctx context.Context, billingCustomerID string) (*models.Customer, error)
	UpsertCustomer(ctx context.Context, in models.CustomerUpsert) (*models.Customer, error)
}

// Provider создаёт клиентов в платёжной системе.
type Provider interface {
	CreateCustomer(ctx context.Context, in paymentprovider.CreateCustomerInput) (string, error)
}

// Locker выдаёт короткоживущие advisory-блокировки.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (*cache.Lock, error)
	Unlock(ctx context.Context, l *cache.Lock) error
}

// Service реализует справочник клиентов.
type Service struct {
	repo     Repository
	provider Provider
	locker   Locker
	log      *slog.Logger

	lockTTL      time.Duration
	pollInterval time.Duration
	pollAttempts int
}

// NewService создает новый экземпляр Service. locker может быть nil,
// тогда от дублей защищает только ключ идемпотентности.
func NewService(repo Repository, provider Provider, locker Locker, log *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		provider:     provider,
		locker:       locker,
		log:          log,
		lockTTL:      10 * time.Second,
		pollInterval: 100 * time.Millisecond,
		pollAttempts: 50,
	}
}

// IdempotencyKey возвращает ключ идемпотентности создания клиента. Ключ зависит от всех
// параметров запроса: платёжная система отклоняет повтор ключа с другими параметрами.
func IdempotencyKey(userID, email, name string) string {
	data := userID + "\x00" + email + "\x00" + name
	return "customer-create-" + uuid.NewSHA1(idempotencyNamespace, []byte(data)).String()
}

// GetByUser возвращает клиента пользователя или nil.
func (s *Service) GetByUser(ctx context.Context, userID string) (*models.Customer, error) {
	const op = "customer.GetByUser"
	c, err := s.repo.GetCustomerByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// GetByBillingID возвращает клиента по ID в платёжной системе или nil.
func (s *Service) GetByBillingID(ctx context.Context, billingCustomerID string) (*models.Customer, error) {
	const op = "customer.GetByBillingID"
	c, err := s.repo.GetCustomerByBillingID(ctx, billingCustomerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// Upsert создаёт или обновляет запись клиента пользователя.
func (s *Service) Upsert(ctx context.Context, in models.CustomerUpsert) (*models.Customer, error) {
	const op = "customer.Upsert"
	c, err := s.repo.UpsertCustomer(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// GetOrCreate возвращает клиента пользователя, при необходимости создавая его в платёжной системе.
// Параллельные вызовы для одного пользователя сериализуются блокировкой в Redis,
// а повторное создание в платёжной системе гасится ключом идемпотентности.
func (s *Service) GetOrCreate(ctx context.Context, userID, email, name string) (*models.Customer, error) {
	const op = "customer.GetOrCreate"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))

	existing, err := s.repo.GetCustomerByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if existing != nil {
		return existing, nil
	}

	if s.locker != nil {
		lock, found, err := s.acquire(ctx, log, userID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if found != nil {
			return found, nil
		}
		if lock != nil {
			defer func() {
				if err := s.locker.Unlock(context.WithoutCancel(ctx), lock); err != nil {
					log.Warn("failed to release customer lock", sl.Err(err))
				}
			}()
		}
	}

	billingID, err := s.provider.CreateCustomer(ctx, paymentprovider.CreateCustomerInput{
		UserID:         userID,
		Email:          email,
		Name:           name,
		IdempotencyKey: IdempotencyKey(userID, email, name),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c, err := s.repo.UpsertCustomer(ctx, models.CustomerUpsert{
		UserID:            userID,
		BillingCustomerID: billingID,
		Email:             email,
		Name:              name,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("billing customer created", slog.String("billing_customer_id", billingID))
	return c, nil
}

// acquire захватывает блокировку пользователя. Пока её держит другой запрос, периодически
// перечитывает справочник: если клиент появился, он возвращается в found.
// Недоступность Redis и исчерпание попыток не считаются ошибкой: lock и found тогда nil.
func (s *Service) acquire(ctx context.Context, log *slog.Logger, userID string) (*cache.Lock, *models.Customer, error) {
	key := "lock:customer:" + userID
	for attempt := 0; attempt < s.pollAttempts; attempt++ {
		lock, err := s.locker.TryLock(ctx, key, s.lockTTL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			log.Warn("customer lock unavailable, relying on idempotency key", sl.Err(err))
			return nil, nil, nil
		}
		if lock != nil {
			found, err := s.repo.GetCustomerByUserID(ctx, userID)
			if err != nil || found != nil {
				if unlockErr := s.locker.Unlock(context.WithoutCancel(ctx), lock); unlockErr != nil {
					log.Warn("failed to release customer lock", sl.Err(unlockErr))
				}
				return nil, found, err
			}
			return lock, nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}

		found, err := s.repo.GetCustomerByUserID(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		if found != nil {
			return nil, found, nil
		}
	}
	log.Warn("customer lock still held, relying on idempotency key")
	return nil, nil, nil
}
