// Package checkout выдаёт ссылки на оформление подписки и на портал управления ею.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/saas-billing/internal/config"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/models"
	"github.com/magabrotheeeer/saas-billing/internal/paymentprovider"
)

// CustomerDirectory — справочник клиентов.
type CustomerDirectory interface {
	GetByUser(ctx context.Context, userID string) (*models.Customer, error)
	GetOrCreate(ctx context.Context, userID, email, name string) (*models.Customer, error)
}

// Provider создаёт сессии в платёжной системе.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, in paymentprovider.CheckoutInput) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// Service выдаёт ссылки на оформление и портал.
type Service struct {
	customers CustomerDirectory
	provider  Provider
	plans     map[string]string
	siteURL   string
	log       *slog.Logger
}

// NewService создает новый экземпляр Service. plans — таблица "ключ тарифа -> ID цены".
func NewService(customers CustomerDirectory, provider Provider, plans map[string]string, siteURL string, log *slog.Logger) *Service {
	return &Service{
		customers: customers,
		provider:  provider,
		plans:     plans,
		siteURL:   strings.TrimRight(siteURL, "/"),
		log:       log,
	}
}

// PriceID возвращает ID цены для тарифа или ErrConfiguration, если тариф неизвестен
// или цена не настроена.
func (s *Service) PriceID(planKey string) (string, error) {
	priceID, ok := s.plans[planKey]
	if !ok {
		return "", fmt.Errorf("unknown plan %q: %w", planKey, models.ErrConfiguration)
	}
	if strings.TrimSpace(priceID) == "" || priceID == config.PlaceholderPriceID {
		return "", fmt.Errorf("price id for %s is not set: %w", planKey, models.ErrConfiguration)
	}
	return priceID, nil
}

// CreateCheckoutSession создаёт сессию оформления подписки на тариф и возвращает её URL.
func (s *Service) CreateCheckoutSession(ctx context.Context, identity *models.Identity, planKey string) (string, error) {
	const op = "checkout.CreateCheckoutSession"
	if identity == nil {
		return "", fmt.Errorf("%s: %w", op, models.ErrUnauthenticated)
	}

	priceID, err := s.PriceID(planKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	customer, err := s.customers.GetOrCreate(ctx, identity.Subject, identity.Email, identity.Name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	url, err := s.provider.CreateCheckoutSession(ctx, paymentprovider.CheckoutInput{
		CustomerID: customer.BillingCustomerID,
		PriceID:    priceID,
		UserID:     identity.Subject,
		SuccessURL: s.siteURL + "/dashboard?success=true",
		CancelURL:  s.siteURL + "/pricing?canceled=true",
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if url == "" {
		return "", fmt.Errorf("%s: failed to create checkout session: %w", op, models.ErrUpstream)
	}

	s.log.Info("checkout session created",
		sl.Op(op),
		slog.String("user_id", identity.Subject),
		slog.String("plan", planKey),
	)
	return url, nil
}

// CreatePortalSession создаёт сессию портала управления подпиской и возвращает её URL.
func (s *Service) CreatePortalSession(ctx context.Context, identity *models.Identity) (string, error) {
	const op = "checkout.CreatePortalSession"
	if identity == nil {
		return "", fmt.Errorf("%s: %w", op, models.ErrUnauthenticated)
	}

	customer, err := s.customers.GetByUser(ctx, identity.Subject)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if customer == nil {
		return "", fmt.Errorf("%s: no billing customer for user: %w", op, models.ErrNotFound)
	}

	url, err := s.provider.CreatePortalSession(ctx, customer.BillingCustomerID, s.siteURL+"/dashboard")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if url == "" {
		return "", fmt.Errorf("%s: failed to create portal session: %w", op, models.ErrUpstream)
	}
	return url, nil
}
