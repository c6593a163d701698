// Package webhook применяет проверенные события платёжной системы к справочнику клиентов
// и журналу подписок.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/metrics"
	"github.com/magabrotheeeer/saas-billing/internal/models"
	"github.com/magabrotheeeer/saas-billing/internal/paymentprovider"
)

// CustomerDirectory описывает справочник клиентов.
type CustomerDirectory interface {
	GetByBillingID(ctx context.Context, billingCustomerID string) (*models.Customer, error)
	Upsert(ctx context.Context, in models.CustomerUpsert) (*models.Customer, error)
}

// Ledger описывает журнал подписок.
type Ledger interface {
	Upsert(ctx context.Context, in models.SubscriptionUpsert) (*models.Subscription, error)
	Remove(ctx context.Context, billingSubscriptionID string) error
}

// Provider читает объекты платёжной системы.
type Provider interface {
	GetCustomer(ctx context.Context, customerID string) (*paymentprovider.CustomerData, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*paymentprovider.SubscriptionData, error)
}

// Notifier публикует уведомления об оплате счетов.
type Notifier interface {
	PublishNotification(ctx context.Context, n models.BillingNotification) error
}

// Service обрабатывает события webhook. Каждое событие обрабатывается независимо
// и идемпотентно: повтор и перестановка доставок не ломают состояние.
type Service struct {
	customers CustomerDirectory
	ledger    Ledger
	provider  Provider
	notifier  Notifier
	log       *slog.Logger
}

// NewService создает новый экземпляр Service. notifier может быть nil.
func NewService(customers CustomerDirectory, ledger Ledger, provider Provider, notifier Notifier, log *slog.Logger) *Service {
	return &Service{
		customers: customers,
		ledger:    ledger,
		provider:  provider,
		notifier:  notifier,
		log:       log,
	}
}

// HandleEvent применяет событие. models.ErrMalformedEvent означает, что событие
// неприменимо и повторять его бессмысленно.
func (s *Service) HandleEvent(ctx context.Context, event paymentprovider.Event) error {
	const op = "webhook.HandleEvent"
	meta := event.Meta()
	log := s.log.With(sl.Op(op), slog.String("event_id", meta.ID), slog.String("type", meta.Type))

	var err error
	switch ev := event.(type) {
	case paymentprovider.CheckoutCompletedEvent:
		err = s.handleCheckoutCompleted(ctx, log, ev)
	case paymentprovider.SubscriptionChangedEvent:
		err = s.handleSubscriptionChanged(ctx, log, ev.Subscription)
	case paymentprovider.SubscriptionDeletedEvent:
		err = s.ledger.Remove(ctx, ev.SubscriptionID)
	case paymentprovider.InvoicePaymentEvent:
		s.handleInvoicePayment(ctx, log, ev)
	default:
		log.Info("unhandled event type")
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SyncSubscription перечитывает подписку из платёжной системы и применяет её к журналу.
func (s *Service) SyncSubscription(ctx context.Context, billingSubscriptionID string) error {
	const op = "webhook.SyncSubscription"
	log := s.log.With(sl.Op(op), slog.String("billing_subscription_id", billingSubscriptionID))

	sub, err := s.provider.GetSubscription(ctx, billingSubscriptionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.handleSubscriptionChanged(ctx, log, *sub); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, log *slog.Logger, ev paymentprovider.CheckoutCompletedEvent) error {
	log = log.With(slog.String("user_id", ev.UserID), slog.String("billing_customer_id", ev.CustomerID))

	cus, err := s.provider.GetCustomer(ctx, ev.CustomerID)
	if err != nil {
		return err
	}
	if cus.Deleted {
		log.Warn("customer is deleted, skipping checkout session")
		return nil
	}

	_, err = s.customers.Upsert(ctx, models.CustomerUpsert{
		UserID:            ev.UserID,
		BillingCustomerID: cus.ID,
		Email:             cus.Email,
		Name:              cus.Name,
	})
	if errors.Is(err, models.ErrConflict) {
		log.Warn("billing customer is linked to another user", sl.Err(err))
		return fmt.Errorf("%w: %w", models.ErrMalformedEvent, err)
	}
	if err != nil {
		return err
	}

	if ev.SubscriptionID == "" {
		log.Info("checkout session completed without subscription")
		return nil
	}
	sub, err := s.provider.GetSubscription(ctx, ev.SubscriptionID)
	if err != nil {
		return err
	}
	return s.handleSubscriptionChanged(ctx, log, *sub)
}

func (s *Service) handleSubscriptionChanged(ctx context.Context, log *slog.Logger, sub paymentprovider.SubscriptionData) error {
	log = log.With(slog.String("billing_subscription_id", sub.ID))

	cus, err := s.customers.GetByBillingID(ctx, sub.CustomerID)
	if err != nil {
		return err
	}
	if cus == nil {
		log.Warn("no customer for subscription, skipping", slog.String("billing_customer_id", sub.CustomerID))
		return nil
	}
	if sub.Item == nil {
		return fmt.Errorf("subscription %s has no items: %w", sub.ID, models.ErrMalformedEvent)
	}

	_, err = s.ledger.Upsert(ctx, models.SubscriptionUpsert{
		UserID:                cus.UserID,
		BillingSubscriptionID: sub.ID,
		PriceID:               sub.Item.PriceID,
		ProductID:             sub.Item.ProductID,
		Status:                sub.Status,
		CurrentPeriodEnd:      sub.Item.CurrentPeriodEnd,
		CancelAtPeriodEnd:     sub.CancelAtPeriodEnd,
	})
	return err
}

func (s *Service) handleInvoicePayment(ctx context.Context, log *slog.Logger, ev paymentprovider.InvoicePaymentEvent) {
	log = log.With(slog.String("invoice_id", ev.InvoiceID), slog.String("billing_customer_id", ev.CustomerID))
	if ev.Succeeded {
		log.Info("invoice payment succeeded", slog.Int64("amount", ev.AmountCents), slog.String("currency", ev.Currency))
	} else {
		log.Warn("invoice payment failed", slog.Int64("amount", ev.AmountCents), slog.String("currency", ev.Currency))
	}
	if s.notifier == nil {
		return
	}

	n := models.BillingNotification{
		Kind:             models.NotificationPaymentFailed,
		EventID:          ev.ID,
		InvoiceID:        ev.InvoiceID,
		BillingCustomer:  ev.CustomerID,
		Email:            ev.CustomerEmail,
		AmountCents:      ev.AmountCents,
		Currency:         ev.Currency,
		HostedInvoiceURL: ev.HostedInvoiceURL,
	}
	if ev.Succeeded {
		n.Kind = models.NotificationPaymentSucceeded
	}
	if ev.CustomerID != "" {
		cus, err := s.customers.GetByBillingID(ctx, ev.CustomerID)
		if err != nil {
			log.Warn("failed to look up invoice customer", sl.Err(err))
		}
		if cus != nil {
			n.UserID = cus.UserID
			if n.Email == "" {
				n.Email = cus.Email
			}
		}
	}
	if n.Email == "" {
		log.Info("invoice has no recipient, notification skipped")
		return
	}

	err := s.notifier.PublishNotification(ctx, n)
	metrics.NotificationsTotal.WithLabelValues("published", metrics.Outcome(err)).Inc()
	if err != nil {
		log.Error("failed to publish invoice notification", sl.Err(err))
	}
}
