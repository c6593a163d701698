package paymentprovider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"

	"github.com/magabrotheeeer/saas-billing/internal/models"
)

// Типы событий Stripe, которые обрабатывает биллинг.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventSubscriptionCreated      = "customer.subscription.created"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded  = "invoice.payment_succeeded"
	EventInvoicePaymentFailed     = "invoice.payment_failed"
)

// Event — проверенное событие webhook одного из типов ниже.
type Event interface {
	Meta() EventMeta
}

// EventMeta содержит общие поля всех событий.
type EventMeta struct {
	ID   string
	Type string
}

// Meta возвращает общие поля события.
func (m EventMeta) Meta() EventMeta { return m }

// CheckoutCompletedEvent приходит, когда пользователь завершил оформление подписки.
type CheckoutCompletedEvent struct {
	EventMeta
	SessionID      string
	UserID         string
	CustomerID     string
	SubscriptionID string // пусто, если сессия без подписки
}

// SubscriptionChangedEvent приходит при создании или изменении подписки.
type SubscriptionChangedEvent struct {
	EventMeta
	Subscription SubscriptionData
}

// SubscriptionDeletedEvent приходит при удалении подписки.
type SubscriptionDeletedEvent struct {
	EventMeta
	SubscriptionID string
}

// InvoicePaymentEvent сообщает об успешной или неуспешной оплате счёта.
type InvoicePaymentEvent struct {
	EventMeta
	Succeeded        bool
	InvoiceID        string
	CustomerID       string
	CustomerEmail    string
	AmountCents      int64
	Currency         string
	HostedInvoiceURL string
}

// UnhandledEvent представляет событие, которое биллинг не обрабатывает.
type UnhandledEvent struct {
	EventMeta
}

// DecodeEvent превращает проверенное событие Stripe в типизированный вариант.
// Отсутствие обязательных полей даёт models.ErrMalformedEvent.
func DecodeEvent(event stripe.Event) (Event, error) {
	const op = "paymentprovider.DecodeEvent"
	meta := EventMeta{ID: event.ID, Type: string(event.Type)}

	var raw json.RawMessage
	if event.Data != nil {
		raw = event.Data.Raw
	}
	malformed := func(format string, args ...any) (Event, error) {
		return nil, fmt.Errorf("%s: %s: %w", op, fmt.Sprintf(format, args...), models.ErrMalformedEvent)
	}

	switch meta.Type {
	case EventCheckoutSessionCompleted:
		var sess rawCheckoutSession
		if err := json.Unmarshal(raw, &sess); err != nil {
			return malformed("decode checkout session: %v", err)
		}
		userID := strings.TrimSpace(sess.Metadata[MetadataUserID])
		if userID == "" {
			return malformed("checkout session %s has no %s metadata", sess.ID, MetadataUserID)
		}
		if sess.Customer == "" {
			return malformed("checkout session %s has no customer", sess.ID)
		}
		return CheckoutCompletedEvent{
			EventMeta:      meta,
			SessionID:      sess.ID,
			UserID:         userID,
			CustomerID:     string(sess.Customer),
			SubscriptionID: string(sess.Subscription),
		}, nil

	case EventSubscriptionCreated, EventSubscriptionUpdated:
		var sub rawSubscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return malformed("decode subscription: %v", err)
		}
		if sub.ID == "" || sub.Customer == "" {
			return malformed("subscription without id or customer")
		}
		return SubscriptionChangedEvent{EventMeta: meta, Subscription: *sub.data()}, nil

	case EventSubscriptionDeleted:
		var sub rawSubscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return malformed("decode subscription: %v", err)
		}
		if sub.ID == "" {
			return malformed("subscription without id")
		}
		return SubscriptionDeletedEvent{EventMeta: meta, SubscriptionID: sub.ID}, nil

	case EventInvoicePaymentSucceeded, EventInvoicePaymentFailed:
		var inv rawInvoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return malformed("decode invoice: %v", err)
		}
		succeeded := meta.Type == EventInvoicePaymentSucceeded
		amount := inv.AmountDue
		if succeeded {
			amount = inv.AmountPaid
		}
		return InvoicePaymentEvent{
			EventMeta:        meta,
			Succeeded:        succeeded,
			InvoiceID:        inv.ID,
			CustomerID:       string(inv.Customer),
			CustomerEmail:    inv.CustomerEmail,
			AmountCents:      amount,
			Currency:         inv.Currency,
			HostedInvoiceURL: inv.HostedInvoiceURL,
		}, nil

	default:
		return UnhandledEvent{EventMeta: meta}, nil
	}
}
