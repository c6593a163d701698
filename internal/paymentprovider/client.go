// Package paymentprovider оборачивает клиент Stripe: создание клиентов, сессий оформления
// и портала, получение подписок, а также разбор событий webhook в типизированные варианты.
package paymentprovider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/magabrotheeeer/saas-billing/internal/models"
)

// MetadataUserID — ключ метаданных Stripe, в котором хранится идентификатор пользователя.
const MetadataUserID = "userId"

// Client — явно сконструированный клиент Stripe.
type Client struct {
	api *client.API
}

// New создаёт клиент. Без секретного ключа клиент создаётся, но все вызовы
// завершаются ошибкой models.ErrConfiguration.
func New(secretKey string) *Client {
	return NewWithBackends(secretKey, nil)
}

// NewWithBackends позволяет подменить транспорт Stripe (например, в тестах).
func NewWithBackends(secretKey string, backends *stripe.Backends) *Client {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return &Client{}
	}
	return &Client{api: client.New(secretKey, backends)}
}

// Configured сообщает, задан ли секретный ключ.
func (c *Client) Configured() bool {
	return c != nil && c.api != nil
}

// CreateCustomerInput содержит данные для создания клиента Stripe.
type CreateCustomerInput struct {
	UserID         string
	Email          string
	Name           string
	IdempotencyKey string
}

// CreateCustomer создаёт клиента Stripe и возвращает его ID.
func (c *Client) CreateCustomer(ctx context.Context, in CreateCustomerInput) (string, error) {
	const op = "paymentprovider.CreateCustomer"
	if !c.Configured() {
		return "", fmt.Errorf("%s: %w", op, models.ErrConfiguration)
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(in.Email),
	}
	if in.Name != "" {
		params.Name = stripe.String(in.Name)
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserID, in.UserID)
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, wrapStripeError(err))
	}
	if cus == nil || cus.ID == "" {
		return "", fmt.Errorf("%s: %w", op, models.ErrUpstream)
	}
	return cus.ID, nil
}

// GetCustomer получает полный объект клиента.
func (c *Client) GetCustomer(ctx context.Context, customerID string) (*CustomerData, error) {
	const op = "paymentprovider.GetCustomer"
	if !c.Configured() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrConfiguration)
	}

	params := &stripe.CustomerParams{}
	params.Context = ctx
	cus, err := c.api.Customers.Get(customerID, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, wrapStripeError(err))
	}
	return &CustomerData{
		ID:       cus.ID,
		Email:    cus.Email,
		Name:     cus.Name,
		Deleted:  cus.Deleted,
		Metadata: cus.Metadata,
	}, nil
}

// CheckoutInput содержит параметры сессии оформления подписки.
type CheckoutInput struct {
	CustomerID string
	PriceID    string
	UserID     string
	SuccessURL string
	CancelURL  string
}

// CreateCheckoutSession создаёт сессию оформления в режиме подписки и возвращает её URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (string, error) {
	const op = "paymentprovider.CreateCheckoutSession"
	if !c.Configured() {
		return "", fmt.Errorf("%s: %w", op, models.ErrConfiguration)
	}

	params := &stripe.CheckoutSessionParams{
		Customer:   stripe.String(in.CustomerID),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserID, in.UserID)

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, wrapStripeError(err))
	}
	if sess == nil || sess.URL == "" {
		return "", fmt.Errorf("%s: %w", op, models.ErrUpstream)
	}
	return sess.URL, nil
}

// CreatePortalSession создаёт сессию портала управления подпиской и возвращает её URL.
func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	const op = "paymentprovider.CreatePortalSession"
	if !c.Configured() {
		return "", fmt.Errorf("%s: %w", op, models.ErrConfiguration)
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, wrapStripeError(err))
	}
	if sess == nil || sess.URL == "" {
		return "", fmt.Errorf("%s: %w", op, models.ErrUpstream)
	}
	return sess.URL, nil
}

// GetSubscription получает подписку из Stripe.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionData, error) {
	const op = "paymentprovider.GetSubscription"
	if !c.Configured() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrConfiguration)
	}

	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := c.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, wrapStripeError(err))
	}
	return subscriptionFromStripe(sub), nil
}

func subscriptionFromStripe(sub *stripe.Subscription) *SubscriptionData {
	out := &SubscriptionData{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		Metadata:          sub.Metadata,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0] != nil {
		item := sub.Items.Data[0]
		si := &SubscriptionItem{CurrentPeriodEnd: item.CurrentPeriodEnd}
		if item.Price != nil {
			si.PriceID = item.Price.ID
			if item.Price.Product != nil {
				si.ProductID = item.Price.Product.ID
			}
		}
		out.Item = si
	}
	return out
}

// Ответы 4xx, кроме 429, не исправятся повтором; остальное считаем сбоем платёжной системы.
func wrapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 &&
		stripeErr.HTTPStatusCode != 429 {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrUpstream, err)
}
