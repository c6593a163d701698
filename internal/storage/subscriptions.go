package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/magabrotheeeer/saas-billing/internal/models"
)

const subscriptionColumns = `id, user_id, billing_subscription_id, price_id, product_id, status,
	current_period_end, cancel_at_period_end, created_at, updated_at`

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	var s models.Subscription
	err := row.Scan(&s.ID, &s.UserID, &s.BillingSubscriptionID, &s.PriceID, &s.ProductID, &s.Status,
		&s.CurrentPeriodEnd, &s.CancelAtPeriodEnd, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSubscriptionByBillingID возвращает подписку по её идентификатору в платёжной системе.
func (s *Storage) GetSubscriptionByBillingID(ctx context.Context, billingSubscriptionID string) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByBillingID"
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE billing_subscription_id = $1`
	sub, err := scanSubscription(s.DB.QueryRow(ctx, query, billingSubscriptionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// ListSubscriptionsByUserID возвращает все подписки пользователя.
func (s *Storage) ListSubscriptionsByUserID(ctx context.Context, userID string) ([]models.Subscription, error) {
	const op = "storage.ListSubscriptionsByUserID"
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 ORDER BY id`
	rows, err := s.DB.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	res := []models.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// UpsertSubscription создаёт подписку или обновляет цену, продукт, статус, конец периода
// и флаг отмены существующей. Владелец фиксируется при вставке.
func (s *Storage) UpsertSubscription(ctx context.Context, in models.SubscriptionUpsert) (*models.Subscription, error) {
	const op = "storage.UpsertSubscription"
	query := `INSERT INTO subscriptions (user_id, billing_subscription_id, price_id, product_id,
			      status, current_period_end, cancel_at_period_end)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  ON CONFLICT (billing_subscription_id) DO UPDATE SET
			      price_id = EXCLUDED.price_id,
			      product_id = EXCLUDED.product_id,
			      status = EXCLUDED.status,
			      current_period_end = EXCLUDED.current_period_end,
			      cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			      updated_at = NOW()
			  RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(s.DB.QueryRow(ctx, query,
		in.UserID, in.BillingSubscriptionID, in.PriceID, in.ProductID,
		in.Status, in.CurrentPeriodEnd, in.CancelAtPeriodEnd))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// RemoveSubscription удаляет подписку и возвращает её владельца.
// Пустая строка без ошибки — подписки не было.
func (s *Storage) RemoveSubscription(ctx context.Context, billingSubscriptionID string) (string, error) {
	const op = "storage.RemoveSubscription"
	var userID string
	err := s.DB.QueryRow(ctx,
		`DELETE FROM subscriptions WHERE billing_subscription_id = $1 RETURNING user_id`,
		billingSubscriptionID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return userID, nil
}
