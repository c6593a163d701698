package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/magabrotheeeer/saas-billing/internal/models"
)

const customerColumns = `id, user_id, billing_customer_id, email, COALESCE(name, ''), created_at, updated_at`

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.UserID, &c.BillingCustomerID, &c.Email, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCustomerByUserID возвращает клиента пользователя. nil, nil — клиента нет.
func (s *Storage) GetCustomerByUserID(ctx context.Context, userID string) (*models.Customer, error) {
	const op = "storage.GetCustomerByUserID"
	query := `SELECT ` + customerColumns + ` FROM customers WHERE user_id = $1`
	c, err := scanCustomer(s.DB.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// GetCustomerByBillingID возвращает клиента по идентификатору в платёжной системе.
func (s *Storage) GetCustomerByBillingID(ctx context.Context, billingCustomerID string) (*models.Customer, error) {
	const op = "storage.GetCustomerByBillingID"
	query := `SELECT ` + customerColumns + ` FROM customers WHERE billing_customer_id = $1`
	c, err := scanCustomer(s.DB.QueryRow(ctx, query, billingCustomerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// UpsertCustomer создаёт клиента или обновляет существующую запись пользователя.
// Пустое имя не затирает сохранённое. Если billing_customer_id уже закреплён
// за другим пользователем, возвращается models.ErrConflict.
func (s *Storage) UpsertCustomer(ctx context.Context, in models.CustomerUpsert) (*models.Customer, error) {
	const op = "storage.UpsertCustomer"
	query := `INSERT INTO customers (user_id, billing_customer_id, email, name)
			  VALUES ($1, $2, $3, NULLIF($4, ''))
			  ON CONFLICT (user_id) DO UPDATE SET
			      billing_customer_id = EXCLUDED.billing_customer_id,
			      email = EXCLUDED.email,
			      name = COALESCE(EXCLUDED.name, customers.name),
			      updated_at = NOW()
			  RETURNING ` + customerColumns
	c, err := scanCustomer(s.DB.QueryRow(ctx, query, in.UserID, in.BillingCustomerID, in.Email, in.Name))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique violation
			return nil, fmt.Errorf("%s: billing customer %s: %w", op, in.BillingCustomerID, models.ErrConflict)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}
