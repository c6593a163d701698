// Package models содержит доменные структуры биллинга: клиентов платёжной системы,
// подписки, проверенную личность вызывающего и уведомления о платежах.
package models

import "time"

// StatusActive — статус подписки, который открывает доступ к платным возможностям.
// Остальные значения статуса приходят из платёжной системы и хранятся как есть.
const StatusActive = "active"

// Subscription представляет последнее известное состояние подписки пользователя.
// Запись однозначно определяется полем BillingSubscriptionID.
type Subscription struct {
	ID                    int64     `json:"id"`
	UserID                string    `json:"user_id"`                 // Идентификатор пользователя у провайдера личности
	BillingSubscriptionID string    `json:"billing_subscription_id"` // ID подписки в платёжной системе (sub_xxx)
	PriceID               string    `json:"price_id"`                // ID цены (price_xxx)
	ProductID             string    `json:"product_id"`              // ID продукта (prod_xxx)
	Status                string    `json:"status"`                  // active, past_due, canceled, ...
	CurrentPeriodEnd      int64     `json:"current_period_end"`      // Конец текущего периода, unix-секунды
	CancelAtPeriodEnd     bool      `json:"cancel_at_period_end"`    // Отменится ли подписка в конце периода
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// IsActive сообщает, находится ли подписка в статусе active.
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == StatusActive
}

// SubscriptionUpsert содержит поля, которыми webhook обновляет подписку.
type SubscriptionUpsert struct {
	UserID                string
	BillingSubscriptionID string
	PriceID               string
	ProductID             string
	Status                string
	CurrentPeriodEnd      int64
	CancelAtPeriodEnd     bool
}
