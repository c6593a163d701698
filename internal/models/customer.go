package models

import "time"

// Customer связывает пользователя провайдера личности с клиентом платёжной системы.
// На одного пользователя приходится не больше одной записи, как и на один BillingCustomerID.
type Customer struct {
	ID                int64     `json:"id"`
	UserID            string    `json:"user_id"`
	BillingCustomerID string    `json:"billing_customer_id"` // ID клиента в платёжной системе (cus_xxx)
	Email             string    `json:"email"`
	Name              string    `json:"name,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CustomerUpsert содержит данные для создания или обновления клиента.
type CustomerUpsert struct {
	UserID            string
	BillingCustomerID string
	Email             string
	Name              string
}
