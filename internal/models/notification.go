package models

// Виды уведомлений о результатах оплаты счёта.
const (
	NotificationPaymentSucceeded = "payment_succeeded"
	NotificationPaymentFailed    = "payment_failed"
)

// BillingNotification публикуется в RabbitMQ при оплате или неудачной оплате счёта
// и потребляется сервисом рассылки.
type BillingNotification struct {
	Kind             string `json:"kind"`
	EventID          string `json:"event_id"`
	InvoiceID        string `json:"invoice_id"`
	BillingCustomer  string `json:"billing_customer_id"`
	UserID           string `json:"user_id,omitempty"`
	Email            string `json:"email"`
	AmountCents      int64  `json:"amount_cents"`
	Currency         string `json:"currency"`
	HostedInvoiceURL string `json:"hosted_invoice_url,omitempty"`
}
