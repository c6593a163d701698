package rabbitmq

import "github.com/magabrotheeeer/saas-billing/internal/models"

// QueueConfig связывает очередь с ключом маршрутизации обмена уведомлений.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди уведомлений о платежах.
// Ключ маршрутизации совпадает с BillingNotification.Kind.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "billing.payment_succeeded", RoutingKey: models.NotificationPaymentSucceeded},
		{QueueName: "billing.payment_failed", RoutingKey: models.NotificationPaymentFailed},
	}
}
