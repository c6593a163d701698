// Package sender собирает процесс рассылки уведомлений об оплате счетов.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/saas-billing/internal/config"
	"github.com/magabrotheeeer/saas-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/saas-billing/internal/services/sender"
)

// App потребляет очереди уведомлений.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	queues        []rabbitmq.QueueConfig
	senderService *senderservice.Service
	logger        *slog.Logger
}

// New подключается к RabbitMQ и настраивает SMTP транспорт.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	queues := rabbitmq.GetNotificationQueues()
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		queues:        queues,
		senderService: senderservice.NewService(transport, logger),
		logger:        logger,
	}, nil
}

// Run потребляет сообщения до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	for _, q := range a.queues {
		if err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, q.QueueName, a.senderService.SendBillingNotification); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			a.close()
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")
	a.close()
	return nil
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
