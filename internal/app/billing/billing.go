package billing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/saas-billing/internal/cache"
	"github.com/magabrotheeeer/saas-billing/internal/config"
	"github.com/magabrotheeeer/saas-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/saas-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/migrations"
	"github.com/magabrotheeeer/saas-billing/internal/paymentprovider"
	checkoutservice "github.com/magabrotheeeer/saas-billing/internal/services/checkout"
	customerservice "github.com/magabrotheeeer/saas-billing/internal/services/customer"
	subscriptionservice "github.com/magabrotheeeer/saas-billing/internal/services/subscription"
	webhookservice "github.com/magabrotheeeer/saas-billing/internal/services/webhook"
	"github.com/magabrotheeeer/saas-billing/internal/storage"
)

// App — процесс HTTP API биллинга.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает хранилища, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Stripe.Validate(); err != nil {
		logger.Warn("billing is not fully configured, affected operations will fail", sl.Err(err))
	}

	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.RunPool(db.Pool, cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		db.Close()
		return nil, err
	}

	app := &App{
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}

	var notifier webhookservice.Notifier
	if cfg.RabbitMQURL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			app.close()
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			_ = conn.Close()
			app.close()
			return nil, err
		}
		app.conn, app.ch = conn, ch
		notifier = rabbitmq.NewPublisher(ch)
	} else {
		logger.Info("RABBITMQ_URL is empty, invoice notifications are disabled")
	}

	provider := paymentprovider.New(cfg.Stripe.SecretKey)
	ledger := subscriptionservice.NewService(db, cacheRedis, cfg.CacheTTL, logger)
	customers := customerservice.NewService(db, provider, cacheRedis, logger)
	sessions := checkoutservice.NewService(customers, provider, cfg.Stripe.Plans(), cfg.SiteURL, logger)
	ingestor := webhookservice.NewService(customers, ledger, provider, notifier, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Ledger:        ledger,
		Customers:     customers,
		Sessions:      sessions,
		Webhook:       ingestor,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Tokens:        jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.Issuer, 0),
		Limiter:       middlewarectx.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		Health:        db,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run обслуживает HTTP до отмены ctx, затем корректно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	a.db.Close()
}
