package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/medhelper/labcart/internal/attachment"
	"github.com/medhelper/labcart/internal/cache"
	"github.com/medhelper/labcart/internal/cart"
	"github.com/medhelper/labcart/internal/catalog"
	"github.com/medhelper/labcart/internal/checkout"
	"github.com/medhelper/labcart/internal/config"
	"github.com/medhelper/labcart/internal/ledger"
	"github.com/medhelper/labcart/internal/logger"
	"github.com/medhelper/labcart/internal/notification"
	"github.com/medhelper/labcart/internal/payment"
	"github.com/medhelper/labcart/internal/reminder"
	"github.com/medhelper/labcart/internal/repository"
)

// app holds the wired services and everything that must be closed on exit.
type app struct {
	cfg *config.Config
	log *slog.Logger
	loc *time.Location

	repo    *repository.Repository
	catalog *catalog.Repository
	redis   *redis.Client

	notifier *notification.Service
	carts    *cart.Service
	checkout *checkout.Service
	ledger   *ledger.Service

	closers []func() error
}

func loadConfig(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)
	return cfg, log, nil
}

// newApp connects to every backing store. Callers must call close.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	loc, err := time.LoadLocation(cfg.BookingTimezone)
	if err != nil {
		return nil, fmt.Errorf("booking timezone: %w", err)
	}
	a.loc = loc

	a.repo, err = repository.NewRepository(cfg.DB.DSN())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.repo.Close)

	a.catalog, err = catalog.NewRepository(cfg.Catalog.DBPath)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.catalog.Close)

	a.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, a.redis.Close)
	if err := a.redis.Ping(ctx).Err(); err != nil {
		// the cart falls back to Postgres on every cache error
		log.Warn("redis unavailable, cart cache degraded", "addr", cfg.Redis.Addr, "error", err)
	}

	transport, err := newTransport(cfg.Notification, log)
	if err != nil {
		return nil, err
	}
	if c, isCloser := transport.(interface{ Close() error }); isCloser {
		a.closers = append(a.closers, c.Close)
	}

	a.notifier = notification.NewService(a.repo, transport, notification.Config{
		DeliveryTimeout: cfg.Notification.DeliveryTimeout,
		Location:        loc,
	}, log.With("component", "notification"))

	a.carts = cart.NewService(a.repo, a.catalog, cache.NewRedisCache(a.redis, 0), log.With("component", "cart"))

	gate := payment.NewGate(
		payment.NewBreakerAuthorizer(payment.ApproveAll{}, payment.DefaultBreakerSettings()),
		a.repo,
		payment.Config{Currency: cfg.Payment.Currency, Timeout: cfg.Payment.Timeout},
		log.With("component", "payment"))

	a.checkout = checkout.NewService(checkout.Deps{
		Carts:    a.repo,
		Tx:       checkout.PostgresTransactor(a.repo),
		Catalog:  a.catalog,
		Gate:     gate,
		Notifier: a.notifier,
		Cache:    a.carts,
		Location: loc,
		Log:      log.With("component", "checkout"),
	})

	var files ledger.FileStore
	if cfg.S3Bucket != "" {
		s3, err := attachment.NewS3StoreFromEnv(ctx, cfg.S3Region, cfg.S3Bucket)
		if err != nil {
			return nil, err
		}
		files = s3
	}
	a.ledger = ledger.NewService(a.repo, a.notifier, files, log.With("component", "ledger"))

	ok = true
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Error("close failed", "error", err)
		}
	}
}

func (a *app) poller() *reminder.Poller {
	return reminder.NewPoller(a.repo, a.notifier, a.cfg.ReminderInterval, a.log.With("component", "reminder"))
}

func newTransport(cfg config.Notification, log *slog.Logger) (notification.Transport, error) {
	switch cfg.Transport {
	case "", "log":
		return notification.NewLogTransport(log.With("component", "mail")), nil
	case "kafka":
		return notification.NewKafkaTransport(cfg.KafkaTopic, cfg.KafkaBrokers...), nil
	case "amqp":
		t, err := notification.NewAMQPTransport(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "mailgun":
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" {
			return nil, errors.New("mailgun transport needs MAILGUN_DOMAIN and MAILGUN_API_KEY")
		}
		return notification.NewMailgunTransport(notification.MailgunConfig{
			BaseURL: cfg.MailgunBaseURL,
			Domain:  cfg.MailgunDomain,
			APIKey:  cfg.MailgunAPIKey,
			From:    cfg.MailgunFrom,
		}, &http.Client{Timeout: cfg.DeliveryTimeout}), nil
	default:
		return nil, fmt.Errorf("unknown notification transport %q", cfg.Transport)
	}
}

func migrateCommand(c *cli.Context) error {
	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}

	repo, err := repository.NewRepository(cfg.DB.DSN())
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.RunMigrations(cfg.DB.MigrationsPath); err != nil {
		return err
	}
	log.Info("postgres migrations applied", "path", cfg.DB.MigrationsPath)

	cat, err := catalog.NewRepository(cfg.Catalog.DBPath)
	if err != nil {
		return err
	}
	defer cat.Close()
	if err := cat.RunMigrations(cfg.Catalog.MigrationsPath); err != nil {
		return err
	}
	log.Info("catalog migrations applied", "path", cfg.Catalog.MigrationsPath)
	return nil
}

func remindCommand(c *cli.Context) error {
	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}
	a, err := newApp(c.Context, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.poller().Sweep(c.Context)
	if err != nil {
		return err
	}
	log.Info("reminder sweep finished", "result", res.String())
	return nil
}
