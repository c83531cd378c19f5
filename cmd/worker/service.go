package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kelechianya/complypoint-backend/internal/notifications"
	"github.com/kelechianya/complypoint-backend/pkg/config"
	"github.com/kelechianya/complypoint-backend/pkg/db"
	"github.com/kelechianya/complypoint-backend/pkg/logger"
	"github.com/kelechianya/complypoint-backend/pkg/metrics"
	"github.com/kelechianya/complypoint-backend/pkg/pubsub"
	"github.com/kelechianya/complypoint-backend/pkg/redis"
)

type ServiceParams struct {
	Config               *config.Config
	Logger               *logger.Logger
	DB                   *db.Client
	Redis                *redis.Client
	PubSub               *pubsub.Client
	NotificationConsumer *notifications.Consumer
}

type Service struct {
	cfg      *config.Config
	logg     *logger.Logger
	db       *db.Client
	redis    *redis.Client
	pubsub   *pubsub.Client
	consumer *notifications.Consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.NotificationConsumer == nil {
		return nil, errors.New("notification consumer is required")
	}

	return &Service{
		cfg:      params.Config,
		logg:     params.Logger,
		db:       params.DB,
		redis:    params.Redis,
		pubsub:   params.PubSub,
		consumer: params.NotificationConsumer,
	}, nil
}

// buildDispatcher assembles the fanout dispatcher with every delivery
// channel. Channels missing endpoint configuration stay wired and report
// themselves as not configured at delivery time.
func buildDispatcher(cfg *config.Config, logg *logger.Logger, repo notifications.Repository, dispatchMetrics *metrics.DispatchMetrics) (*notifications.Dispatcher, error) {
	inApp, err := notifications.NewInAppChannel(repo)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Notify.WebhookTimeout}
	channels := []notifications.Channel{
		inApp,
		notifications.NewPushChannel(cfg.Notify, httpClient),
		notifications.NewEmailChannel(cfg.Notify, httpClient),
		notifications.NewSMSChannel(cfg.Notify, httpClient),
		notifications.NewWebhookChannel(httpClient),
	}

	return notifications.NewDispatcher(channels, dispatchMetrics, logg, cfg.Notify.DispatchTimeout, cfg.Notify.MaxAttempts)
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
		return err
	}
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, ping func(context.Context) error) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := ping(checkCtx); err != nil {
		logg.Error(ctx, "dependency unavailable: "+name, err)
		return err
	}
	return nil
}

// Run blocks until the consumer stops or the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.consumer.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "consumer stopped unexpectedly", err)
		}
		return err
	}
}
