package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/config"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/events"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/funnel"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/metrics"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/reqclient"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/sessionlog"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/store"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/webhook"
)

// funnelEnv holds everything a command needs to run funnel operations.
type funnelEnv struct {
	Client  *reqclient.Client
	Store   store.Recorder
	Hooks   *webhook.Dispatcher
	Logs    *sessionlog.Logger
	Service *funnel.Service
}

// Close drains pending log writes and webhooks, then closes the store.
func (fe *funnelEnv) Close(ctx context.Context) {
	if fe.Logs != nil {
		if err := fe.Logs.Close(ctx); err != nil {
			zap.L().Warn("log drain incomplete", zap.Error(err))
		}
	}
	if fe.Store != nil {
		if err := fe.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// initFunnel builds the request client, record store, webhook dispatcher,
// session logger and funnel service from c. SQL stores are migrated on open.
// Callers should defer env.Close().
func initFunnel(ctx context.Context, c *config.Config) (*funnelEnv, error) {
	observer := events.Multi{events.NewZapObserver(zap.L()), metrics.Observer{}}

	client := reqclient.New(reqclient.Config{
		BaseURL:     c.Integration.BaseURL,
		Timeout:     c.Integration.Timeout(),
		MaxAttempts: c.Integration.MaxAttempts,
		BackoffBase: c.Integration.BackoffBase(),
		WebhookURLs: c.Webhooks,
	}, reqclient.WithObserver(observer))

	rec, err := store.Open(ctx, c.Store, client)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if m, ok := rec.(store.Migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			_ = rec.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
	}

	hooks := webhook.New(client, webhook.Config{
		RatePerSec: c.Webhook.RatePerSec,
		Burst:      c.Webhook.Burst,
		Source:     c.Webhook.Source,
	}, webhook.WithObserver(observer))

	logs := sessionlog.New(rec, hooks, sessionlog.WithObserver(observer))
	svc := funnel.New(client, logs,
		funnel.WithObserver(observer),
		funnel.WithSparkSplitTimeout(c.Integration.SparkSplitTimeout()),
	)

	zap.L().Info("funnel initialized",
		zap.String("base_url", c.Integration.BaseURL),
		zap.String("store", c.Store.Driver),
		zap.Int("webhooks", len(c.Webhooks)),
	)

	return &funnelEnv{
		Client:  client,
		Store:   rec,
		Hooks:   hooks,
		Logs:    logs,
		Service: svc,
	}, nil
}
