package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/familylists/realtime/pkg/broadcaster"
	"github.com/familylists/realtime/pkg/config"
	"github.com/familylists/realtime/pkg/health"
	"github.com/familylists/realtime/pkg/notify"
	"github.com/familylists/realtime/pkg/observability/logger"
	"github.com/familylists/realtime/pkg/observability/metrics"
	"github.com/familylists/realtime/pkg/push"
	"github.com/familylists/realtime/pkg/realtime/sse"
	"github.com/familylists/realtime/pkg/server"
)

// runServe constructs the service singletons, starts both HTTP servers,
// and blocks until shutdown. On shutdown it drains in-flight requests,
// flushes pending notification batches, then disconnects streams.
func runServe(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	bc := broadcaster.New(broadcaster.Config{
		MailboxSize:    cfg.SSE.MailboxSize,
		MaxSubscribers: cfg.SSE.MaxSubscribers,
	}, log)

	healthRegistry := health.NewRegistry()
	healthRegistry.Register(health.NewLivenessChecker("process"))
	healthRegistry.Register(health.NewBroadcasterChecker("broadcaster", bc, cfg.SSE.MaxSubscribers))

	var prefs notify.PreferenceStore
	switch cfg.Preferences.Store {
	case config.PreferenceStoreRedis:
		store, err := notify.NewRedisPreferenceStore(notify.RedisPreferenceStoreConfig{
			URL:              cfg.Preferences.RedisURL,
			Prefix:           cfg.Preferences.RedisPrefix,
			OperationTimeout: cfg.Preferences.OperationTimeout,
		})
		if err != nil {
			return fmt.Errorf("create preference store: %w", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				log.Error("failed to close preference store", "error", closeErr)
			}
		}()
		healthRegistry.Register(health.NewPingChecker("preference_store", store, cfg.Preferences.OperationTimeout))
		prefs = store
	default:
		log.Warn("using in-memory preference store, all users get default preferences")
		prefs = notify.NewInMemoryPreferenceStore()
	}

	var gateway notify.DeliveryGateway
	if cfg.Push.Enabled {
		webhookGateway, err := push.NewWebhookGateway(push.WebhookGatewayConfig{
			URL:              cfg.Push.RelayURL,
			AuthToken:        cfg.Push.AuthToken,
			OperationTimeout: cfg.Push.OperationTimeout,
		}, log)
		if err != nil {
			return fmt.Errorf("create push gateway: %w", err)
		}
		gateway = webhookGateway
	} else {
		gateway = push.NewNopGateway(log)
	}

	batcher, err := notify.NewBatcher(notify.Config{
		InitialDelay: cfg.Notify.InitialDelay,
		ExtendDelay:  cfg.Notify.ExtendDelay,
		MaxDelay:     cfg.Notify.MaxDelay,
		MaxEvents:    cfg.Notify.MaxEvents,
	}, log, prefs, gateway)
	if err != nil {
		return fmt.Errorf("create notification batcher: %w", err)
	}

	stream, err := sse.NewHandler(sse.HandlerConfig{
		Broadcaster:       bc,
		Logger:            log,
		HeartbeatInterval: cfg.SSE.HeartbeatInterval,
	})
	if err != nil {
		return fmt.Errorf("create stream handler: %w", err)
	}

	publicSrv, err := server.NewPublicServer(cfg, server.PublicDeps{
		Logger:      log,
		Broadcaster: bc,
		Batcher:     batcher,
		Stream:      stream,
	})
	if err != nil {
		return fmt.Errorf("create public server: %w", err)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	srvCtx, cancel := context.WithCancel(runCtx)
	defer cancel()

	errChan := make(chan error, 2)
	running := 1
	go func() { errChan <- publicSrv.Start(srvCtx) }()

	if cfg.Management.Enabled {
		mgmtSrv, mgmtErr := server.NewManagementServer(cfg, log, healthRegistry, metrics.NewRegistry())
		if mgmtErr != nil {
			cancel()
			<-errChan
			return fmt.Errorf("create management server: %w", mgmtErr)
		}
		running++
		go func() { errChan <- mgmtSrv.Start(srvCtx) }()
	}

	log.Info("service started",
		"http_port", cfg.HTTP.Port,
		"management_enabled", cfg.Management.Enabled,
		"preference_store", cfg.Preferences.Store,
		"push_enabled", cfg.Push.Enabled,
	)

	var firstErr error
	for i := 0; i < running; i++ {
		if srvErr := <-errChan; srvErr != nil {
			if firstErr == nil {
				firstErr = srvErr
			}
			// One server failing brings the other down too.
			cancel()
		}
	}

	// Servers are stopped; deliver what was already batched, then cut
	// the remaining streams.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 30*time.Second)
	batcher.Close(flushCtx)
	flushCancel()
	bc.Close()

	log.Info("service stopped")
	return firstErr
}
