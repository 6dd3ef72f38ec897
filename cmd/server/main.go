package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"verity/internal/authority"
	"verity/internal/jwttoken"
	"verity/internal/otp"
	"verity/internal/platform/config"
	"verity/internal/platform/database"
	"verity/internal/platform/httpserver"
	"verity/internal/platform/kafka/producer"
	"verity/internal/platform/logger"
	"verity/internal/platform/metrics"
	platformredis "verity/internal/platform/redis"
	httptransport "verity/internal/transport/http"
	"verity/internal/verification"
	verificationpg "verity/internal/verification/store/postgres"
	audit "verity/pkg/platform/audit"
	auditmem "verity/pkg/platform/audit/store/memory"
	auditpg "verity/pkg/platform/audit/store/postgres"
	"verity/pkg/platform/audit/relay"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing verity",
		"addr", cfg.Server.Addr,
		"authority_url", cfg.Authority.BaseURL,
		"database_configured", cfg.Database.URL != "",
		"redis_configured", cfg.Redis.URL != "",
		"kafka_configured", len(cfg.Kafka.Brokers) > 0,
	)

	pool, err := database.New(cfg.Database)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()

	// Audit pipeline: publisher -> bounded inbox -> worker -> store. With a
	// database the store is the transactional outbox and the relay ships it
	// to Kafka.
	var auditStore audit.Store
	var outbox *auditpg.Store
	if pool != nil {
		outbox = auditpg.New(pool.DB())
		auditStore = outbox
	} else {
		auditStore = auditmem.New()
	}
	publisher := audit.NewPublisher(cfg.Audit.BufferSize, log, m)
	worker := audit.NewWorker(auditStore, publisher.Inbox(), log, m)

	// Challenge storage: Redis when configured, otherwise challenges live
	// inside the request record in memory.
	var challengeStore otp.ChallengeStore
	if redisClient != nil {
		challengeStore = otp.NewRedisStore(redisClient.Client)
	}

	var requestStore verification.Store
	if pool != nil {
		requestStore = verificationpg.New(pool.DB(), challengeStore)
	} else {
		requestStore = verification.NewInMemoryStore()
	}

	authorityClient := authority.NewHTTPClient(
		cfg.Authority.BaseURL,
		cfg.Authority.Timeout,
		authority.RetryPolicy{
			MaxAttempts: cfg.Authority.MaxAttempts,
			BaseDelay:   100 * time.Millisecond,
			MaxDelay:    2 * time.Second,
		},
		log,
	)

	manager := otp.NewManager(
		otp.WithTTL(cfg.Otp.TTL),
		otp.WithMaxAttempts(cfg.Otp.MaxAttempts),
	)

	service := verification.NewService(requestStore, authorityClient, manager, publisher, log,
		verification.WithMetrics(m),
		verification.WithMaxResends(cfg.Otp.MaxResends),
	)
	sweeper := verification.NewSweeper(service, cfg.Retention.Window, cfg.Retention.Interval, log)

	routerCfg := httptransport.RouterConfig{
		Logger: log,
		Health: map[string]httptransport.HealthChecker{},
	}
	if cfg.Server.AuthRequired {
		routerCfg.Validator = jwttoken.NewService(cfg.Server.JWTSigningKey, time.Hour)
	}
	if pool != nil {
		routerCfg.Health["database"] = pool
	}
	if redisClient != nil {
		routerCfg.Health["redis"] = redisClient
	}

	handler := httptransport.NewHandler(service, auditStore, log)
	srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(handler, routerCfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := worker.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := sweeper.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Outbox relay: only meaningful with both the database outbox and Kafka.
	if outbox != nil && len(cfg.Kafka.Brokers) > 0 {
		prod, err := producer.New(producer.Config{
			Brokers:         strings.Join(cfg.Kafka.Brokers, ","),
			Acks:            "all",
			DeliveryTimeout: 10 * time.Second,
		}, log)
		if err != nil {
			log.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer prod.Close()

		rel := relay.New(outbox, prod, cfg.Kafka.AuditTopic, cfg.Kafka.RelayInterval, log)
		if err := rel.EnsureTopic(ctx, 3, 1); err != nil {
			log.Warn("audit topic setup failed", "error", err)
		}
		g.Go(func() error {
			err := rel.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
