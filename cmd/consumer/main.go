package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/planify/analytics-service/internal/config"
	"github.com/planify/analytics-service/internal/consumer"
	"github.com/planify/analytics-service/internal/logger"
	"github.com/planify/analytics-service/internal/model"
	"github.com/planify/analytics-service/internal/repo"
	"github.com/planify/analytics-service/internal/service"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// 1. load config
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	// 2. init logger
	log, err := logger.NewLogger()
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	// 3. postgres
	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gdb.AutoMigrate(&model.EventMetrics{}, &model.UserActivity{}, &model.SystemMetrics{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	// 4. redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	// 5. repo, engine, dispatcher
	repository := repo.NewRepository(gdb, rdb, log)
	svc := service.NewAnalyticsService(repository, log)
	dispatcher := consumer.NewDispatcher(svc, cfg.Dispatcher, log)
	c := consumer.NewConsumer(cfg.Kafka, dispatcher, log)

	// 6. health + prometheus endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			sqlDB, err := gdb.DB()
			if err != nil || sqlDB.PingContext(r.Context()) != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		addr := fmt.Sprintf(":%d", cfg.Dispatcher.HealthCheckPort)
		log.Infof("health server listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Errorf("health server: %v", err)
		}
	}()

	// 7. run until SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	log.Infof("analytics consumer started, topics=%v", cfg.Kafka.Topics)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down consumer")
	cancel()
	<-done
}
