package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"gearshare/internal/booking"
	"gearshare/internal/evidence"
	"gearshare/internal/httpapi"
	"gearshare/internal/payment"
	"gearshare/internal/scheduler"
	"gearshare/pkg/config"
	"gearshare/pkg/db"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer conn.Close()

	if cfg.MigrationsPath != "" {
		if err := db.MigrateConfig(cfg.MigrationsPath, cfg); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// The cache is optional; run without it rather than refuse to start.
			log.Printf("redis unavailable, blocked-dates cache disabled: %v", err)
			rdb = nil
		}
	}

	store := booking.NewPGStore(conn)
	engine := booking.NewEngine(store,
		payment.NewRepository(conn),
		evidence.NewRepository(conn),
	)

	sched := &scheduler.Scheduler{
		Engine: engine,
		Source: scheduler.NewPGSource(conn),
		Windows: scheduler.Windows{
			PendingResponse: cfg.Scheduler.PendingResponse,
			PickupGrace:     cfg.Scheduler.PickupGrace,
			ReturnOpens:     cfg.Scheduler.ReturnOpens,
			ReturnGrace:     cfg.Scheduler.ReturnGrace,
			ConfirmWindow:   cfg.Scheduler.ConfirmWindow,
		},
		Interval: cfg.Scheduler.SweepInterval,
		InfoLog:  log.New(os.Stdout, "", log.LstdFlags),
		ErrorLog: log.New(os.Stderr, "", log.LstdFlags),
	}
	go sched.Run(ctx)

	router := httpapi.NewRouter(httpapi.Dependencies{
		Cfg:    cfg,
		DB:     conn,
		Redis:  rdb,
		Engine: engine,
		Store:  store,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("http listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
}
