package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/hyukudan/dripgate/internal/config/cleaner"
	"github.com/hyukudan/dripgate/internal/domain/notification"
	"github.com/hyukudan/dripgate/internal/obs"
	pg "github.com/hyukudan/dripgate/internal/repository/postgres"
	"github.com/hyukudan/dripgate/internal/services/cleaner"
)

func main() {
	configPath := flag.String("config", "config/cleaner.yaml", "path to config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig("retention-cleaner"))
	if err != nil {
		log.Fatal(err)
	}
	l.Info("starting retention cleaner",
		zap.Duration("tick", cfg.Sweep.Tick),
		zap.Int("retention_days", cfg.Sweep.RetentionDays),
		zap.String("metrics_addr", cfg.Sweep.MetricsAddr),
	)

	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	ms := obs.BootstrapMetricsServer(cfg.Sweep.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	uc := cleaner.NewUC(pg.NewNotificationRepo(db), notification.SystemClock{}, cfg.Sweep.RetentionDays, l)
	runner := cleaner.New(l, uc, &cfg.Sweep)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()

	l.Info("retention cleaner started")

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
