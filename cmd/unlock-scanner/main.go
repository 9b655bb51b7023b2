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

	config "github.com/hyukudan/dripgate/internal/config/scanner"
	"github.com/hyukudan/dripgate/internal/domain/notification"
	"github.com/hyukudan/dripgate/internal/obs"
	pg "github.com/hyukudan/dripgate/internal/repository/postgres"
	"github.com/hyukudan/dripgate/internal/services/scanner"
	"github.com/hyukudan/dripgate/internal/services/scanner/repo"
)

func main() {
	configPath := flag.String("config", "config/scanner.yaml", "path to config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig("unlock-scanner"))
	if err != nil {
		log.Fatal(err)
	}
	l.Info("starting unlock scanner",
		zap.Duration("tick", cfg.Scan.Tick),
		zap.String("notify_method", cfg.Scan.NotifyMethod),
		zap.String("metrics_addr", cfg.Scan.MetricsAddr),
	)

	otelCloser, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	ms := obs.BootstrapMetricsServer(cfg.Scan.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	dispatcher := &scanner.Dispatcher{
		Out:      scanner.NewMailer(cfg.SMTP, l),
		Method:   cfg.Scan.NotifyMethod,
		SiteName: cfg.Scan.SiteName,
		BaseURL:  cfg.Scan.BaseURL,
		Log:      l,
	}
	uc := scanner.NewUC(
		repo.Items{R: pg.NewItemRepo(db)},
		repo.Enrolments{R: pg.NewEnrolmentRepo(db)},
		repo.Courses{R: pg.NewCourseRepo(db)},
		repo.Store{R: pg.NewNotificationRepo(db)},
		dispatcher,
		notification.SystemClock{},
		l,
	)
	runner := scanner.New(l, uc, &cfg.Scan)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()

	l.Info("unlock scanner started")

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
