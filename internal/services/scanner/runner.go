package scanner

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	config "github.com/hyukudan/dripgate/internal/config/scanner"
)

// Runner drives one scan pass per tick and records pass metrics.
type Runner struct {
	Log *zap.Logger
	UC  *Usecase
	Cfg *config.ScanCfg

	mItems    prometheus.Counter
	mNotified prometheus.Counter
	mSkipped  prometheus.Counter
	mErr      prometheus.Counter
	mPassDur  prometheus.Histogram
}

func New(log *zap.Logger, uc *Usecase, cfg *config.ScanCfg) *Runner {
	return &Runner{
		Log: log,
		UC:  uc,
		Cfg: cfg,
		mItems: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scanner_items_scanned_total", Help: "Gated items seen by scan passes",
		}),
		mNotified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scanner_notifications_sent_total", Help: "Unlock notifications delivered",
		}),
		mSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scanner_pairs_skipped_total", Help: "Pairs skipped as already claimed",
		}),
		mErr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scanner_errors_total", Help: "Errors in scan passes",
		}),
		mPassDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "scanner_pass_duration_seconds", Help: "Scan pass duration",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Runner) tick(ctx context.Context) {
	if !r.Cfg.NotifyEnabled || r.Cfg.NotifyMethod == MethodNone {
		r.Log.Debug("unlock notifications disabled, skipping pass")
		return
	}

	start := time.Now()
	rep, err := r.UC.Scan(ctx)
	if err != nil {
		r.mErr.Inc()
		r.Log.Warn("scan pass error", zap.Error(err))
	}
	if rep.Items > 0 {
		r.mItems.Add(float64(rep.Items))
		r.mNotified.Add(float64(rep.Notified))
		r.mSkipped.Add(float64(rep.Skipped))
		if rep.Errors > 0 {
			r.mErr.Add(float64(rep.Errors))
		}
		r.Log.Info("scan pass done",
			zap.Int("courses", rep.Courses),
			zap.Int("items", rep.Items),
			zap.Int("notified", rep.Notified),
			zap.Int("skipped", rep.Skipped),
			zap.Int("errors", rep.Errors),
		)
	}
	r.mPassDur.Observe(time.Since(start).Seconds())
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Cfg.Tick)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}
