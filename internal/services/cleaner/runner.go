package cleaner

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	config "github.com/hyukudan/dripgate/internal/config/cleaner"
)

type Runner struct {
	Log *zap.Logger
	UC  *Usecase
	Cfg *config.SweepCfg

	mExpired  prometheus.Counter
	mOrphaned prometheus.Counter
	mErr      prometheus.Counter
	mPassDur  prometheus.Histogram
}

func New(log *zap.Logger, uc *Usecase, cfg *config.SweepCfg) *Runner {
	return &Runner{
		Log: log,
		UC:  uc,
		Cfg: cfg,
		mExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cleaner_records_expired_total", Help: "Notification records deleted by age",
		}),
		mOrphaned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cleaner_records_orphaned_total", Help: "Notification records deleted as orphans",
		}),
		mErr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cleaner_errors_total", Help: "Errors in sweep passes",
		}),
		mPassDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "cleaner_pass_duration_seconds", Help: "Sweep pass duration",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	rep, err := r.UC.Sweep(ctx)
	if err != nil {
		r.mErr.Inc()
		r.Log.Warn("sweep pass error", zap.Error(err))
	}
	r.mExpired.Add(float64(rep.Expired))
	r.mOrphaned.Add(float64(rep.Orphaned))
	if rep.Expired > 0 || rep.Orphaned > 0 {
		r.Log.Info("sweep pass done",
			zap.Int64("expired", rep.Expired),
			zap.Int64("orphaned", rep.Orphaned),
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
