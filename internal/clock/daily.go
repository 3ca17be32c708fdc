package clock

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultDailySpec runs a job shortly after midnight UTC.
const DefaultDailySpec = "5 0 * * *"

// Daily runs fn on a cron schedule until ctx is done.
type Daily struct {
	spec   string
	fn     func(ctx context.Context) error
	logger *zap.Logger
}

// NewDaily validates spec and returns a job for fn.
func NewDaily(spec string, fn func(ctx context.Context) error, logger *zap.Logger) (*Daily, error) {
	if spec == "" {
		spec = DefaultDailySpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Daily{spec: spec, fn: fn, logger: logger}, nil
}

// Run blocks until ctx is cancelled.
func (d *Daily) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(d.spec, func() {
		d.logger.Info("cron triggered", zap.String("spec", d.spec))
		if err := d.fn(ctx); err != nil {
			d.logger.Error("daily job failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	c.Start()
	d.logger.Info("cron scheduler started", zap.String("spec", d.spec))

	<-ctx.Done()

	<-c.Stop().Done()
	d.logger.Info("cron scheduler stopped")
	return nil
}
