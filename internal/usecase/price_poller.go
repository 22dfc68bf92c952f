package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// PriceRefresher refreshes a symbol's latest price in the background.
type PriceRefresher interface {
	RefreshLatestPrice(ctx context.Context, symbol string) error
}

// PricePoller periodically refreshes the latest price of every symbol shown
// by an open page.
type PricePoller struct {
	cron      *cron.Cron
	refresher PriceRefresher
	symbols   func() []string
	timeout   time.Duration
	logger    *zap.Logger
}

func NewPricePoller(refresher PriceRefresher, symbols func() []string, timeout time.Duration, logger *zap.Logger) *PricePoller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PricePoller{
		cron:      cron.New(cron.WithSeconds()),
		refresher: refresher,
		symbols:   symbols,
		timeout:   timeout,
		logger:    logger,
	}
}

// Register schedules the refresh job on a six-field cron expression.
func (p *PricePoller) Register(spec string) error {
	if _, err := p.cron.AddFunc(spec, p.poll); err != nil {
		return fmt.Errorf("register price poll %q: %w", spec, err)
	}
	return nil
}

func (p *PricePoller) Start() {
	p.cron.Start()
	p.logger.Info("Price poller started")
}

// Stop halts the schedule and waits for a running poll to finish.
func (p *PricePoller) Stop() {
	<-p.cron.Stop().Done()
	p.logger.Info("Price poller stopped")
}

func (p *PricePoller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	p.RunOnce(ctx)
}

// RunOnce refreshes every active symbol once. Failures are logged and skipped.
func (p *PricePoller) RunOnce(ctx context.Context) {
	for _, symbol := range p.symbols() {
		if err := p.refresher.RefreshLatestPrice(ctx, symbol); err != nil {
			p.logger.Warn("Price refresh failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
}
