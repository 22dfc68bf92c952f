package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/company_page/internal/domain"
)

type feedState struct {
	price        *float64
	intraday     domain.IntradaySeries
	fundamentals *domain.Fundamentals

	loading domain.LoadingFlags
	pending struct {
		price, intraday, fundamentals int
	}
}

// MarketGateway owns raw feed data and loading flags per symbol. Fetches are
// blocking calls; callers run them in their own goroutines.
type MarketGateway struct {
	client          domain.MarketDataClient
	cache           domain.FundamentalsCache
	fundamentalsTTL time.Duration
	retry           RetryPolicy
	logger          *zap.Logger

	mu        sync.Mutex
	feeds     map[string]*feedState
	callbacks []func(symbol string, price float64)
}

func NewMarketGateway(client domain.MarketDataClient, cache domain.FundamentalsCache, fundamentalsTTL time.Duration, retry RetryPolicy, logger *zap.Logger) *MarketGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketGateway{
		client:          client,
		cache:           cache,
		fundamentalsTTL: fundamentalsTTL,
		retry:           retry,
		logger:          logger,
		feeds:           make(map[string]*feedState),
	}
}

// feed must be called with g.mu held.
func (g *MarketGateway) feed(symbol string) *feedState {
	f, ok := g.feeds[symbol]
	if !ok {
		f = &feedState{}
		g.feeds[symbol] = f
	}
	return f
}

// settle closes one fetch of a feed. The loading flag clears once no fetch is
// in flight, unless the last one failed and the feed has nothing to show.
// Fetches cancelled by their caller count as settled.
func settle(pending *int, loading *bool, ok bool) {
	*pending--
	if *pending == 0 && ok {
		*loading = false
	}
}

func (g *MarketGateway) logFailure(ctx context.Context, msg, symbol string, err error) {
	if ctx.Err() != nil {
		g.logger.Debug(msg+" (cancelled)", zap.String("symbol", symbol))
		return
	}
	g.logger.Warn(msg, zap.String("symbol", symbol), zap.Error(err))
}

// OnPriceUpdate registers a callback invoked for every accepted latest price.
func (g *MarketGateway) OnPriceUpdate(callback func(symbol string, price float64)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.callbacks = append(g.callbacks, callback)
}

func (g *MarketGateway) notifyPrice(symbol string, price float64) {
	g.mu.Lock()
	callbacks := make([]func(string, float64), len(g.callbacks))
	copy(callbacks, g.callbacks)
	g.mu.Unlock()

	for _, cb := range callbacks {
		cb(symbol, price)
	}
}

// FetchLatestPrice runs one price fetch cycle. A failure with no price on
// record leaves the loading flag set until a later fetch succeeds.
func (g *MarketGateway) FetchLatestPrice(ctx context.Context, symbol string) error {
	g.mu.Lock()
	f := g.feed(symbol)
	f.loading.Price = true
	f.pending.price++
	g.mu.Unlock()

	var price float64
	err := retry(ctx, g.retry, func() error {
		var err error
		price, err = g.client.GetLatestPrice(ctx, symbol)
		return err
	})

	g.mu.Lock()
	if err != nil {
		settle(&f.pending.price, &f.loading.Price, ctx.Err() != nil || f.price != nil)
		g.mu.Unlock()
		g.logFailure(ctx, "Latest price fetch failed", symbol, err)
		return fmt.Errorf("fetch latest price %s: %w", symbol, err)
	}
	f.price = &price
	settle(&f.pending.price, &f.loading.Price, true)
	g.mu.Unlock()

	g.notifyPrice(symbol, price)
	return nil
}

// FetchIntraday runs one intraday fetch cycle and returns the series it fetched.
func (g *MarketGateway) FetchIntraday(ctx context.Context, symbol string) (domain.IntradaySeries, error) {
	g.mu.Lock()
	f := g.feed(symbol)
	f.loading.Intraday = true
	f.pending.intraday++
	g.mu.Unlock()

	var series domain.IntradaySeries
	err := retry(ctx, g.retry, func() error {
		var err error
		series, err = g.client.GetIntraday(ctx, symbol)
		return err
	})

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		settle(&f.pending.intraday, &f.loading.Intraday, ctx.Err() != nil || f.intraday != nil)
		g.logFailure(ctx, "Intraday fetch failed", symbol, err)
		return nil, fmt.Errorf("fetch intraday %s: %w", symbol, err)
	}
	f.intraday = series
	settle(&f.pending.intraday, &f.loading.Intraday, true)
	return series.Clone(), nil
}

// FetchFundamentals runs one fundamentals fetch cycle, reading through the
// cache when one is configured.
func (g *MarketGateway) FetchFundamentals(ctx context.Context, symbol string) error {
	g.mu.Lock()
	f := g.feed(symbol)
	f.loading.Fundamentals = true
	f.pending.fundamentals++
	g.mu.Unlock()

	fund, err := g.cachedFundamentals(ctx, symbol)
	if fund == nil {
		err = retry(ctx, g.retry, func() error {
			var err error
			fund, err = g.client.GetFundamentals(ctx, symbol)
			return err
		})
		if err == nil && g.cache != nil {
			if cerr := g.cache.SaveFundamentals(ctx, fund); cerr != nil {
				g.logger.Warn("Failed to cache fundamentals", zap.String("symbol", symbol), zap.Error(cerr))
			}
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		settle(&f.pending.fundamentals, &f.loading.Fundamentals, ctx.Err() != nil || f.fundamentals != nil)
		g.logFailure(ctx, "Fundamentals fetch failed", symbol, err)
		return fmt.Errorf("fetch fundamentals %s: %w", symbol, err)
	}
	f.fundamentals = fund
	settle(&f.pending.fundamentals, &f.loading.Fundamentals, true)
	return nil
}

func (g *MarketGateway) cachedFundamentals(ctx context.Context, symbol string) (*domain.Fundamentals, error) {
	if g.cache == nil {
		return nil, nil
	}
	fund, err := g.cache.GetFundamentals(ctx, symbol, g.fundamentalsTTL)
	if err != nil {
		// Miss or unreadable cache entry; fall back to the client.
		return nil, nil
	}
	return fund, nil
}

// UpdatePrice accepts a pushed price (stream, poller). Loading flags are untouched.
func (g *MarketGateway) UpdatePrice(symbol string, price float64) {
	g.mu.Lock()
	f := g.feed(symbol)
	f.price = &price
	g.mu.Unlock()

	g.notifyPrice(symbol, price)
}

// RefreshLatestPrice fetches the latest price in the background, without a
// loading cycle.
func (g *MarketGateway) RefreshLatestPrice(ctx context.Context, symbol string) error {
	price, err := g.client.GetLatestPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("refresh latest price %s: %w", symbol, err)
	}
	g.UpdatePrice(symbol, price)
	return nil
}

// Snapshot returns a copy of the feed state for symbol.
func (g *MarketGateway) Snapshot(symbol string) domain.FeedSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := domain.FeedSnapshot{Symbol: symbol}
	f, ok := g.feeds[symbol]
	if !ok {
		return snap
	}
	if f.price != nil {
		p := *f.price
		snap.LatestPrice = &p
	}
	snap.Intraday = f.intraday.Clone()
	if f.fundamentals != nil {
		fund := *f.fundamentals
		snap.Fundamentals = &fund
	}
	snap.Loading = f.loading
	return snap
}
