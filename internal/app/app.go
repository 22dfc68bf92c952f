// Package app wires configuration into the running page stack.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/company_page/internal/config"
	"github.com/vitos/company_page/internal/domain"
	"github.com/vitos/company_page/internal/infrastructure/marketdata"
	"github.com/vitos/company_page/internal/infrastructure/storage"
	"github.com/vitos/company_page/internal/usecase"
)

const subscriptionSync = 5 * time.Second

type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Calendar domain.TradingCalendar
	Store    *storage.SQLiteStore
	Client   domain.MarketDataClient
	News     domain.NewsProvider
	Gateway  *usecase.MarketGateway
	Pages    *usecase.PageService
	Poller   *usecase.PricePoller
	Stream   domain.PriceStream

	stop chan struct{}
	wg   sync.WaitGroup
}

// New builds every component but starts nothing.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	cal, err := cfg.TradingCalendar()
	if err != nil {
		return nil, err
	}
	policy, err := usecase.ParseRacePolicy(cfg.Page.RacePolicy)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.Storage.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := storage.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("init sqlite: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   log,
		Calendar: cal,
		Store:    store,
		stop:     make(chan struct{}),
	}

	var accounts domain.BuyingPowerSource = store
	switch cfg.MarketData.Provider {
	case "alpaca":
		ac := marketdata.NewAlpacaClient(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL, cfg.Alpaca.DataURL, cfg.Alpaca.Feed, cal)
		a.Client = ac
		a.News = ac
		accounts = ac
		if cfg.Alpaca.Stream {
			a.Stream = marketdata.NewTradeStream(cfg.Alpaca.StreamURL, cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, log.Named("stream"))
		}
	case "rest":
		a.Client = marketdata.NewRESTClient(cfg.MarketData.RESTBaseURL, cfg.MarketData.RESTToken, cfg.MarketData.RequestTimeout)
	default:
		store.Close()
		return nil, fmt.Errorf("unknown market data provider %q", cfg.MarketData.Provider)
	}

	a.Gateway = usecase.NewMarketGateway(a.Client, store, cfg.Gateway.FundamentalsTTL, cfg.RetryPolicy(), log.Named("gateway"))
	a.Pages = usecase.NewPageService(a.Gateway, store, accounts, usecase.NewChangeCalculator(cal), policy, log.Named("pages"))
	a.Poller = usecase.NewPricePoller(a.Gateway, a.Pages.ActiveSymbols, cfg.MarketData.RequestTimeout, log.Named("poller"))
	if err := a.Poller.Register(cfg.Polling.PriceCron); err != nil {
		store.Close()
		return nil, err
	}
	if a.Stream != nil {
		a.Stream.OnPriceUpdate(a.Gateway.UpdatePrice)
	}
	return a, nil
}

// Start runs the price poller and, when streaming, keeps the stream
// subscribed to the symbols of open pages.
func (a *App) Start() {
	a.Poller.Start()
	if a.Stream == nil {
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(subscriptionSync)
		defer ticker.Stop()

		for {
			if symbols := a.Pages.ActiveSymbols(); len(symbols) > 0 {
				if err := a.Stream.Subscribe(symbols); err != nil {
					a.Logger.Error("Failed to subscribe", zap.Strings("symbols", symbols), zap.Error(err))
				}
			}
			select {
			case <-ticker.C:
			case <-a.stop:
				return
			}
		}
	}()
}

// Close stops background work, closes every page and releases storage.
func (a *App) Close() {
	close(a.stop)
	a.wg.Wait()
	a.Poller.Stop()
	if a.Stream != nil {
		if err := a.Stream.Close(); err != nil {
			a.Logger.Warn("Failed to close stream", zap.Error(err))
		}
	}
	a.Pages.Shutdown()
	if err := a.Store.Close(); err != nil {
		a.Logger.Warn("Failed to close store", zap.Error(err))
	}
}
