package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vitos/company_page/internal/config"
	"github.com/vitos/company_page/internal/domain"
	"github.com/vitos/company_page/internal/infrastructure/marketdata"
	"github.com/vitos/company_page/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	symbol := flag.String("symbol", "AAPL", "ticker to check")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}
	cal, err := cfg.TradingCalendar()
	if err != nil {
		fmt.Printf("Bad calendar: %v\n", err)
		os.Exit(1)
	}

	var client domain.MarketDataClient
	if cfg.MarketData.Provider == "alpaca" {
		ac := marketdata.NewAlpacaClient(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL, cfg.Alpaca.DataURL, cfg.Alpaca.Feed, cal)
		client = ac
		open, err := ac.IsTradingDay(context.Background(), time.Now())
		if err != nil {
			fmt.Printf("❌ Failed to read calendar: %v\n", err)
		} else {
			fmt.Printf("✅ Trading day today: %v\n", open)
		}
	} else {
		client = marketdata.NewRESTClient(cfg.MarketData.RESTBaseURL, cfg.MarketData.RESTToken, cfg.MarketData.RequestTimeout)
	}

	fmt.Printf("Checking %s via %s...\n", *symbol, client.Name())
	ctx, cancel := context.WithTimeout(context.Background(), cfg.MarketData.RequestTimeout)
	defer cancel()

	// 2. Latest price
	price, err := client.GetLatestPrice(ctx, *symbol)
	if err != nil {
		fmt.Printf("❌ Failed to get price: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Latest Price: %s\n", usecase.FormatPrice(price))

	// 3. Intraday series
	series, err := client.GetIntraday(ctx, *symbol)
	if err != nil {
		fmt.Printf("❌ Failed to get intraday: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Intraday points: %d\n", len(series))

	// 4. Daily change
	calc := usecase.NewChangeCalculator(cal)
	now := time.Now()
	if !calc.Ready(series, now) {
		fmt.Printf("⚠️  No opening price for %s yet\n", cal.OpenPriceKey(now))
		return
	}
	view := calc.Compute(price, series, now)
	fmt.Printf("✅ Daily Change: %s  color=%s\n", usecase.FormatChange(view), view.FillColor)
}
