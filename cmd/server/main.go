package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/company_page/internal/app"
	"github.com/vitos/company_page/internal/config"
	"github.com/vitos/company_page/internal/infrastructure/logger"
	"github.com/vitos/company_page/internal/web"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
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

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Storage, market data, gateway and pages
	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to init app", zap.Error(err))
	}
	log.Info("Market data provider", zap.String("provider", a.Client.Name()), zap.Bool("stream", a.Stream != nil))

	// 4. Poller and stream subscriptions
	a.Start()

	// 5. Web server
	if err := web.InitTemplates(cfg.Server.TemplatesDir); err != nil {
		log.Fatal("Failed to load templates", zap.Error(err))
	}
	server := web.NewServer(cfg.Server.Port, a.Pages, a.Store, a.News, cfg.Page.NewsLimit, log.Named("web"))
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Web server failed", zap.Error(err))
		}
	}()

	// 6. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Web server shutdown failed", zap.Error(err))
	}
	a.Close()
}
