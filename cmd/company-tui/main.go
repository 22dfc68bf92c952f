package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/vitos/company_page/internal/app"
	"github.com/vitos/company_page/internal/config"
	"github.com/vitos/company_page/internal/domain"
	"github.com/vitos/company_page/internal/infrastructure/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	symbol := flag.String("symbol", "AAPL", "ticker to open")
	layout := flag.String("layout", "desktop", "desktop or compact")
	account := flag.String("account", "", "account id for buying power")
	logFile := flag.String("log", "logs/company-tui.log", "log file; the terminal belongs to the UI")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewFileLogger(*logFile, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()
	a.Start()

	accountID := *account
	if accountID == "" {
		accountID = cfg.Account.DefaultID
	}
	st, err := a.Pages.Open(context.Background(), *symbol, accountID, domain.ParseLayout(*layout))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open page: %v\n", err)
		os.Exit(1)
	}
	updates, cancel, err := a.Pages.Subscribe(st.PageID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to subscribe: %v\n", err)
		os.Exit(1)
	}
	defer cancel()

	m := newModel(a.Pages, a.News, cfg.Page.NewsLimit, st, updates)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Error("TUI exited with error", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
