package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/vitos/company_page/internal/config"
	"github.com/vitos/company_page/internal/domain"
	"github.com/vitos/company_page/internal/infrastructure/storage"
	"github.com/vitos/company_page/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	symbol := flag.String("symbol", "", "ticker symbol")
	name := flag.String("name", "", "company display name")
	description := flag.String("description", "", "company description")
	account := flag.String("account", "", "account id to seed buying power for")
	buyingPower := flag.String("buying-power", "", "buying power, e.g. 25000.00")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	store, err := storage.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if *symbol != "" {
		company := &domain.Company{
			Symbol:      strings.ToUpper(*symbol),
			Name:        *name,
			Description: *description,
		}
		if err := store.SaveCompany(ctx, company); err != nil {
			log.Fatalf("Failed to save company: %v", err)
		}
		fmt.Printf("✅ Company saved: %s (%s)\n", company.Symbol, company.Name)
	}

	if *buyingPower != "" {
		id := *account
		if id == "" {
			id = cfg.Account.DefaultID
		}
		amount, err := config.ParseBuyingPower(*buyingPower)
		if err != nil {
			log.Fatalf("Failed to parse buying power: %v", err)
		}
		if err := store.SaveBuyingPower(ctx, id, amount); err != nil {
			log.Fatalf("Failed to save buying power: %v", err)
		}
		fmt.Printf("✅ Buying power for %q: %s\n", id, usecase.FormatPrice(amount.InexactFloat64()))
	}

	companies, err := store.ListCompanies(ctx)
	if err != nil {
		log.Fatalf("Failed to list companies: %v", err)
	}
	fmt.Printf("Companies in %s: %d\n", cfg.Storage.SQLitePath, len(companies))
	for _, c := range companies {
		fmt.Printf("  %-6s %s\n", c.Symbol, c.Name)
	}
}
