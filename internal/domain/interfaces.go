package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// MarketDataClient is the transport behind the market data gateway.
type MarketDataClient interface {
	Name() string
	GetLatestPrice(ctx context.Context, symbol string) (float64, error)
	GetIntraday(ctx context.Context, symbol string) (IntradaySeries, error)
	GetFundamentals(ctx context.Context, symbol string) (*Fundamentals, error)
}

// PriceStream pushes live prices for subscribed symbols.
type PriceStream interface {
	OnPriceUpdate(callback func(symbol string, price float64))
	Subscribe(symbols []string) error
	Close() error
}

// CompanyRepository resolves the selected company for a symbol.
type CompanyRepository interface {
	GetCompany(ctx context.Context, symbol string) (*Company, error)
	SaveCompany(ctx context.Context, company *Company) error
	ListCompanies(ctx context.Context) ([]*Company, error)
}

// BuyingPowerSource provides the account figure handed to the sidebar.
type BuyingPowerSource interface {
	GetBuyingPower(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// FundamentalsCache stores fundamentals between fetches.
type FundamentalsCache interface {
	GetFundamentals(ctx context.Context, symbol string, maxAge time.Duration) (*Fundamentals, error)
	SaveFundamentals(ctx context.Context, f *Fundamentals) error
}

// NewsProvider feeds the newsfeed section.
type NewsProvider interface {
	GetNews(ctx context.Context, symbol string, limit int) ([]NewsArticle, error)
}
