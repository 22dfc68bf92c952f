package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"github.com/vitos/company_page/internal/domain"
)

// AlpacaClient serves prices, minute bars, asset facts, news and account
// buying power from the Alpaca APIs.
type AlpacaClient struct {
	data     *marketdata.Client
	trading  *alpaca.Client
	feed     marketdata.Feed
	calendar domain.TradingCalendar
	timeNow  func() time.Time
}

func NewAlpacaClient(apiKey, apiSecret, tradingURL, dataURL, feed string, calendar domain.TradingCalendar) *AlpacaClient {
	dataOpts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		dataOpts.BaseURL = dataURL
	}
	return &AlpacaClient{
		data: marketdata.NewClient(dataOpts),
		trading: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   tradingURL,
		}),
		feed:     parseFeed(feed),
		calendar: calendar,
		timeNow:  time.Now,
	}
}

func parseFeed(feed string) marketdata.Feed {
	switch strings.ToLower(feed) {
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}

func (c *AlpacaClient) Name() string { return "alpaca" }

func (c *AlpacaClient) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	trade, err := c.data.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{Feed: c.feed})
	if err != nil {
		return 0, fmt.Errorf("GetLatestTrade: %w", err)
	}
	if trade == nil {
		return 0, fmt.Errorf("latest trade %s: %w", symbol, domain.ErrNotFound)
	}
	return trade.Price, nil
}

// GetIntraday returns today's one-minute bars keyed by market-local minute.
func (c *AlpacaClient) GetIntraday(ctx context.Context, symbol string) (domain.IntradaySeries, error) {
	now := c.timeNow()
	bars, err := c.data.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneMin,
		Start:     c.calendar.SessionOpen(now),
		End:       now,
		Feed:      c.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars: %w", err)
	}

	series := make(domain.IntradaySeries, len(bars))
	for _, b := range bars {
		series[c.calendar.Key(b.Timestamp)] = b.Open
	}
	return series, nil
}

// GetFundamentals fills what the asset endpoint knows. Alpaca has no company
// profile, so the remaining facts stay zero.
func (c *AlpacaClient) GetFundamentals(ctx context.Context, symbol string) (*domain.Fundamentals, error) {
	asset, err := c.trading.GetAsset(symbol)
	if err != nil {
		return nil, fmt.Errorf("GetAsset: %w", err)
	}
	return &domain.Fundamentals{
		Symbol:   symbol,
		Name:     asset.Name,
		Exchange: string(asset.Exchange),
	}, nil
}

func (c *AlpacaClient) GetNews(ctx context.Context, symbol string, limit int) ([]domain.NewsArticle, error) {
	news, err := c.data.GetNews(marketdata.GetNewsRequest{
		Symbols:    []string{symbol},
		TotalLimit: limit,
		Sort:       marketdata.SortDesc,
	})
	if err != nil {
		return nil, fmt.Errorf("GetNews: %w", err)
	}

	articles := make([]domain.NewsArticle, 0, len(news))
	for _, n := range news {
		articles = append(articles, domain.NewsArticle{
			Headline:  n.Headline,
			Summary:   n.Summary,
			URL:       n.URL,
			Source:    n.Source,
			CreatedAt: n.CreatedAt.UnixMilli(),
		})
	}
	return articles, nil
}

// GetBuyingPower ignores accountID: the API keys select the account.
func (c *AlpacaClient) GetBuyingPower(ctx context.Context, accountID string) (decimal.Decimal, error) {
	acct, err := c.trading.GetAccount()
	if err != nil {
		return decimal.Zero, fmt.Errorf("GetAccount: %w", err)
	}
	return acct.BuyingPower, nil
}

// IsTradingDay reports whether the market calendar has a session on t's date.
func (c *AlpacaClient) IsTradingDay(ctx context.Context, t time.Time) (bool, error) {
	day := c.calendar.In(t)
	days, err := c.trading.GetCalendar(alpaca.GetCalendarRequest{Start: day, End: day})
	if err != nil {
		return false, fmt.Errorf("GetCalendar: %w", err)
	}
	want := day.Format("2006-01-02")
	for _, d := range days {
		if d.Date == want {
			return true, nil
		}
	}
	return false, nil
}
