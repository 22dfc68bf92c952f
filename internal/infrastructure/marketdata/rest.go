package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vitos/company_page/internal/domain"
)

// RESTClient reads market data from an IEX-style JSON API.
type RESTClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewRESTClient(baseURL, token string, timeout time.Duration) *RESTClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *RESTClient) Name() string { return "rest" }

func (c *RESTClient) get(ctx context.Context, path string, out interface{}) error {
	endpoint := c.baseURL + path
	if c.token != "" {
		endpoint += "?token=" + url.QueryEscape(c.token)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("GET %s: %w", path, domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: status %d, body: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *RESTClient) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/stock/"+url.PathEscape(symbol)+"/quote/latestPrice", &raw); err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("parse latest price %q: %w", string(raw), err)
	}
	return price, nil
}

// intradayPoint is one minute of the intraday-prices endpoint. Minutes without
// trades come back with null prices.
type intradayPoint struct {
	Date    string   `json:"date"`
	Minute  string   `json:"minute"`
	Open    *float64 `json:"open"`
	Average *float64 `json:"average"`
	Close   *float64 `json:"close"`
}

func (p intradayPoint) price() (float64, bool) {
	for _, v := range []*float64{p.Average, p.Close, p.Open} {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

func (c *RESTClient) GetIntraday(ctx context.Context, symbol string) (domain.IntradaySeries, error) {
	var points []intradayPoint
	if err := c.get(ctx, "/stock/"+url.PathEscape(symbol)+"/intraday-prices", &points); err != nil {
		return nil, err
	}
	series := make(domain.IntradaySeries, len(points))
	for _, p := range points {
		price, ok := p.price()
		if !ok {
			continue
		}
		series[p.Date+" "+p.Minute] = price
	}
	return series, nil
}

type companyResponse struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"companyName"`
	Exchange    string `json:"exchange"`
	Industry    string `json:"industry"`
	Description string `json:"description"`
	CEO         string `json:"CEO"`
	Employees   int    `json:"employees"`
	City        string `json:"city"`
	State       string `json:"state"`
}

type statsResponse struct {
	MarketCap     float64 `json:"marketcap"`
	PERatio       float64 `json:"peRatio"`
	DividendYield float64 `json:"dividendYield"`
	Avg30Volume   float64 `json:"avg30Volume"`
}

func (c *RESTClient) GetFundamentals(ctx context.Context, symbol string) (*domain.Fundamentals, error) {
	var company companyResponse
	if err := c.get(ctx, "/stock/"+url.PathEscape(symbol)+"/company", &company); err != nil {
		return nil, err
	}
	var stats statsResponse
	if err := c.get(ctx, "/stock/"+url.PathEscape(symbol)+"/stats", &stats); err != nil {
		return nil, err
	}

	hq := company.City
	if company.State != "" {
		if hq != "" {
			hq += ", "
		}
		hq += company.State
	}
	return &domain.Fundamentals{
		Symbol:             symbol,
		Name:               company.CompanyName,
		Description:        company.Description,
		CEO:                company.CEO,
		MarketCap:          stats.MarketCap,
		Employees:          company.Employees,
		PriceEarningsRatio: stats.PERatio,
		Headquarters:       hq,
		DividendYield:      stats.DividendYield,
		AverageVolume:      stats.Avg30Volume,
		Exchange:           company.Exchange,
		Industry:           company.Industry,
	}, nil
}
