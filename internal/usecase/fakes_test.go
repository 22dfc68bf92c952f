package usecase_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vitos/company_page/internal/domain"
)

var errFeedDown = errors.New("feed down")

// MockMarketClient answers from fixed maps and counts calls.
type MockMarketClient struct {
	mu           sync.Mutex
	Prices       map[string]float64
	Intraday     map[string]domain.IntradaySeries
	Fundamentals map[string]*domain.Fundamentals
	FailPrice    int // number of upcoming price calls that fail
	FailIntraday int
	Calls        map[string]int

	priceGate chan error
	parked    chan struct{}
}

func NewMockMarketClient() *MockMarketClient {
	return &MockMarketClient{
		Prices:       map[string]float64{},
		Intraday:     map[string]domain.IntradaySeries{},
		Fundamentals: map[string]*domain.Fundamentals{},
		Calls:        map[string]int{},
	}
}

func (m *MockMarketClient) Name() string { return "mock" }

// ParkPrices makes later price calls block until gate yields (a nil error
// lets the call through) or their context ends. Each parked call is signalled
// on the returned channel. ParkPrices(nil) stops parking.
func (m *MockMarketClient) ParkPrices(gate chan error) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priceGate = gate
	m.parked = make(chan struct{}, 8)
	return m.parked
}

func (m *MockMarketClient) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	gate, parked := m.priceGate, m.parked
	m.mu.Unlock()
	if gate != nil {
		parked <- struct{}{}
		select {
		case err := <-gate:
			if err != nil {
				return 0, err
			}
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["price"]++
	if m.FailPrice > 0 {
		m.FailPrice--
		return 0, errFeedDown
	}
	p, ok := m.Prices[symbol]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return p, nil
}

func (m *MockMarketClient) GetIntraday(ctx context.Context, symbol string) (domain.IntradaySeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["intraday"]++
	if m.FailIntraday > 0 {
		m.FailIntraday--
		return nil, errFeedDown
	}
	return m.Intraday[symbol].Clone(), nil
}

func (m *MockMarketClient) GetFundamentals(ctx context.Context, symbol string) (*domain.Fundamentals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["fundamentals"]++
	f, ok := m.Fundamentals[symbol]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *MockMarketClient) CallCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[kind]
}

// MockFundamentalsCache is an in-memory FundamentalsCache.
type MockFundamentalsCache struct {
	mu    sync.Mutex
	Items map[string]*domain.Fundamentals
}

func (c *MockFundamentalsCache) GetFundamentals(ctx context.Context, symbol string, maxAge time.Duration) (*domain.Fundamentals, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.Items[symbol]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return f, nil
}

func (c *MockFundamentalsCache) SaveFundamentals(ctx context.Context, f *domain.Fundamentals) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Items == nil {
		c.Items = map[string]*domain.Fundamentals{}
	}
	c.Items[f.Symbol] = f
	return nil
}

// MockCompanyRepo is an in-memory CompanyRepository.
type MockCompanyRepo struct {
	Companies map[string]*domain.Company
}

func (r *MockCompanyRepo) GetCompany(ctx context.Context, symbol string) (*domain.Company, error) {
	c, ok := r.Companies[symbol]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (r *MockCompanyRepo) SaveCompany(ctx context.Context, c *domain.Company) error {
	r.Companies[c.Symbol] = c
	return nil
}

func (r *MockCompanyRepo) ListCompanies(ctx context.Context) ([]*domain.Company, error) {
	var out []*domain.Company
	for _, c := range r.Companies {
		out = append(out, c)
	}
	return out, nil
}

// MockBuyingPower returns a fixed amount for every account.
type MockBuyingPower struct {
	Amount decimal.Decimal
}

func (b *MockBuyingPower) GetBuyingPower(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return b.Amount, nil
}
