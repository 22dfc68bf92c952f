package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/company_page/internal/domain"
)

var ErrPageNotFound = errors.New("page not found")

// PriceFeedGateway is a PageGateway that also pushes accepted prices.
type PriceFeedGateway interface {
	PageGateway
	OnPriceUpdate(callback func(symbol string, price float64))
}

// PageState is the render-ready state of one company page.
type PageState struct {
	PageID       string
	Company      *domain.Company
	Fundamentals *domain.Fundamentals
	LatestPrice  *float64
	Loading      domain.LoadingFlags
	Intraday     domain.IntradaySeries
	View         *domain.DerivedViewModel
	BuyingPower  decimal.Decimal
	Layout       domain.Layout
	Visibility   domain.Visibility
}

type page struct {
	id          string
	accountID   string
	layout      domain.Layout
	buyingPower decimal.Decimal
	orch        *PageOrchestrator

	subMu       sync.Mutex
	subscribers map[int]chan PageState
	nextSub     int
}

// PageService owns the open company pages.
type PageService struct {
	gateway   PriceFeedGateway
	companies domain.CompanyRepository
	accounts  domain.BuyingPowerSource
	calc      *ChangeCalculator
	gate      *RenderGate
	policy    RacePolicy
	logger    *zap.Logger
	timeNow   func() time.Time

	// Page subjects outlive the request that opened them.
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	pages map[string]*page
}

func NewPageService(gateway PriceFeedGateway, companies domain.CompanyRepository, accounts domain.BuyingPowerSource, calc *ChangeCalculator, policy RacePolicy, logger *zap.Logger) *PageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &PageService{
		gateway:   gateway,
		companies: companies,
		accounts:  accounts,
		calc:      calc,
		gate:      NewRenderGate(),
		policy:    policy,
		logger:    logger,
		timeNow:   time.Now,
		ctx:       ctx,
		cancel:    cancel,
		pages:     make(map[string]*page),
	}
	gateway.OnPriceUpdate(s.fanOutPrice)
	return s
}

// SetClock sets the clock handed to pages opened afterwards.
func (s *PageService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeNow = now
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (s *PageService) fanOutPrice(symbol string, price float64) {
	s.mu.RLock()
	pages := make([]*page, 0, len(s.pages))
	for _, p := range s.pages {
		pages = append(pages, p)
	}
	s.mu.RUnlock()

	for _, p := range pages {
		p.orch.HandlePriceUpdate(symbol, price)
	}
}

func (s *PageService) resolveCompany(ctx context.Context, symbol string) domain.Company {
	if s.companies == nil {
		return domain.Company{Symbol: symbol}
	}
	c, err := s.companies.GetCompany(ctx, symbol)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("Company lookup failed", zap.String("symbol", symbol), zap.Error(err))
		}
		return domain.Company{Symbol: symbol}
	}
	return *c
}

func (s *PageService) resolveBuyingPower(ctx context.Context, accountID string) decimal.Decimal {
	if s.accounts == nil || accountID == "" {
		return decimal.Zero
	}
	bp, err := s.accounts.GetBuyingPower(ctx, accountID)
	if err != nil {
		s.logger.Warn("Buying power unavailable", zap.String("account", accountID), zap.Error(err))
		return decimal.Zero
	}
	return bp
}

// Open creates a page for symbol and starts its fetches.
func (s *PageService) Open(ctx context.Context, symbol, accountID string, layout domain.Layout) (PageState, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return PageState{}, fmt.Errorf("open page: empty symbol")
	}
	if layout == "" {
		layout = domain.LayoutDesktop
	}

	p := &page{
		id:          uuid.NewString(),
		accountID:   accountID,
		layout:      layout,
		buyingPower: s.resolveBuyingPower(ctx, accountID),
		orch:        NewPageOrchestrator(s.gateway, s.calc, s.policy, s.logger),
		subscribers: make(map[int]chan PageState),
	}
	p.orch.OnChange(func() { s.publish(p) })

	s.mu.Lock()
	p.orch.SetClock(s.timeNow)
	s.pages[p.id] = p
	s.mu.Unlock()

	company := s.resolveCompany(ctx, symbol)
	s.logger.Info("Opened page", zap.String("page_id", p.id), zap.String("symbol", symbol), zap.String("layout", string(layout)))
	p.orch.Mount(s.ctx, company)
	return s.state(p), nil
}

// ChangeSymbol moves a page to a new subject. Results still in flight for the
// old symbol are discarded.
func (s *PageService) ChangeSymbol(ctx context.Context, id, symbol string) (PageState, error) {
	p, err := s.page(id)
	if err != nil {
		return PageState{}, err
	}
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return PageState{}, fmt.Errorf("change symbol: empty symbol")
	}
	if p.orch.Symbol() == symbol {
		return s.state(p), nil
	}
	company := s.resolveCompany(ctx, symbol)
	s.logger.Info("Changing page symbol", zap.String("page_id", id), zap.String("symbol", symbol))
	p.orch.Mount(s.ctx, company)
	return s.state(p), nil
}

// Close tears a page down and ends its subscriptions.
func (s *PageService) Close(id string) error {
	s.mu.Lock()
	p, ok := s.pages[id]
	if ok {
		delete(s.pages, id)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("close %s: %w", id, ErrPageNotFound)
	}

	p.orch.Unmount()
	p.subMu.Lock()
	for sid, ch := range p.subscribers {
		close(ch)
		delete(p.subscribers, sid)
	}
	p.subMu.Unlock()
	s.logger.Info("Closed page", zap.String("page_id", id))
	return nil
}

// Get returns the current state of a page.
func (s *PageService) Get(id string) (PageState, error) {
	p, err := s.page(id)
	if err != nil {
		return PageState{}, err
	}
	return s.state(p), nil
}

// ActiveSymbols lists the distinct symbols shown by open pages.
func (s *PageService) ActiveSymbols() []string {
	s.mu.RLock()
	seen := make(map[string]struct{})
	for _, p := range s.pages {
		if sym := p.orch.Symbol(); sym != "" {
			seen[sym] = struct{}{}
		}
	}
	s.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for sym := range seen {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Subscribe returns a channel receiving the page state after every change.
// Slow readers only see the latest state. cancel ends the subscription.
func (s *PageService) Subscribe(id string) (<-chan PageState, func(), error) {
	p, err := s.page(id)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan PageState, 1)
	ch <- s.state(p)

	p.subMu.Lock()
	sid := p.nextSub
	p.nextSub++
	p.subscribers[sid] = ch
	p.subMu.Unlock()

	cancel := func() {
		p.subMu.Lock()
		defer p.subMu.Unlock()
		if c, ok := p.subscribers[sid]; ok {
			close(c)
			delete(p.subscribers, sid)
		}
	}
	return ch, cancel, nil
}

// Wait blocks until every open page has no fetch in flight.
func (s *PageService) Wait() {
	s.mu.RLock()
	pages := make([]*page, 0, len(s.pages))
	for _, p := range s.pages {
		pages = append(pages, p)
	}
	s.mu.RUnlock()

	for _, p := range pages {
		p.orch.Wait()
	}
}

// Shutdown closes every page.
func (s *PageService) Shutdown() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.pages))
	for id := range s.pages {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		_ = s.Close(id)
	}
	s.cancel()
}

func (s *PageService) page(id string) (*page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[id]
	if !ok {
		return nil, fmt.Errorf("page %s: %w", id, ErrPageNotFound)
	}
	return p, nil
}

func (s *PageService) state(p *page) PageState {
	st := p.orch.State()
	return PageState{
		PageID:       p.id,
		Company:      st.Company,
		Fundamentals: st.Fundamentals,
		LatestPrice:  st.LatestPrice,
		Loading:      st.Loading,
		Intraday:     st.Intraday,
		View:         st.View,
		BuyingPower:  p.buyingPower,
		Layout:       p.layout,
		Visibility:   s.gate.Evaluate(st.Loading, p.layout),
	}
}

func (s *PageService) publish(p *page) {
	st := s.state(p)

	p.subMu.Lock()
	defer p.subMu.Unlock()
	for _, ch := range p.subscribers {
		// Drop the unread state; only the latest matters.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}
