package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/company_page/internal/domain"
)

// PageGateway is the slice of the market data gateway a page needs.
type PageGateway interface {
	FetchLatestPrice(ctx context.Context, symbol string) error
	FetchIntraday(ctx context.Context, symbol string) (domain.IntradaySeries, error)
	FetchFundamentals(ctx context.Context, symbol string) error
	Snapshot(symbol string) domain.FeedSnapshot
}

// RacePolicy decides which of two overlapping intraday results for the same
// subject is kept.
type RacePolicy string

const (
	// RaceLatestIssued keeps the result of the most recently issued request.
	RaceLatestIssued RacePolicy = "latest_issued"
	// RaceLastResolved keeps whichever result arrives last.
	RaceLastResolved RacePolicy = "last_resolved"
)

func ParseRacePolicy(s string) (RacePolicy, error) {
	switch RacePolicy(s) {
	case "", RaceLatestIssued:
		return RaceLatestIssued, nil
	case RaceLastResolved:
		return RaceLastResolved, nil
	default:
		return "", fmt.Errorf("unknown race policy %q", s)
	}
}

// SubjectState is what the orchestrator knows about its current subject.
type SubjectState struct {
	Company      *domain.Company
	Fundamentals *domain.Fundamentals
	LatestPrice  *float64
	Loading      domain.LoadingFlags
	Intraday     domain.IntradaySeries
	View         *domain.DerivedViewModel
}

// PageOrchestrator drives data acquisition for one subject at a time and is
// the only caller of the ChangeCalculator.
type PageOrchestrator struct {
	gateway PageGateway
	calc    *ChangeCalculator
	policy  RacePolicy
	logger  *zap.Logger
	timeNow func() time.Time

	mu          sync.Mutex
	company     *domain.Company
	ctx         context.Context
	cancel      context.CancelFunc
	generation  uint64
	intradaySeq uint64
	appliedSeq  uint64
	awaiting    domain.LoadingFlags
	lastPrice   *float64
	// At most one price-driven intraday refetch is in flight; price changes
	// seen meanwhile are folded into a single follow-up.
	refetching    bool
	refetchQueued bool
	series      domain.IntradaySeries
	view        *domain.DerivedViewModel
	listeners   []func()

	wg sync.WaitGroup
}

func NewPageOrchestrator(gateway PageGateway, calc *ChangeCalculator, policy RacePolicy, logger *zap.Logger) *PageOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == "" {
		policy = RaceLatestIssued
	}
	return &PageOrchestrator{
		gateway: gateway,
		calc:    calc,
		policy:  policy,
		logger:  logger,
		timeNow: time.Now,
	}
}

// SetClock replaces the clock used as the reference instant for recomputation.
func (o *PageOrchestrator) SetClock(now func() time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.timeNow = now
}

// OnChange registers a callback fired after every state change.
func (o *PageOrchestrator) OnChange(callback func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, callback)
}

func (o *PageOrchestrator) notify() {
	o.mu.Lock()
	listeners := make([]func(), len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()

	for _, cb := range listeners {
		cb()
	}
}

// Mount tears down the current subject and starts acquisition for company.
// The three fetches run concurrently; Mount does not wait for them.
func (o *PageOrchestrator) Mount(ctx context.Context, company domain.Company) {
	o.mu.Lock()
	o.teardownLocked()
	o.company = &company
	o.ctx, o.cancel = context.WithCancel(ctx)
	o.awaiting = domain.LoadingFlags{Price: true, Intraday: true, Fundamentals: true}
	gen, subjectCtx := o.generation, o.ctx
	o.mu.Unlock()

	o.logger.Info("Mounting page subject", zap.String("symbol", company.Symbol), zap.Uint64("generation", gen))
	o.notify()

	o.goFetchPrice(subjectCtx, gen, company.Symbol)
	o.goFetchFundamentals(subjectCtx, gen, company.Symbol)
	o.issueIntraday(gen, false)
}

// Unmount drops the current subject. Fetches still in flight are discarded
// when they complete.
func (o *PageOrchestrator) Unmount() {
	o.mu.Lock()
	o.teardownLocked()
	o.mu.Unlock()
	o.notify()
}

// teardownLocked must be called with o.mu held.
func (o *PageOrchestrator) teardownLocked() {
	if o.cancel != nil {
		o.cancel()
	}
	o.generation++
	o.company = nil
	o.ctx, o.cancel = nil, nil
	o.intradaySeq, o.appliedSeq = 0, 0
	o.awaiting = domain.LoadingFlags{}
	o.lastPrice = nil
	o.refetching, o.refetchQueued = false, false
	o.series = nil
	o.view = nil
}

// Wait blocks until every fetch issued so far has completed.
func (o *PageOrchestrator) Wait() {
	o.wg.Wait()
}

// current reports whether gen is still the live generation. Called with o.mu held.
func (o *PageOrchestrator) current(gen uint64) bool {
	return o.company != nil && gen == o.generation
}

func (o *PageOrchestrator) goFetchPrice(ctx context.Context, gen uint64, symbol string) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		err := o.gateway.FetchLatestPrice(ctx, symbol)

		o.mu.Lock()
		if !o.current(gen) {
			o.mu.Unlock()
			return
		}
		o.awaiting.Price = false
		o.mu.Unlock()

		if err != nil {
			o.logger.Warn("Latest price unavailable", zap.String("symbol", symbol), zap.Error(err))
			o.notify()
			return
		}
		if price := o.gateway.Snapshot(symbol).LatestPrice; price != nil {
			o.HandlePriceUpdate(symbol, *price)
		}
		o.notify()
	}()
}

func (o *PageOrchestrator) goFetchFundamentals(ctx context.Context, gen uint64, symbol string) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		err := o.gateway.FetchFundamentals(ctx, symbol)

		o.mu.Lock()
		if !o.current(gen) {
			o.mu.Unlock()
			return
		}
		o.awaiting.Fundamentals = false
		o.mu.Unlock()

		if err != nil {
			o.logger.Warn("Fundamentals unavailable", zap.String("symbol", symbol), zap.Error(err))
		}
		o.notify()
	}()
}

// issueIntraday starts a tagged intraday fetch for generation gen. refetch
// marks fetches issued on a price change.
func (o *PageOrchestrator) issueIntraday(gen uint64, refetch bool) {
	o.mu.Lock()
	if !o.current(gen) {
		o.mu.Unlock()
		return
	}
	o.intradaySeq++
	seq := o.intradaySeq
	symbol := o.company.Symbol
	ctx := o.ctx
	o.awaiting.Intraday = true
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		series, err := o.gateway.FetchIntraday(ctx, symbol)
		if o.applyIntraday(gen, seq, symbol, series, err) {
			o.notify()
		}
		if refetch && o.finishRefetch(gen) {
			o.issueIntraday(gen, true)
		}
	}()
}

// finishRefetch ends the in-flight refetch and reports whether a queued one
// should be issued now.
func (o *PageOrchestrator) finishRefetch(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.current(gen) {
		return false
	}
	if o.refetchQueued {
		o.refetchQueued = false
		return true
	}
	o.refetching = false
	return false
}

func (o *PageOrchestrator) applyIntraday(gen, seq uint64, symbol string, series domain.IntradaySeries, err error) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.current(gen) {
		o.logger.Debug("Discarding intraday for previous subject",
			zap.String("symbol", symbol), zap.Uint64("generation", gen))
		return false
	}
	if seq == o.intradaySeq && !o.refetchQueued {
		o.awaiting.Intraday = false
	}
	if err != nil {
		o.logger.Warn("Intraday series unavailable", zap.String("symbol", symbol), zap.Error(err))
		return true
	}
	if o.policy == RaceLatestIssued && seq < o.appliedSeq {
		o.logger.Debug("Discarding superseded intraday",
			zap.String("symbol", symbol), zap.Uint64("seq", seq), zap.Uint64("applied", o.appliedSeq))
		return false
	}
	o.appliedSeq = seq
	o.series = series
	o.recomputeLocked()
	return true
}

// recomputeLocked replaces the view model when both the price and the opening
// reference are known. Called with o.mu held.
func (o *PageOrchestrator) recomputeLocked() {
	symbol := o.company.Symbol
	price := o.gateway.Snapshot(symbol).LatestPrice
	ref := o.timeNow()

	if price == nil {
		o.logger.Debug("Latest price not known yet, skipping recompute", zap.String("symbol", symbol))
		return
	}
	if !o.calc.Ready(o.series, ref) {
		o.logger.Debug("Opening price not recorded yet, skipping recompute",
			zap.String("symbol", symbol), zap.String("key", o.calc.Calendar().OpenPriceKey(ref)))
		return
	}
	view := o.calc.Compute(*price, o.series, ref)
	o.view = &view
}

// HandlePriceUpdate re-issues the intraday fetch when the latest price of the
// current subject differs from the last one observed. While a refetch is in
// flight further changes queue one follow-up instead.
func (o *PageOrchestrator) HandlePriceUpdate(symbol string, price float64) {
	o.mu.Lock()
	if o.company == nil || o.company.Symbol != symbol {
		o.mu.Unlock()
		return
	}
	if o.lastPrice != nil && *o.lastPrice == price {
		o.mu.Unlock()
		return
	}
	o.lastPrice = &price
	gen := o.generation
	if o.refetching {
		o.refetchQueued = true
		o.mu.Unlock()
		return
	}
	o.refetching = true
	o.mu.Unlock()

	o.issueIntraday(gen, true)
	o.notify()
}

// Symbol returns the current subject's symbol, or "" when nothing is mounted.
func (o *PageOrchestrator) Symbol() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.company == nil {
		return ""
	}
	return o.company.Symbol
}

// State returns a copy of the current subject state. Loading flags combine the
// gateway's flags with fetches this page has issued but not seen complete.
func (o *PageOrchestrator) State() SubjectState {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.company == nil {
		return SubjectState{}
	}
	company := *o.company
	snap := o.gateway.Snapshot(company.Symbol)

	st := SubjectState{
		Company:      &company,
		Fundamentals: snap.Fundamentals,
		LatestPrice:  snap.LatestPrice,
		Intraday:     o.series.Clone(),
		Loading: domain.LoadingFlags{
			Price:        snap.Loading.Price || o.awaiting.Price,
			Intraday:     snap.Loading.Intraday || o.awaiting.Intraday,
			Fundamentals: snap.Loading.Fundamentals || o.awaiting.Fundamentals,
		},
	}
	if o.view != nil {
		v := *o.view
		st.View = &v
	}
	return st
}
