package usecase

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vitos/company_page/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// ChangeCalculator derives the daily change bundle from a price and the
// intraday series. It holds no state besides the calendar.
type ChangeCalculator struct {
	calendar domain.TradingCalendar
}

func NewChangeCalculator(calendar domain.TradingCalendar) *ChangeCalculator {
	return &ChangeCalculator{calendar: calendar}
}

// Calendar returns the trading calendar used to locate the opening price.
func (c *ChangeCalculator) Calendar() domain.TradingCalendar {
	return c.calendar
}

// Ready reports whether Compute may be called for this series at ref.
func (c *ChangeCalculator) Ready(series domain.IntradaySeries, ref time.Time) bool {
	_, ok := series.OpenPrice(c.calendar, ref)
	return ok
}

// Compute returns the daily change of latestPrice against the session open
// found in series for the trading day of ref.
//
// The caller must check Ready first: a series without the opening minute is a
// programming error and panics. Figures are rounded to two places, half away
// from zero (4.995 -> 5.00). A zero open price yields a non-finite percentage,
// which is returned as is.
func (c *ChangeCalculator) Compute(latestPrice float64, series domain.IntradaySeries, ref time.Time) domain.DerivedViewModel {
	key := c.calendar.OpenPriceKey(ref)
	openPrice, ok := series[key]
	if !ok {
		panic(fmt.Sprintf("change calculator: intraday series has no opening price at %s", key))
	}

	latest := decimal.NewFromFloat(latestPrice)
	open := decimal.NewFromFloat(openPrice)
	change := latest.Sub(open)

	var pct float64
	if open.IsZero() {
		// decimal division by zero panics; float division gives the IEEE result.
		pct = change.InexactFloat64() / openPrice * 100
	} else {
		pct = change.Div(open).Mul(hundred).Round(2).InexactFloat64()
	}

	isPositive := change.Sign() >= 0
	fill := domain.FillColorLoss
	if isPositive {
		fill = domain.FillColorGain
	}

	return domain.DerivedViewModel{
		DailyChange:           change.Round(2).InexactFloat64(),
		DailyChangePercentage: pct,
		IsPositive:            isPositive,
		FillColor:             fill,
	}
}
