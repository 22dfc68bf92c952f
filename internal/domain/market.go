package domain

import (
	"fmt"
	"time"
)

// IntradayKeyLayout is the key convention of an IntradaySeries: one entry per
// calendar minute in the market's local time.
const IntradayKeyLayout = "2006-01-02 15:04"

// IntradaySeries maps a minute key to the price at that minute.
type IntradaySeries map[string]float64

// Clone returns an independent copy of the series.
func (s IntradaySeries) Clone() IntradaySeries {
	if s == nil {
		return nil
	}
	out := make(IntradaySeries, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// OpenPrice looks up the session's opening price for the trading day of t.
// ok is false while the opening minute has not been recorded yet.
func (s IntradaySeries) OpenPrice(cal TradingCalendar, t time.Time) (price float64, ok bool) {
	price, ok = s[cal.OpenPriceKey(t)]
	return price, ok
}

// TradingCalendar normalizes instants to a market's local trading day.
type TradingCalendar struct {
	Location   *time.Location
	OpenHour   int
	OpenMinute int
}

// NewTradingCalendar builds a calendar for the given IANA zone and "HH:MM"
// session open.
func NewTradingCalendar(timezone, open string) (TradingCalendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return TradingCalendar{}, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}
	t, err := time.Parse("15:04", open)
	if err != nil {
		return TradingCalendar{}, fmt.Errorf("parsing session open %q: %w", open, err)
	}
	return TradingCalendar{Location: loc, OpenHour: t.Hour(), OpenMinute: t.Minute()}, nil
}

func (c TradingCalendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// In converts t to the market's local time.
func (c TradingCalendar) In(t time.Time) time.Time {
	return t.In(c.location())
}

// SessionOpen returns the session start on the local trading day of t.
func (c TradingCalendar) SessionOpen(t time.Time) time.Time {
	local := t.In(c.location())
	return time.Date(local.Year(), local.Month(), local.Day(), c.OpenHour, c.OpenMinute, 0, 0, c.location())
}

// Key formats t as an intraday series key.
func (c TradingCalendar) Key(t time.Time) string {
	return t.In(c.location()).Truncate(time.Minute).Format(IntradayKeyLayout)
}

// OpenPriceKey is the canonical key of the opening price for the trading day of t.
func (c TradingCalendar) OpenPriceKey(t time.Time) string {
	return c.SessionOpen(t).Format(IntradayKeyLayout)
}

// LoadingFlags are true while the corresponding feed has an unresolved fetch.
type LoadingFlags struct {
	Price        bool `json:"price"`
	Intraday     bool `json:"intraday"`
	Fundamentals bool `json:"fundamentals"`
}

// FeedSnapshot is a copy of the raw feed state held for one symbol.
type FeedSnapshot struct {
	Symbol       string
	LatestPrice  *float64
	Intraday     IntradaySeries
	Fundamentals *Fundamentals
	Loading      LoadingFlags
}
