package domain

import (
	"math"
	"strconv"
)

// FillColor is the chart/sidebar accent for the day's direction.
type FillColor string

const (
	FillColorGain FillColor = "#30cd9a"
	FillColorLoss FillColor = "#f68f7c"
)

// DerivedViewModel is the computed change bundle. It is replaced as a whole on
// every recomputation, never patched.
type DerivedViewModel struct {
	DailyChange           float64
	DailyChangePercentage float64 // may be ±Inf or NaN when the open price is zero
	IsPositive            bool
	FillColor             FillColor
}

// DailyChangeText renders the change with exactly two decimals.
func (v DerivedViewModel) DailyChangeText() string {
	return strconv.FormatFloat(v.DailyChange, 'f', 2, 64)
}

// PercentageText renders the percentage with two decimals; non-finite values
// are rendered as Go formats them ("+Inf", "NaN").
func (v DerivedViewModel) PercentageText() string {
	return strconv.FormatFloat(v.DailyChangePercentage, 'f', 2, 64)
}

// PercentageFinite reports whether the percentage is a displayable number.
func (v DerivedViewModel) PercentageFinite() bool {
	return !math.IsInf(v.DailyChangePercentage, 0) && !math.IsNaN(v.DailyChangePercentage)
}

// Layout is the page layout variant the render gate evaluates for.
type Layout string

const (
	LayoutDesktop Layout = "desktop"
	LayoutCompact Layout = "compact"
)

// ParseLayout maps unknown values to desktop.
func ParseLayout(s string) Layout {
	if Layout(s) == LayoutCompact {
		return LayoutCompact
	}
	return LayoutDesktop
}

// Visibility says which page sections may be rendered right now.
type Visibility struct {
	CompanyName bool `json:"company_name"`
	Price       bool `json:"price"`
	PriceChange bool `json:"price_change"`
	Chart       bool `json:"chart"`
	About       bool `json:"about"`
	Sidebar     bool `json:"sidebar"`
	Newsfeed    bool `json:"newsfeed"`
}
