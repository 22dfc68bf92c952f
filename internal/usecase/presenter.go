package usecase

import (
	"math"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/vitos/company_page/internal/domain"
)

const notAvailable = "n/a"

// FormatPrice renders an amount as en-US dollars: $1,234.50.
func FormatPrice(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// FormatPercentage renders a percentage with two decimals, or n/a.
func FormatPercentage(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}

// FormatChange renders the header change line: +$5.00 (4.99%).
func FormatChange(v domain.DerivedViewModel) string {
	sign := "+"
	if !v.IsPositive {
		sign = "-"
	}
	return sign + FormatPrice(math.Abs(v.DailyChange)) + " (" + FormatPercentage(v.DailyChangePercentage) + ")"
}

// PageView is a PageState reduced to display strings.
type PageView struct {
	PageID          string
	Symbol          string
	Name            string
	Description     string
	PriceText       string
	ChangeText      string
	FillColor       string
	BuyingPowerText string
	Facts           []Fact
	Visibility      domain.Visibility
}

// Fact is one labelled line of the About section.
type Fact struct {
	Label string
	Value string
}

// Present converts a page state into display strings.
func Present(st PageState) PageView {
	v := PageView{
		PageID:          st.PageID,
		BuyingPowerText: FormatPrice(st.BuyingPower.InexactFloat64()),
		Visibility:      st.Visibility,
	}
	if st.Company != nil {
		v.Symbol = st.Company.Symbol
		v.Name = st.Company.Name
		v.Description = st.Company.Description
	}
	if st.LatestPrice != nil {
		v.PriceText = FormatPrice(*st.LatestPrice)
	}
	if st.View != nil {
		v.ChangeText = FormatChange(*st.View)
		v.FillColor = string(st.View.FillColor)
	}
	if f := st.Fundamentals; f != nil {
		if v.Name == "" {
			v.Name = f.Name
		}
		if v.Description == "" {
			v.Description = f.Description
		}
		v.Facts = aboutFacts(f)
	}
	return v
}

func aboutFacts(f *domain.Fundamentals) []Fact {
	var facts []Fact
	add := func(label, value string) {
		if value != "" {
			facts = append(facts, Fact{Label: label, Value: value})
		}
	}
	add("CEO", f.CEO)
	if f.Employees > 0 {
		add("Employees", humanize.Comma(int64(f.Employees)))
	}
	add("Headquarters", f.Headquarters)
	if f.Founded > 0 {
		add("Founded", strconv.Itoa(f.Founded))
	}
	if f.MarketCap > 0 {
		add("Market Cap", "$"+humanize.SIWithDigits(f.MarketCap, 2, ""))
	}
	if f.PriceEarningsRatio != 0 {
		add("Price-Earnings Ratio", strconv.FormatFloat(f.PriceEarningsRatio, 'f', 2, 64))
	}
	if f.DividendYield != 0 {
		add("Dividend Yield", FormatPercentage(f.DividendYield))
	}
	if f.AverageVolume > 0 {
		add("Average Volume", humanize.SIWithDigits(f.AverageVolume, 2, ""))
	}
	add("Exchange", f.Exchange)
	add("Industry", f.Industry)
	return facts
}
