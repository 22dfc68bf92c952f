package domain

// Company is the subject of a page: its symbol plus the display facts known
// before fundamentals arrive.
type Company struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Fundamentals are descriptive company facts. No computation is done on them;
// they are passed through to the About section as-is.
type Fundamentals struct {
	Symbol             string  `json:"symbol"`
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	CEO                string  `json:"ceo"`
	MarketCap          float64 `json:"market_cap"`
	Employees          int     `json:"employees"`
	PriceEarningsRatio float64 `json:"price_earnings_ratio"`
	Headquarters       string  `json:"headquarters"`
	DividendYield      float64 `json:"dividend_yield"`
	Founded            int     `json:"founded"`
	AverageVolume      float64 `json:"average_volume"`
	Exchange           string  `json:"exchange"`
	Industry           string  `json:"industry"`
}

// NewsArticle is a single newsfeed entry.
type NewsArticle struct {
	Headline  string `json:"headline"`
	Summary   string `json:"summary"`
	URL       string `json:"url"`
	Source    string `json:"source"`
	CreatedAt int64  `json:"created_at"` // Unix ms
}
