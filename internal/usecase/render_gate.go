package usecase

import "github.com/vitos/company_page/internal/domain"

// RenderGate decides section visibility from the loading flags alone.
type RenderGate struct{}

func NewRenderGate() *RenderGate {
	return &RenderGate{}
}

// Evaluate is re-run on every state read; nothing is ever hidden permanently.
func (g *RenderGate) Evaluate(flags domain.LoadingFlags, _ domain.Layout) domain.Visibility {
	return domain.Visibility{
		CompanyName: true,
		Price:       !flags.Price,
		PriceChange: !(flags.Price || flags.Intraday),
		Chart:       !flags.Intraday,
		About:       true,
		// Both layouts keep the sidebar; it degrades on a stale or absent price itself.
		Sidebar:  true,
		Newsfeed: true,
	}
}
