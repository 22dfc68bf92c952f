package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/company_page/internal/domain"
	"github.com/vitos/company_page/internal/usecase"
)

// viewJSON carries the derived change. A non-finite percentage (zero open
// price) is sent as null with "n/a" text, since JSON has no Inf or NaN.
type viewJSON struct {
	DailyChange           float64  `json:"daily_change"`
	DailyChangePercentage *float64 `json:"daily_change_percentage"`
	IsPositive            bool     `json:"is_positive"`
	FillColor             string   `json:"fill_color"`
	Text                  string   `json:"text"`
}

type pageJSON struct {
	PageID          string                `json:"page_id"`
	Symbol          string                `json:"symbol"`
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	LatestPrice     *float64              `json:"latest_price"`
	PriceText       string                `json:"price_text"`
	Loading         domain.LoadingFlags   `json:"loading"`
	Intraday        domain.IntradaySeries `json:"intraday"`
	View            *viewJSON             `json:"view"`
	Fundamentals    *domain.Fundamentals  `json:"fundamentals"`
	BuyingPower     decimal.Decimal       `json:"buying_power"`
	BuyingPowerText string                `json:"buying_power_text"`
	Layout          domain.Layout         `json:"layout"`
	Visibility      domain.Visibility     `json:"visibility"`
}

func toPageJSON(st usecase.PageState) pageJSON {
	v := usecase.Present(st)
	out := pageJSON{
		PageID:          st.PageID,
		Symbol:          v.Symbol,
		Name:            v.Name,
		Description:     v.Description,
		LatestPrice:     st.LatestPrice,
		PriceText:       v.PriceText,
		Loading:         st.Loading,
		Intraday:        st.Intraday,
		Fundamentals:    st.Fundamentals,
		BuyingPower:     st.BuyingPower,
		BuyingPowerText: v.BuyingPowerText,
		Layout:          st.Layout,
		Visibility:      st.Visibility,
	}
	if st.View != nil {
		view := &viewJSON{
			DailyChange: st.View.DailyChange,
			IsPositive:  st.View.IsPositive,
			FillColor:   string(st.View.FillColor),
			Text:        v.ChangeText,
		}
		if st.View.PercentageFinite() {
			pct := st.View.DailyChangePercentage
			view.DailyChangePercentage = &pct
		}
		out.View = view
	}
	return out
}

type openPageRequest struct {
	Symbol    string `json:"symbol"`
	AccountID string `json:"account_id"`
	Layout    string `json:"layout"`
}

type changeSymbolRequest struct {
	Symbol string `json:"symbol"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleOpenPage(w http.ResponseWriter, r *http.Request) {
	var req openPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	st, err := s.pages.Open(r.Context(), req.Symbol, req.AccountID, domain.ParseLayout(req.Layout))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, toPageJSON(st))
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	st, err := s.pages.Get(r.PathValue("id"))
	if err != nil {
		s.writePageError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPageJSON(st))
}

func (s *Server) handleChangeSymbol(w http.ResponseWriter, r *http.Request) {
	var req changeSymbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	st, err := s.pages.ChangeSymbol(r.Context(), r.PathValue("id"), req.Symbol)
	if err != nil {
		s.writePageError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPageJSON(st))
}

func (s *Server) handleClosePage(w http.ResponseWriter, r *http.Request) {
	if err := s.pages.Close(r.PathValue("id")); err != nil {
		s.writePageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writePageError(w http.ResponseWriter, err error) {
	if errors.Is(err, usecase.ErrPageNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeError(w, http.StatusBadRequest, err.Error())
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if s.news == nil {
		s.writeJSON(w, http.StatusOK, []domain.NewsArticle{})
		return
	}
	articles, err := s.news.GetNews(r.Context(), r.PathValue("symbol"), s.newsLimit)
	if err != nil {
		s.logger.Error("Failed to fetch news", zap.String("symbol", r.PathValue("symbol")), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "news unavailable")
		return
	}
	if articles == nil {
		articles = []domain.NewsArticle{}
	}
	s.writeJSON(w, http.StatusOK, articles)
}
