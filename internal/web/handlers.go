package web

import (
	"html/template"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/vitos/company_page/internal/domain"
	"github.com/vitos/company_page/internal/usecase"
)

// Templates
var templates *template.Template

func InitTemplates(dir string) error {
	var err error
	templates, err = template.ParseGlob(filepath.Join(dir, "*.html"))
	return err
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	var companies []*domain.Company
	if s.companies != nil {
		list, err := s.companies.ListCompanies(r.Context())
		if err != nil {
			s.logger.Error("Failed to list companies", zap.Error(err))
		}
		companies = list
	}

	data := map[string]interface{}{
		"Companies": companies,
	}
	if err := templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Error("Template error", zap.Error(err))
		http.Error(w, "Internal Server Error", 500)
	}
}

// handleCompanyPage opens a page session and renders its current state. The
// page script then follows /ws/pages/{id}, which closes the session when the
// browser goes away.
func (s *Server) handleCompanyPage(w http.ResponseWriter, r *http.Request) {
	layout := domain.ParseLayout(r.URL.Query().Get("layout"))
	account := r.URL.Query().Get("account")

	st, err := s.pages.Open(r.Context(), r.PathValue("symbol"), account, layout)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := map[string]interface{}{
		"Page":   usecase.Present(st),
		"Layout": string(st.Layout),
	}
	if err := templates.ExecuteTemplate(w, "company.html", data); err != nil {
		s.logger.Error("Template error", zap.Error(err))
		http.Error(w, "Internal Server Error", 500)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("<div>System OK</div>"))
}
