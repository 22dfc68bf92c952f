package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vitos/company_page/internal/domain"
	"github.com/vitos/company_page/internal/usecase"
)

type Server struct {
	router    *http.ServeMux
	server    *http.Server
	pages     *usecase.PageService
	companies domain.CompanyRepository
	news      domain.NewsProvider
	newsLimit int
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

func NewServer(
	port int,
	pages *usecase.PageService,
	companies domain.CompanyRepository,
	news domain.NewsProvider,
	newsLimit int,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		pages:     pages,
		companies: companies,
		news:      news,
		newsLimit: newsLimit,
		logger:    logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Landing Page
	s.router.HandleFunc("GET /{$}", s.handleLanding)

	// Company page
	s.router.HandleFunc("GET /company/{symbol}", s.handleCompanyPage)

	// Page sessions
	s.router.HandleFunc("POST /api/pages", s.handleOpenPage)
	s.router.HandleFunc("GET /api/pages/{id}", s.handleGetPage)
	s.router.HandleFunc("PUT /api/pages/{id}/symbol", s.handleChangeSymbol)
	s.router.HandleFunc("DELETE /api/pages/{id}", s.handleClosePage)

	// Live updates
	s.router.HandleFunc("GET /ws/pages/{id}", s.handlePageStream)

	// Newsfeed
	s.router.HandleFunc("GET /api/company/{symbol}/news", s.handleNews)

	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
