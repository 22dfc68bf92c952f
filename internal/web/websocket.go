package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// handlePageStream pushes the page state after every change. With
// ?close=1 the page session ends together with the connection.
func (s *Server) handlePageStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	updates, cancel, err := s.pages.Subscribe(id)
	if err != nil {
		s.writePageError(w, err)
		return
	}
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", zap.String("page_id", id), zap.Error(err))
		return
	}
	defer conn.Close()

	if r.URL.Query().Get("close") == "1" {
		defer func() {
			if err := s.pages.Close(id); err == nil {
				s.logger.Info("Page closed with its stream", zap.String("page_id", id))
			}
		}()
	}

	// The reader only notices the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case st, ok := <-updates:
			if !ok {
				s.writeClose(conn, id)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(toPageJSON(st)); err != nil {
				s.logger.Debug("Page stream write failed", zap.String("page_id", id), zap.Error(err))
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// writeClose tells the client the page session ended.
func (s *Server) writeClose(conn *websocket.Conn, id string) {
	err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "page closed"),
		time.Now().Add(writeWait))
	if err != nil {
		s.logger.Debug("Page stream close failed", zap.String("page_id", id), zap.Error(err))
	}
}
