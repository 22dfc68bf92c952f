package marketdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const AlpacaStreamURL = "wss://stream.data.alpaca.markets/v2/iex"

// streamMessage is one element of the arrays the Alpaca data stream sends.
type streamMessage struct {
	Type   string  `json:"T"`
	Symbol string  `json:"S"`
	Price  float64 `json:"p"`
	Msg    string  `json:"msg"`
	Code   int     `json:"code"`
}

// TradeStream pushes last-trade prices from the Alpaca websocket feed.
type TradeStream struct {
	url       string
	apiKey    string
	apiSecret string
	logger    *zap.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	callbacks  []func(symbol string, price float64)
	subscribed map[string]bool
}

func NewTradeStream(url, apiKey, apiSecret string, logger *zap.Logger) *TradeStream {
	if url == "" {
		url = AlpacaStreamURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TradeStream{
		url:        url,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		logger:     logger,
		subscribed: make(map[string]bool),
	}
}

func (s *TradeStream) OnPriceUpdate(callback func(symbol string, price float64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, callback)
}

// connect dials and authenticates. Called with s.mu held.
func (s *TradeStream) connect() error {
	c, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	auth := map[string]string{
		"action": "auth",
		"key":    s.apiKey,
		"secret": s.apiSecret,
	}
	if err := c.WriteJSON(auth); err != nil {
		c.Close()
		return fmt.Errorf("auth: %w", err)
	}
	s.conn = c
	go s.readLoop(c)
	return nil
}

// Subscribe adds trade subscriptions, connecting first if needed.
func (s *TradeStream) Subscribe(symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []string
	for _, sym := range symbols {
		if !s.subscribed[sym] {
			fresh = append(fresh, sym)
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	if s.conn == nil {
		if err := s.connect(); err != nil {
			return err
		}
	}
	sort.Strings(fresh)
	subMsg := map[string]interface{}{
		"action": "subscribe",
		"trades": fresh,
	}
	if err := s.conn.WriteJSON(subMsg); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	for _, sym := range fresh {
		s.subscribed[sym] = true
	}
	return nil
}

func (s *TradeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.subscribed = make(map[string]bool)
	return err
}

func (s *TradeStream) readLoop(c *websocket.Conn) {
	defer func() {
		c.Close()
		s.mu.Lock()
		if s.conn == c {
			s.conn = nil
			s.subscribed = make(map[string]bool)
		}
		s.mu.Unlock()
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				s.logger.Info("Trade stream closed", zap.Error(err))
			}
			return
		}

		var batch []streamMessage
		if err := json.Unmarshal(message, &batch); err != nil {
			s.logger.Warn("Trade stream unmarshal error", zap.Error(err))
			continue
		}

		for _, m := range batch {
			switch m.Type {
			case "t":
				s.dispatch(m.Symbol, m.Price)
			case "error":
				s.logger.Error("Trade stream error", zap.Int("code", m.Code), zap.String("msg", m.Msg))
			default:
				s.logger.Debug("Trade stream control message", zap.String("type", m.Type), zap.String("msg", m.Msg))
			}
		}
	}
}

func (s *TradeStream) dispatch(symbol string, price float64) {
	s.mu.Lock()
	callbacks := make([]func(string, float64), len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(symbol, price)
	}
}
