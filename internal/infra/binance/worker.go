// Package binance streams USD-M futures trades and backfills recent history.
package binance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"pairs_go/internal/domain"
	"pairs_go/internal/infra"

	"github.com/gorilla/websocket"
)

const (
	DefaultWSURL   = "wss://fstream.binance.com/stream"
	baseDelay      = 1 * time.Second
	maxRetries     = 10
	readLimitBytes = 1 << 20
)

// Options tunes the websocket worker. Zero values use defaults.
type Options struct {
	WSURL            string
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	MaxBackoff       time.Duration
}

func (o *Options) applyDefaults() {
	if o.WSURL == "" {
		o.WSURL = DefaultWSURL
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 60 * time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 60 * time.Second
	}
}

// Worker handles the Binance combined trade stream for a set of symbols.
// Ticks are handed to the sink; it reconnects with exponential backoff.
type Worker struct {
	symbols   []string
	sink      domain.TickSink
	opts      Options
	conn      *websocket.Conn
	mu        sync.RWMutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

var _ domain.ExchangeWorker = (*Worker)(nil)

// NewWorker creates a new Binance worker
func NewWorker(symbols []string, sink domain.TickSink, opts Options) *Worker {
	opts.applyDefaults()
	return &Worker{
		symbols: symbols,
		sink:    sink,
		opts:    opts,
	}
}

// Connect starts the WebSocket connection with automatic reconnection
func (w *Worker) Connect(ctx context.Context) error {
	if len(w.symbols) == 0 {
		return fmt.Errorf("%w: no symbols to stream", domain.ErrInvalidSymbol)
	}
	if w.sink == nil {
		return errors.New("binance worker: nil tick sink")
	}

	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.connectionLoop(ctx)

	return nil
}

// connectionLoop handles connection and reconnection with exponential backoff
func (w *Worker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Binance panic recovered", slog.Any("panic", r))
		}
	}()

	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			slog.Info("Binance connection loop stopped")
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			infra.GlobalMetrics.RecordError()
			slog.Warn("Binance connection failed",
				slog.Any("error", err),
				slog.Int("retry", retryCount),
			)

			delay := w.calculateBackoff(retryCount)
			retryCount++
			if retryCount > maxRetries {
				slog.Error("Binance max retries exceeded, resetting counter")
				retryCount = 0
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				infra.GlobalMetrics.RecordReconnect()
				continue
			}
		}

		retryCount = 0
		w.readLoop(ctx)
	}
}

// calculateBackoff returns the delay for the current retry attempt
func (w *Worker) calculateBackoff(retryCount int) time.Duration {
	delay := baseDelay * time.Duration(math.Pow(2, float64(retryCount)))
	if delay > w.opts.MaxBackoff || delay <= 0 {
		delay = w.opts.MaxBackoff
	}
	return delay
}

// connect dials the combined stream. No subscribe message is needed.
func (w *Worker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: w.opts.HandshakeTimeout,
	}

	header := make(http.Header)
	header.Add("User-Agent", DefaultUserAgent)

	url := StreamURL(w.opts.WSURL, w.symbols)
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return domain.NewNetworkError("dial", fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err))
	}
	conn.SetReadLimit(readLimitBytes)

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()
	infra.GlobalMetrics.IncrementConnections()

	slog.Info("Binance WebSocket connected",
		slog.String("url", url),
		slog.Int("symbols", len(w.symbols)),
	)
	return nil
}

// readLoop reads messages from WebSocket until an error or cancellation
func (w *Worker) readLoop(ctx context.Context) {
	stop := context.AfterFunc(ctx, w.closeConnection)
	defer stop()

	for {
		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()

		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(w.opts.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Binance WebSocket read error", slog.Any("error", err))
			}
			w.closeConnection()
			return
		}

		w.handleMessage(message)
	}
}

// handleMessage parses a trade and forwards it to the sink
func (w *Worker) handleMessage(message []byte) {
	tick, err := ParseTradeMessage(message)
	if err != nil {
		if !errors.Is(err, errNotTrade) {
			slog.Debug("Binance message parse error", slog.Any("error", err))
		}
		return
	}
	w.sink.Ingest(tick)
}

// closeConnection safely closes the WebSocket connection
func (w *Worker) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
		infra.GlobalMetrics.DecrementConnections()
	}
	w.connected = false
}

// Disconnect closes the WebSocket connection
func (w *Worker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
	slog.Info("Binance WebSocket disconnected")
}

// IsConnected returns connection status
func (w *Worker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}
