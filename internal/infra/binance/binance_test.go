package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pairs_go/internal/domain"

	"github.com/gorilla/websocket"
)

type collectSink struct {
	mu    sync.Mutex
	ticks []domain.Tick
}

func (s *collectSink) Ingest(t domain.Tick) {
	s.mu.Lock()
	s.ticks = append(s.ticks, t)
	s.mu.Unlock()
}

func (s *collectSink) snapshot() []domain.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Tick(nil), s.ticks...)
}

const tradeMsg = `{"stream":"btcusdt@trade","data":{"e":"trade","E":1700000000123,"T":1700000000120,"s":"BTCUSDT","t":4242,"p":"37012.50","q":"0.015","X":"MARKET","m":true}}`

func TestParseTradeMessage(t *testing.T) {
	tick, err := ParseTradeMessage([]byte(tradeMsg))
	if err != nil {
		t.Fatalf("ParseTradeMessage failed: %v", err)
	}
	want := domain.Tick{Symbol: "btcusdt", Price: 37012.5, Quantity: 0.015, Timestamp: 1700000000120}
	if tick != want {
		t.Errorf("tick = %+v, want %+v", tick, want)
	}

	tests := []struct {
		name     string
		msg      string
		notTrade bool
	}{
		{"invalid json", `{"stream":`, false},
		{"non trade event", `{"stream":"btcusdt@aggTrade","data":{"e":"aggTrade"}}`, true},
		{"subscription ack", `{"result":null,"id":1}`, true},
		{"bad price", `{"stream":"x@trade","data":{"e":"trade","s":"X","p":"abc","q":"1","T":1}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTradeMessage([]byte(tt.msg))
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, errNotTrade) != tt.notTrade {
				t.Errorf("errNotTrade = %v, want %v (err %v)", !tt.notTrade, tt.notTrade, err)
			}
		})
	}
}

func TestStreamURL(t *testing.T) {
	got := StreamURL("wss://fstream.binance.com/stream", []string{"BTCUSDT", " ethusdt"})
	want := "wss://fstream.binance.com/stream?streams=btcusdt@trade/ethusdt@trade"
	if got != want {
		t.Errorf("StreamURL = %s, want %s", got, want)
	}
}

func TestCalculateBackoff(t *testing.T) {
	w := NewWorker([]string{"btcusdt"}, &collectSink{}, Options{MaxBackoff: 10 * time.Second})

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second},
		{40, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := w.calculateBackoff(tt.retry); got != tt.want {
			t.Errorf("calculateBackoff(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}

func TestWorker_StreamsTicks(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var gotStreams atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStreams.Store(r.URL.Query().Get("streams"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(tradeMsg))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"stream":"ethusdt@trade","data":{"e":"trade","s":"ETHUSDT","p":"2034.17","q":"1.2","T":1700000000200}}`))
		// hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	sink := &collectSink{}
	w := NewWorker([]string{"btcusdt", "ethusdt"}, sink, Options{
		WSURL:       "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream",
		ReadTimeout: 5 * time.Second,
	})
	if err := w.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer w.Disconnect()

	deadline := time.Now().Add(2 * time.Second)
	for len(sink.snapshot()) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	ticks := sink.snapshot()
	if len(ticks) != 2 {
		t.Fatalf("got %d ticks, want 2", len(ticks))
	}
	if ticks[1].Symbol != "ethusdt" || ticks[1].Price != 2034.17 {
		t.Errorf("second tick = %+v", ticks[1])
	}
	if s, _ := gotStreams.Load().(string); s != "btcusdt@trade/ethusdt@trade" {
		t.Errorf("streams query = %q", s)
	}
	if !w.IsConnected() {
		t.Error("worker should report connected")
	}
}

func TestWorker_ConnectValidation(t *testing.T) {
	if err := NewWorker(nil, &collectSink{}, Options{}).Connect(context.Background()); !errors.Is(err, domain.ErrInvalidSymbol) {
		t.Errorf("err = %v, want ErrInvalidSymbol", err)
	}
	if err := NewWorker([]string{"btcusdt"}, nil, Options{}).Connect(context.Background()); err == nil {
		t.Error("expected error for nil sink")
	}
}

func TestRestClient_RecentTrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/trades" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("symbol") != "ETHUSDT" || r.URL.Query().Get("limit") != "2" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":2,"price":"2034.20","qty":"0.5","quoteQty":"1017.1","time":1700000000500,"isBuyerMaker":false},
			{"id":1,"price":"2034.10","qty":"1.0","quoteQty":"2034.1","time":1700000000100,"isBuyerMaker":true}
		]`))
	}))
	defer srv.Close()

	c := NewRestClient(srv.URL)
	ticks, err := c.RecentTrades(context.Background(), "ethusdt", 2)
	if err != nil {
		t.Fatalf("RecentTrades failed: %v", err)
	}
	if len(ticks) != 2 {
		t.Fatalf("got %d ticks", len(ticks))
	}
	if ticks[0].Timestamp != 1700000000100 || ticks[0].Price != 2034.1 || ticks[0].Symbol != "ethusdt" {
		t.Errorf("ticks should be sorted oldest first: %+v", ticks)
	}
}

func TestRestClient_Retry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"id":1,"price":"1","qty":"1","time":1}]`))
	}))
	defer srv.Close()

	c := NewRestClient(srv.URL)
	c.baseDelay = time.Millisecond

	ticks, err := c.RecentTrades(context.Background(), "btcusdt", 10)
	if err != nil {
		t.Fatalf("RecentTrades failed: %v", err)
	}
	if len(ticks) != 1 || calls.Load() != 3 {
		t.Errorf("ticks=%d calls=%d, want 1 and 3", len(ticks), calls.Load())
	}
}

func TestRestClient_FatalStatusStopsRetrying(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewRestClient(srv.URL)
	c.baseDelay = time.Millisecond

	_, err := c.RecentTrades(context.Background(), "nopeusdt", 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.IsRetriable(err) {
		t.Error("400 should not be retriable")
	}
	var netErr *domain.NetworkError
	if !errors.As(err, &netErr) || netErr.StatusCode != http.StatusBadRequest {
		t.Errorf("err = %v, want NetworkError with status 400", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewRestClient(srv.URL)
	c.baseDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.RecentTrades(ctx, "btcusdt", 10); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}
