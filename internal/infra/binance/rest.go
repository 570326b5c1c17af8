package binance

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"pairs_go/internal/domain"

	"golang.org/x/time/rate"
)

const (
	DefaultRestURL  = "https://fapi.binance.com"
	tradesPath      = "/fapi/v1/trades"
	maxTradesLimit  = 1000
	defaultAttempts = 3

	// /fapi/v1/trades costs 5 weight of the 2400/min budget
	requestsPerSecond = 5
	requestBurst      = 2
)

// RestClient fetches recent trades to seed the tick buffers at startup
type RestClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	attempts   int
	baseDelay  time.Duration
}

var _ domain.TradeHistoryProvider = (*RestClient)(nil)

// NewRestClient creates a client for baseURL (DefaultRestURL when empty)
func NewRestClient(baseURL string) *RestClient {
	if baseURL == "" {
		baseURL = DefaultRestURL
	}
	return &RestClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		attempts:   defaultAttempts,
		baseDelay:  time.Second,
	}
}

// RecentTrades returns up to limit recent trades for symbol, oldest first.
// Transient failures are retried with exponential backoff: 1s, 2s, ...
func (c *RestClient) RecentTrades(ctx context.Context, symbol string, limit int) ([]domain.Tick, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, domain.ErrInvalidSymbol
	}
	if limit <= 0 || limit > maxTradesLimit {
		limit = maxTradesLimit
	}

	var lastErr error
	for i := 0; i < c.attempts; i++ {
		if i > 0 {
			delay := c.baseDelay * time.Duration(1<<uint(i-1))
			slog.Info("Retrying trade backfill",
				slog.String("symbol", symbol),
				slog.Int("attempt", i),
				slog.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		ticks, err := c.fetchTrades(ctx, symbol, limit)
		if err == nil {
			return ticks, nil
		}
		lastErr = err
		slog.Warn("Trade backfill attempt failed",
			slog.String("symbol", symbol),
			slog.Int("attempt", i+1),
			slog.Any("error", err),
		)
		if !domain.IsRetriable(err) {
			break
		}
	}
	return nil, lastErr
}

func (c *RestClient) fetchTrades(ctx context.Context, symbol string, limit int) ([]domain.Tick, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("symbol", strings.ToUpper(symbol))
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tradesPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, domain.NewFatalNetworkError("backfill", err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewNetworkError("backfill", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewNetworkError("backfill", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewStatusError("backfill", resp.StatusCode, truncate(body, 200))
	}

	var rows []restTrade
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, domain.NewFatalNetworkError("backfill", err)
	}

	ticks := make([]domain.Tick, 0, len(rows))
	for _, r := range rows {
		t, err := toTick(symbol, r.Price, r.Qty, r.Time)
		if err != nil {
			slog.Debug("Skipping malformed trade", slog.Int64("id", r.ID), slog.Any("error", err))
			continue
		}
		ticks = append(ticks, t)
	}
	sort.SliceStable(ticks, func(i, j int) bool { return ticks[i].Timestamp < ticks[j].Timestamp })
	return ticks, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
