package api

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"pairs_go/internal/analytics"
	"pairs_go/internal/domain"
	"pairs_go/internal/engine"
	"pairs_go/internal/export"
	"pairs_go/internal/infra"

	"github.com/gin-gonic/gin"
)

// AnalyticsReader is the read/write surface of the analytics service
type AnalyticsReader interface {
	Latest() (*domain.Report, bool)
	Backtest() (domain.TradeResult, []domain.Trade)
	Alerts() []domain.Alert
	ClearAlerts()
	Params() analytics.Params
	UpdateParams(ctx context.Context, p analytics.Params) error
}

// StatusProvider exposes the recompute loop state
type StatusProvider interface {
	Status() engine.Status
}

// FeedControl starts, stops and retargets the live feed
type FeedControl interface {
	Pair() (string, string)
	Collecting() bool
	IsConnected() bool
	Start() error
	Stop()
	SwitchPair(ctx context.Context, symbolA, symbolB string) error
}

// CoinLister lists the instruments with synced metadata
type CoinLister interface {
	ActiveCoins() ([]domain.CoinInfo, error)
}

// Handler serves the /api/v1 routes
type Handler struct {
	svc     AnalyticsReader
	monitor StatusProvider
	feed    FeedControl // optional
	coins   CoinLister  // optional
	now     func() time.Time
}

// NewHandler creates a handler. feed and coins may be nil.
func NewHandler(svc AnalyticsReader, monitor StatusProvider, feed FeedControl, coins CoinLister) *Handler {
	return &Handler{svc: svc, monitor: monitor, feed: feed, coins: coins, now: time.Now}
}

// GetAnalytics handles GET /api/v1/analytics?limit=N
func (h *Handler) GetAnalytics(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_LIMIT", err.Error())
		return
	}

	r, ok := h.svc.Latest()
	if !ok {
		a, b := h.symbols()
		c.JSON(http.StatusOK, AnalyticsResponse{SymbolA: a, SymbolB: b, Points: []domain.AnalyticsPoint{}})
		return
	}

	pts := r.Points
	if limit > 0 && limit < len(pts) {
		pts = pts[len(pts)-limit:]
	}
	resp := AnalyticsResponse{
		SymbolA: r.SymbolA,
		SymbolB: r.SymbolB,
		Seq:     r.Seq,
		Count:   len(r.Points),
		Points:  pts,
	}
	if last, ok := r.Last(); ok {
		resp.Latest = &last
	}
	c.JSON(http.StatusOK, resp)
}

// GetBacktest handles GET /api/v1/backtest
func (h *Handler) GetBacktest(c *gin.Context) {
	result, trades := h.svc.Backtest()
	c.JSON(http.StatusOK, BacktestResponse{Result: result, Trades: trades})
}

// GetAlerts handles GET /api/v1/alerts
func (h *Handler) GetAlerts(c *gin.Context) {
	alerts := h.svc.Alerts()
	c.JSON(http.StatusOK, AlertsResponse{Count: len(alerts), Alerts: alerts})
}

// ClearAlerts handles DELETE /api/v1/alerts
func (h *Handler) ClearAlerts(c *gin.Context) {
	h.svc.ClearAlerts()
	c.Status(http.StatusNoContent)
}

// ExportCSV handles GET /api/v1/export.csv
func (h *Handler) ExportCSV(c *gin.Context) {
	r, ok := h.svc.Latest()
	if !ok || len(r.Points) == 0 {
		abortWithError(c, http.StatusNotFound, "NO_DATA", domain.ErrNoData.Error())
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, r.Points); err != nil {
		infra.GlobalMetrics.RecordError()
		abortWithError(c, http.StatusInternalServerError, "EXPORT_FAILED", err.Error())
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(r.SymbolA, r.SymbolB, h.now())+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// GetParams handles GET /api/v1/params
func (h *Handler) GetParams(c *gin.Context) {
	c.JSON(http.StatusOK, ParamsResponse{Params: h.svc.Params()})
}

// PutParams handles PUT /api/v1/params. Fields absent from the body keep
// their current values.
func (h *Handler) PutParams(c *gin.Context) {
	p := h.svc.Params()
	if err := c.ShouldBindJSON(&p); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	method, err := domain.ParseMethod(string(p.Method))
	if err != nil {
		abortWithParamsError(c, err)
		return
	}
	p.Method = method

	if err := h.svc.UpdateParams(c.Request.Context(), p); err != nil {
		if errors.Is(err, domain.ErrInvalidParams) {
			abortWithParamsError(c, err)
			return
		}
		if isContextErr(err) {
			abortWithError(c, http.StatusServiceUnavailable, "ENGINE_BUSY", err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "UPDATE_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, ParamsResponse{Params: h.svc.Params()})
}

// GetPair handles GET /api/v1/pair
func (h *Handler) GetPair(c *gin.Context) {
	if h.feed == nil {
		a, b := h.symbols()
		c.JSON(http.StatusOK, PairResponse{SymbolA: a, SymbolB: b})
		return
	}
	c.JSON(http.StatusOK, h.pairResponse())
}

// PutPair handles PUT /api/v1/pair. Buffers for the previous pair are
// discarded and collection resumes on the new streams if it was running.
func (h *Handler) PutPair(c *gin.Context) {
	if h.feed == nil {
		abortWithError(c, http.StatusServiceUnavailable, "FEED_UNAVAILABLE", domain.ErrFeedStopped.Error())
		return
	}

	var req PairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if err := h.feed.SwitchPair(c.Request.Context(), req.SymbolA, req.SymbolB); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSymbol):
			abortWithError(c, http.StatusBadRequest, "INVALID_SYMBOL", err.Error())
		case isContextErr(err):
			abortWithError(c, http.StatusServiceUnavailable, "ENGINE_BUSY", err.Error())
		default:
			infra.GlobalMetrics.RecordError()
			abortWithError(c, http.StatusInternalServerError, "SWITCH_FAILED", err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, h.pairResponse())
}

// StartCollect handles POST /api/v1/collect
func (h *Handler) StartCollect(c *gin.Context) {
	if h.feed == nil {
		abortWithError(c, http.StatusServiceUnavailable, "FEED_UNAVAILABLE", domain.ErrFeedStopped.Error())
		return
	}
	if err := h.feed.Start(); err != nil {
		if errors.Is(err, domain.ErrFeedStopped) {
			abortWithError(c, http.StatusServiceUnavailable, "FEED_UNAVAILABLE", err.Error())
			return
		}
		abortWithError(c, http.StatusBadGateway, "CONNECT_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, h.pairResponse())
}

// StopCollect handles DELETE /api/v1/collect
func (h *Handler) StopCollect(c *gin.Context) {
	if h.feed == nil {
		abortWithError(c, http.StatusServiceUnavailable, "FEED_UNAVAILABLE", domain.ErrFeedStopped.Error())
		return
	}
	h.feed.Stop()
	c.JSON(http.StatusOK, h.pairResponse())
}

func (h *Handler) pairResponse() PairResponse {
	a, b := h.feed.Pair()
	return PairResponse{SymbolA: a, SymbolB: b, Collecting: h.feed.Collecting()}
}

// GetStatus handles GET /api/v1/status
func (h *Handler) GetStatus(c *gin.Context) {
	resp := StatusResponse{Metrics: infra.GlobalMetrics.Snapshot()}
	if h.monitor != nil {
		resp.Monitor = h.monitor.Status()
	}
	if h.feed != nil {
		resp.Connected = h.feed.IsConnected()
		resp.Collecting = h.feed.Collecting()
	}
	if h.coins != nil {
		coins, err := h.coins.ActiveCoins()
		if err != nil {
			slog.Warn("Failed to list coins", slog.Any("error", err))
		}
		resp.Coins = coins
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) symbols() (string, string) {
	if h.monitor == nil {
		return "", ""
	}
	st := h.monitor.Status()
	return st.SymbolA, st.SymbolB
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func queryLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return n, nil
}
