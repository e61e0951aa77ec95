package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"traderDashboard/internal/app"
	"traderDashboard/internal/domain"
	"traderDashboard/internal/ports"
)

// DashboardAPI is the application surface served over HTTP.
type DashboardAPI interface {
	Dashboard(ctx context.Context, accountID string) (*app.Dashboard, error)
	Account(ctx context.Context, accountID string) (*domain.TradingAccount, error)
	ListAccounts(ctx context.Context, userID string, includeArchived bool) ([]*domain.TradingAccount, error)
	LinkAccount(ctx context.Context, acc *domain.TradingAccount) (*domain.TradingAccount, error)
	UpdateSettings(ctx context.Context, accountID string, upd domain.AccountSettingsUpdate) (*domain.TradingAccount, error)
	UnlinkAccount(ctx context.Context, accountID string) error
	Watch(ctx context.Context, accountID string, interval time.Duration, fn func(*app.Dashboard, error)) (cancel func())
}

// Handler serves the dashboard JSON API.
type Handler struct {
	svc     DashboardAPI
	logger  ports.Logger
	refresh time.Duration // Period of streamed dashboard updates

	mu       sync.Mutex
	sessions map[string]*app.Session // Keyed by the viewer's user_id
}

// NewHandler creates the HTTP handler.
func NewHandler(svc DashboardAPI, logger ports.Logger, refresh time.Duration) *Handler {
	return &Handler{svc: svc, logger: logger, refresh: refresh, sessions: make(map[string]*app.Session)}
}

// session returns the dashboard session of a viewer, creating it on first use.
func (h *Handler) session(viewer string) *app.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[viewer]
	if !ok {
		s = app.NewSession(h.svc)
		h.sessions[viewer] = s
	}
	return s
}

// NewRouter builds a gin engine with recovery, request logging and the API
// routes registered.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())
	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Health)

	api := router.Group("/api/v1")
	{
		api.GET("/accounts", h.ListAccounts)
		api.POST("/accounts", h.LinkAccount)
		api.GET("/accounts/:id", h.GetAccount)
		api.PATCH("/accounts/:id/settings", h.UpdateSettings)
		api.DELETE("/accounts/:id", h.UnlinkAccount)
		api.GET("/accounts/:id/dashboard", h.GetDashboard)
		api.GET("/accounts/:id/metrics", h.GetMetrics)
		api.GET("/accounts/:id/equity", h.GetEquity)
		api.GET("/accounts/:id/trades", h.GetTrades)
		api.GET("/accounts/:id/stream", h.StreamDashboard)
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			h.logger.Warn(c.Request.Context(), "HTTP request failed", fields)
			return
		}
		h.logger.Debug(c.Request.Context(), "HTTP request", fields)
	}
}

// fail writes err as an error envelope. Server-side failures are logged.
func (h *Handler) fail(c *gin.Context, err error, msg string) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), err, msg, map[string]interface{}{"path": c.FullPath()})
	}
	respondError(c, status, code, err.Error())
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	respondOK(c, http.StatusOK, gin.H{"status": "ok"})
}

// ListAccounts lists a user's linked accounts.
func (h *Handler) ListAccounts(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, "user_id is required")
		return
	}
	includeArchived, _ := strconv.ParseBool(c.DefaultQuery("include_archived", "false"))

	accounts, err := h.svc.ListAccounts(c.Request.Context(), userID, includeArchived)
	if err != nil {
		h.fail(c, err, "Failed to list accounts")
		return
	}
	out := make([]*AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, newAccountResponse(a))
	}
	respondOK(c, http.StatusOK, out)
}

// LinkAccount links a new trading account.
func (h *Handler) LinkAccount(c *gin.Context) {
	var req LinkAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	acc, err := h.svc.LinkAccount(c.Request.Context(), req.toDomain())
	if err != nil {
		h.fail(c, err, "Failed to link account")
		return
	}
	respondOK(c, http.StatusCreated, newAccountResponse(acc))
}

// GetAccount returns one linked account.
func (h *Handler) GetAccount(c *gin.Context) {
	acc, err := h.svc.Account(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to load account")
		return
	}
	respondOK(c, http.StatusOK, newAccountResponse(acc))
}

// UpdateSettings applies a partial settings update.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var upd domain.AccountSettingsUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	acc, err := h.svc.UpdateSettings(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		h.fail(c, err, "Failed to update account settings")
		return
	}
	respondOK(c, http.StatusOK, newAccountResponse(acc))
}

// UnlinkAccount removes an account link.
func (h *Handler) UnlinkAccount(c *gin.Context) {
	if err := h.svc.UnlinkAccount(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "Failed to unlink account")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": c.Param("id")})
}

// dashboard loads the dashboard of the :id account. With a user_id query the
// load runs in that viewer's session: a newer load by the same viewer
// supersedes it and the older request gets 409 STALE.
func (h *Handler) dashboard(c *gin.Context) (*app.Dashboard, bool) {
	viewer := c.Query("user_id")
	if viewer == "" {
		d, err := h.svc.Dashboard(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.fail(c, err, "Failed to build dashboard")
			return nil, false
		}
		return d, true
	}

	s := h.session(viewer)
	d, err := s.Load(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ports.ErrStaleResponse) {
		respondError(c, http.StatusConflict, CodeStale, "superseded by a load of account "+s.AccountID())
		return nil, false
	}
	if err != nil {
		h.fail(c, err, "Failed to build dashboard")
		return nil, false
	}
	return d, true
}

// GetDashboard returns every dashboard section.
func (h *Handler) GetDashboard(c *gin.Context) {
	d, ok := h.dashboard(c)
	if !ok {
		return
	}
	respondOK(c, http.StatusOK, newDashboardResponse(d))
}

// GetMetrics returns the headline performance metrics.
func (h *Handler) GetMetrics(c *gin.Context) {
	d, ok := h.dashboard(c)
	if !ok {
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"metrics":   newMetricsResponse(d.Metrics),
		"available": d.MetricsAvailable,
		"warnings":  d.Warnings,
	})
}

// GetEquity returns the daily equity curve with its drawdowns and the rule
// evaluation.
func (h *Handler) GetEquity(c *gin.Context) {
	d, ok := h.dashboard(c)
	if !ok {
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"equityCurve": newEquityResponse(d.EquityCurve),
		"available":   d.EquityAvailable,
		"drawdowns":   newDrawdownsResponse(d.Drawdowns),
		"evaluation":  newEvaluationResponse(d.Evaluation),
		"warnings":    d.Warnings,
	})
}

// GetTrades returns the closed trades and their statistics.
func (h *Handler) GetTrades(c *gin.Context) {
	d, ok := h.dashboard(c)
	if !ok {
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"trades":     newTradesResponse(d.Trades),
		"available":  d.MetricsAvailable,
		"statistics": newStatisticsResponse(d.Statistics),
		"warnings":   d.Warnings,
	})
}

type watchUpdate struct {
	d   *app.Dashboard
	err error
}

// StreamDashboard pushes the dashboard as server-sent events: one
// "dashboard" event per refresh and an "error" event when a refresh fails.
// The stream ends when the client goes away or the account is unlinked.
func (h *Handler) StreamDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	updates := make(chan watchUpdate)
	cancel := h.svc.Watch(ctx, c.Param("id"), h.refresh, func(d *app.Dashboard, err error) {
		select {
		case updates <- watchUpdate{d: d, err: err}:
		case <-ctx.Done():
		}
	})
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case u := <-updates:
			if u.err != nil {
				_, code := statusOf(u.err)
				c.SSEvent("error", Response{Code: code, Message: u.err.Error()})
				return !errors.Is(u.err, ports.ErrNotFound)
			}
			c.SSEvent("dashboard", Response{Code: CodeOK, Message: "success", Data: newDashboardResponse(u.d)})
			return true
		}
	})
}
