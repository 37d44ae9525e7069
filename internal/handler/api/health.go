package api

import (
	"context"
	"net/http"
	"time"

	xhttp "TrendCast/pkg/http"
	xlogger "TrendCast/pkg/logger"
	"TrendCast/pkg/util"

	"github.com/labstack/echo/v4"
)

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	logger  *xlogger.Logger
	checks  map[string]Checker
	timeout time.Duration
}

func NewHealthHandler(logger *xlogger.Logger) *HealthHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &HealthHandler{logger: logger, checks: make(map[string]Checker), timeout: 2 * time.Second}
}

// AddCheck registers a readiness check. A nil check is ignored.
func (h *HealthHandler) AddCheck(name string, check Checker) *HealthHandler {
	if check != nil {
		h.checks[name] = check
	}
	return h
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Live)
	e.GET("/readyz", h.Ready)
}

func (h *HealthHandler) Live(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	ready := true
	for _, name := range util.SortedKeys(h.checks) {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("readiness check failed", xlogger.String("check", name), xlogger.Error(err))
			status[name] = err.Error()
			ready = false
			continue
		}
		status[name] = "ok"
	}
	if !ready {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("not ready").WithDetails(status))
	}
	return xhttp.DataResponse(c, http.StatusOK, status)
}
