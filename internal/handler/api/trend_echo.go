package api

import (
	"TrendCast/internal/domain/models"
	"TrendCast/internal/usecase"
	xhttp "TrendCast/pkg/http"
	xlogger "TrendCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// TrendEchoHandler serves forecasts and goal recommendations over HTTP.
type TrendEchoHandler struct {
	logger *xlogger.Logger
	svc    *usecase.TrendService
}

func NewTrendEchoHandler(logger *xlogger.Logger, svc *usecase.TrendService) *TrendEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &TrendEchoHandler{logger: logger, svc: svc}
}

func (h *TrendEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/forecast", h.Forecast)
	g.POST("/goal", h.Goal)
}

func (h *TrendEchoHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.AppErrorResponse(c, verr)
	}

	res, err := h.svc.Forecast(c.Request().Context(), callMeta(c), req)
	if err != nil {
		return h.fail(c, "forecast", err)
	}
	setRequestID(c, res.RequestID, res.Cached)
	return xhttp.SuccessResponse(c, res.Response)
}

func (h *TrendEchoHandler) Goal(c echo.Context) error {
	req := &models.GoalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.AppErrorResponse(c, verr)
	}

	res, err := h.svc.RecommendGoal(c.Request().Context(), callMeta(c), req)
	if err != nil {
		return h.fail(c, "goal", err)
	}
	setRequestID(c, res.RequestID, res.Cached)
	return xhttp.SuccessResponse(c, res.Recommendation)
}

func (h *TrendEchoHandler) fail(c echo.Context, op string, err error) error {
	if !models.IsReportable(err) {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, domainError(err))
}

func callMeta(c echo.Context) usecase.CallMeta {
	id := c.Request().Header.Get(echo.HeaderXRequestID)
	if id != "" {
		c.Response().Header().Set(echo.HeaderXRequestID, id)
	}
	return usecase.CallMeta{RequestID: id, Source: models.SourceHTTP}
}

func setRequestID(c echo.Context, id string, cached bool) {
	c.Response().Header().Set(echo.HeaderXRequestID, id)
	if cached {
		c.Response().Header().Set("X-Cache", "HIT")
	} else {
		c.Response().Header().Set("X-Cache", "MISS")
	}
}
