package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"TrendCast/internal/domain/models"
	"TrendCast/internal/usecase"
	xhttp "TrendCast/pkg/http"
	xlogger "TrendCast/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	wsReadLimit    = 1 << 20
	wsPongWait     = 60 * time.Second
	wsPingInterval = 25 * time.Second
	wsWriteWait    = 10 * time.Second
)

// ForecastStreamHandler answers forecast requests sent as WebSocket text frames. Each frame gets
// exactly one reply envelope, in order.
type ForecastStreamHandler struct {
	logger   *xlogger.Logger
	svc      *usecase.TrendService
	upgrader websocket.Upgrader
}

func NewForecastStreamHandler(logger *xlogger.Logger, svc *usecase.TrendService) *ForecastStreamHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ForecastStreamHandler{
		logger: logger,
		svc:    svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *ForecastStreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/forecast", h.Stream)
}

func (h *ForecastStreamHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		h.logger.Warn("ws upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// ping loop
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	}()

	h.logger.Debug("ws client connected", xlogger.String("remote", c.RealIP()))
	for {
		mt, b, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("ws read error", xlogger.Error(err))
			}
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		if mt != websocket.TextMessage {
			continue
		}

		reply := h.serve(ctx, b)
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Warn("ws write error", xlogger.Error(err))
			return nil
		}
	}
}

func (h *ForecastStreamHandler) serve(ctx context.Context, frame []byte) xhttp.APIResponse {
	req := &models.ForecastRequest{}
	if verr := xhttp.DecodeAndValidate(ctx, frame, req); verr != nil {
		return xhttp.ErrorEnvelope(verr)
	}
	res, err := h.svc.Forecast(ctx, usecase.CallMeta{Source: models.SourceWebSocket}, req)
	if err != nil {
		if !models.IsReportable(err) && !errors.Is(err, context.Canceled) {
			h.logger.Error("ws forecast error", xlogger.Error(err))
		}
		return xhttp.ErrorEnvelope(domainError(err))
	}
	return xhttp.Envelope(http.StatusOK, res.Response)
}
