package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/usecase"
	xhttp "MarketPulse/pkg/http"
	xlogger "MarketPulse/pkg/logger"
)

// Handler exposes the forecasting and paper-trading API over Echo.
type Handler struct {
	logger    *xlogger.Logger
	refresher *usecase.Refresher
	ws        *WSHandler
}

func NewHandler(logger *xlogger.Logger, refresher *usecase.Refresher, ws *WSHandler) *Handler {
	return &Handler{logger: logger, refresher: refresher, ws: ws}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/state", h.State)
	g.GET("/config", h.GetConfig)
	g.POST("/config", h.UpdateConfig)
	g.POST("/retrain", h.Retrain)
	g.POST("/trade/buy", h.Buy)
	g.POST("/trade/sell", h.Sell)

	e.GET("/ws", h.ws.Subscribe)
}

func (h *Handler) Health(c echo.Context) error {
	st := h.refresher.State()
	return xhttp.SuccessResponse(c, map[string]string{
		"status": st.Status,
		"ticker": st.Ticker,
	})
}

func (h *Handler) State(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.refresher.State())
}

func (h *Handler) GetConfig(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.refresher.Config())
}

func (h *Handler) UpdateConfig(c echo.Context) error {
	req := &models.ConfigUpdate{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	cfg, err := h.refresher.UpdateConfig(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("config update failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, cfg)
}

func (h *Handler) Retrain(c echo.Context) error {
	st, err := h.refresher.Retrain(c.Request().Context())
	if err != nil {
		// The error state is still a complete, persisted state; report it
		// with the failure cause attached.
		h.logger.Error("forced retrain failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, tradeError(err))
	}
	return xhttp.SuccessResponse(c, st)
}

// TradeRequest is the buy request body. A nil amount uses the configured
// invest amount.
type TradeRequest struct {
	Amount *float64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
}

func (h *Handler) Buy(c echo.Context) error {
	req := &TradeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	st, err := h.refresher.Buy(c.Request().Context(), req.Amount)
	if err != nil {
		return xhttp.AppErrorResponse(c, tradeError(err))
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *Handler) Sell(c echo.Context) error {
	st, err := h.refresher.Sell(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, tradeError(err))
	}
	return xhttp.SuccessResponse(c, st)
}

// tradeError maps domain failures to client-visible statuses. Rejected
// trades and empty data are client errors; anything else stays a 500.
func tradeError(err error) error {
	switch {
	case errors.Is(err, models.ErrNoPrice),
		errors.Is(err, models.ErrInvalidTrade):
		return xhttp.NewAppError("ERR_TRADE_REJECTED", "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrDataUnavailable),
		errors.Is(err, models.ErrInsufficientData):
		return xhttp.NewAppError("ERR_NO_DATA", "", err.Error(), http.StatusServiceUnavailable).WithError(err)
	default:
		return err
	}
}
