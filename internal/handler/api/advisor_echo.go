package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"FinAdvisor/internal/domain/models"
	"FinAdvisor/internal/service/ratelimit"
	"FinAdvisor/internal/usecase"
	xhttp "FinAdvisor/pkg/http"
	xlogger "FinAdvisor/pkg/logger"
	"FinAdvisor/pkg/util"
)

// CreateDefaults fill fields a create-portfolio request omits.
type CreateDefaults struct {
	Profile     string
	InitialCash float64
}

// AdvisorEchoHandler serves the portfolio and recommendation API.
type AdvisorEchoHandler struct {
	logger     *xlogger.Logger
	portfolios *usecase.PortfolioUseCase
	advisor    *usecase.Advisor
	limiter    *ratelimit.Limiter
	defaults   CreateDefaults
}

func NewAdvisorEchoHandler(
	logger *xlogger.Logger,
	portfolios *usecase.PortfolioUseCase,
	advisor *usecase.Advisor,
	limiter *ratelimit.Limiter,
	defaults CreateDefaults,
) *AdvisorEchoHandler {
	return &AdvisorEchoHandler{
		logger:     logger,
		portfolios: portfolios,
		advisor:    advisor,
		limiter:    limiter,
		defaults:   defaults,
	}
}

func (h *AdvisorEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/prices", h.SetPrices)

	p := g.Group("/portfolios")
	p.POST("", h.CreatePortfolio)
	p.GET("/:id", h.GetPortfolio)
	p.DELETE("/:id", h.DeletePortfolio)
	p.POST("/:id/trades", h.Trade)
	p.GET("/:id/trades", h.Trades)
	p.POST("/:id/mark", h.Mark)
	p.GET("/:id/metrics", h.Metrics)
	p.GET("/:id/nav", h.Nav)
	p.POST("/:id/recommendations", h.Recommend)
	p.GET("/:id/explain/:symbol", h.Explain)
	p.POST("/:id/apply/:symbol", h.Apply)
}

func (h *AdvisorEchoHandler) CreatePortfolio(c echo.Context) error {
	req := &models.CreatePortfolioRequest{Profile: h.defaults.Profile, InitialCash: h.defaults.InitialCash}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	view, err := h.portfolios.Create(c.Request().Context(), req.ID, req.Profile, req.InitialCash)
	if err != nil {
		return h.fail(c, "create portfolio", err)
	}
	return xhttp.CreatedResponse(c, view)
}

func (h *AdvisorEchoHandler) GetPortfolio(c echo.Context) error {
	req := &models.PortfolioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	view, err := h.portfolios.View(c.Request().Context(), req.ID)
	if err != nil {
		return h.fail(c, "get portfolio", err)
	}
	return xhttp.SuccessResponse(c, view)
}

func (h *AdvisorEchoHandler) DeletePortfolio(c echo.Context) error {
	req := &models.PortfolioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.portfolios.Delete(c.Request().Context(), req.ID); err != nil {
		return h.fail(c, "delete portfolio", err)
	}
	h.limiter.Forget(req.ID)
	return xhttp.NoContentResponse(c)
}

func (h *AdvisorEchoHandler) Trade(c echo.Context) error {
	req := &models.TradeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	t, err := h.portfolios.Trade(c.Request().Context(), req.ID, usecase.TradeInput{
		Symbol:      strings.TrimSpace(req.Symbol),
		Side:        req.Side,
		Qty:         req.Qty,
		Price:       req.Price,
		Fees:        req.Fees,
		ReasonCodes: req.ReasonCodes,
	})
	if err != nil {
		return h.fail(c, "trade", err)
	}
	return xhttp.CreatedResponse(c, t)
}

func (h *AdvisorEchoHandler) Trades(c echo.Context) error {
	req := &models.PortfolioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	trades, err := h.portfolios.Trades(c.Request().Context(), req.ID)
	if err != nil {
		return h.fail(c, "list trades", err)
	}
	limit := util.ParseIntDefault(c.QueryParam("limit"), 0)
	return xhttp.ListResponse(c, util.Tail(trades, limit), int64(len(trades)))
}

func (h *AdvisorEchoHandler) Mark(c echo.Context) error {
	req := &models.PortfolioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	snap, err := h.portfolios.Mark(c.Request().Context(), req.ID)
	if err != nil {
		return h.fail(c, "mark", err)
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *AdvisorEchoHandler) Metrics(c echo.Context) error {
	req := &models.PortfolioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	m, err := h.portfolios.Metrics(c.Request().Context(), req.ID)
	if err != nil {
		return h.fail(c, "metrics", err)
	}
	return xhttp.SuccessResponse(c, m)
}

func (h *AdvisorEchoHandler) Nav(c echo.Context) error {
	req := &models.PortfolioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	navs, err := h.portfolios.NavHistory(c.Request().Context(), req.ID)
	if err != nil {
		return h.fail(c, "nav history", err)
	}
	limit := util.ParseIntDefault(c.QueryParam("limit"), 0)
	return xhttp.ListResponse(c, util.Tail(navs, limit), int64(len(navs)))
}

func (h *AdvisorEchoHandler) SetPrices(c echo.Context) error {
	req := &models.SetPricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	n, err := h.portfolios.SetPrices(c.Request().Context(), req.Prices)
	if err != nil {
		return h.fail(c, "set prices", err)
	}
	return xhttp.SuccessResponse(c, map[string]int{"updated": n})
}

func (h *AdvisorEchoHandler) Recommend(c echo.Context) error {
	req := &models.RecommendationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.limiter.Allow(req.ID) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("recommendation rate limit exceeded").WithParam("portfolio", req.ID))
	}
	// zero as_of means now
	asOf := util.ParseTimeDefault(req.AsOf, time.Time{})
	set, err := h.advisor.Recommend(c.Request().Context(), req.ID, req.Symbols, asOf)
	if err != nil {
		return h.fail(c, "recommend", err)
	}
	return xhttp.SuccessResponse(c, set)
}

func (h *AdvisorEchoHandler) Explain(c echo.Context) error {
	req := &models.ExplainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	lang := usecase.ParseLang(req.Lang, c.Request().Header.Get("Accept-Language"))
	res, err := h.advisor.Explain(c.Request().Context(), req.ID, req.Symbol, lang)
	if err != nil {
		return h.fail(c, "explain", err)
	}
	c.Response().Header().Set("Content-Language", string(lang))
	return xhttp.SuccessResponse(c, res)
}

func (h *AdvisorEchoHandler) Apply(c echo.Context) error {
	req := &models.ApplyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.advisor.ApplyDecision(c.Request().Context(), req.ID, req.Symbol, req.Fees)
	if err != nil {
		return h.fail(c, "apply decision", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// fail maps a usecase error onto the API error envelope.
func (h *AdvisorEchoHandler) fail(c echo.Context, op string, err error) error {
	kind := usecase.ErrorKind(err)
	var appErr *xhttp.AppError
	switch {
	case kind == "not_found":
		appErr = xhttp.NotFoundError(err.Error())
	case kind == "exists":
		appErr = xhttp.ConflictError(err.Error())
	case usecase.IsValidationError(err):
		appErr = xhttp.NewAppError("ERR_"+strings.ToUpper(kind), "", err.Error(), http.StatusBadRequest)
	case c.Request().Context().Err() == context.Canceled:
		// client went away; nothing useful to write
		return nil
	default:
		h.logger.Error(op+" failed", xlogger.String("route", c.Path()), xlogger.Error(err))
		appErr = xhttp.InternalError(op + " failed").WithError(err)
	}
	return xhttp.AppErrorResponse(c, appErr)
}
