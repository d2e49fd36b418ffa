package reimburse

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	"github.com/claimsure/claimsure/internal/platform/auth"
	"github.com/claimsure/claimsure/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Price and rate tables are fed by the oracle collaborator.
	oracle := api.Group("", auth.RequireRole(auth.RoleOracle))
	oracle.PUT("/prices/:drug", h.SetPrice)
	oracle.PUT("/rates/:province/:drug", h.SetRate)

	api.POST("/pool/deposits", h.Deposit, auth.RequireRole(auth.RoleFunder))

	api.GET("/prices", h.ListPrices)
	api.GET("/rates", h.ListRates)
	api.GET("/pool", h.GetPool)
	api.GET("/balances/:address", h.GetBalance)
}

type setPriceRequest struct {
	Price int64 `json:"price"`
}

func (h *Handler) SetPrice(c echo.Context) error {
	var req setPriceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetPrice(c.Request().Context(), c.Param("drug"), req.Price); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"drug":  c.Param("drug"),
		"price": req.Price,
	})
}

type setRateRequest struct {
	Percent int64 `json:"percent"`
}

func (h *Handler) SetRate(c echo.Context) error {
	var req setRateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetRate(c.Request().Context(), c.Param("province"), c.Param("drug"), req.Percent); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"province": c.Param("province"),
		"drug":     c.Param("drug"),
		"percent":  req.Percent,
	})
}

type depositRequest struct {
	Amount int64 `json:"amount"`
}

func (h *Handler) Deposit(c echo.Context) error {
	var req depositRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	balance, err := h.svc.Deposit(c.Request().Context(), req.Amount)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int64{"balance": balance})
}

func (h *Handler) GetPool(c echo.Context) error {
	balance, err := h.svc.PoolBalance(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int64{"balance": balance})
}

func (h *Handler) GetBalance(c echo.Context) error {
	if !common.IsHexAddress(c.Param("address")) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid address")
	}
	balance, err := h.svc.PatientBalance(c.Request().Context(), common.HexToAddress(c.Param("address")))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int64{"balance": balance})
}

func (h *Handler) ListPrices(c echo.Context) error {
	p := pagination.FromContext(c)
	prices, total, err := h.svc.ListPrices(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(prices, total, p.Limit, p.Offset))
}

func (h *Handler) ListRates(c echo.Context) error {
	p := pagination.FromContext(c)
	rates, total, err := h.svc.ListRates(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(rates, total, p.Limit, p.Offset))
}
