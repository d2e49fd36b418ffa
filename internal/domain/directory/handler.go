package directory

import (
	"errors"
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
	api.GET("/hospitals", h.ListHospitals)
	api.GET("/hospitals/:name", h.GetHospital)
	api.PUT("/hospitals/:name", h.RegisterHospital, auth.RequireRole(auth.RoleAuthority))
}

type registerHospitalRequest struct {
	Address string `json:"address"`
}

func (h *Handler) RegisterHospital(c echo.Context) error {
	var req registerHospitalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !common.IsHexAddress(req.Address) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital address")
	}

	ctx := c.Request().Context()
	hospital, err := h.svc.Register(ctx, auth.AddressFromContext(ctx),
		c.Param("name"), common.HexToAddress(req.Address))
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, hospital)
}

func (h *Handler) GetHospital(c echo.Context) error {
	hospital, err := h.svc.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "hospital not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, hospital)
}

func (h *Handler) ListHospitals(c echo.Context) error {
	p := pagination.FromContext(c)
	hospitals, total, err := h.svc.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(hospitals, total, p.Limit, p.Offset))
}
