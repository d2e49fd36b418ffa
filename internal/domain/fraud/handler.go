package fraud

import (
	"net/http"

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
	api.GET("/fraud/history", h.ListHistory, auth.RequireRole(auth.RoleAuthority))
}

func (h *Handler) ListHistory(c echo.Context) error {
	p := pagination.FromContext(c)
	histories, total, err := h.svc.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(histories, total, p.Limit, p.Offset))
}
