package registry

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/claimsure/claimsure/internal/domain/fraud"
	"github.com/claimsure/claimsure/internal/domain/reimburse"
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
	api.GET("/claims", h.ListClaims)
	api.GET("/claims/:id", h.GetClaim)
	api.POST("/claims", h.OpenClaim, auth.RequireRole(auth.RolePatient))
	api.POST("/claims/:id/hospital-data", h.SubmitHospitalData, auth.RequireRole(auth.RoleHospital))
	api.POST("/claims/:id/patient-confirmation", h.ConfirmByPatient, auth.RequireRole(auth.RolePatient))
	api.POST("/claims/:id/pharmacy-confirmation", h.ConfirmByPharmacy, auth.RequireRole(auth.RolePharmacy))
	api.POST("/claims/:id/approval", h.Approve, auth.RequireRole(auth.RoleAuthority))
}

// statusFromError maps lifecycle failures to HTTP codes. Every failure is
// local to the one operation; the claim stays usable.
func statusFromError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrClaimNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidStageTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrSignatureReplay):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrDataMismatch),
		errors.Is(err, reimburse.ErrDataMismatch), errors.Is(err, reimburse.ErrInvalidQuantity):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, reimburse.ErrAmountOverflow):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, fraud.ErrFraudRejected), errors.Is(err, fraud.ErrNotConfirmed):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, reimburse.ErrInsufficientFunds):
		return echo.NewHTTPError(http.StatusPaymentRequired, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func claimID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid claim id")
	}
	return id, nil
}

type openClaimRequest struct {
	HospitalName string `json:"hospital_name"`
	Province     string `json:"province"`
}

func (h *Handler) OpenClaim(c echo.Context) error {
	var req openClaimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	claim, err := h.svc.Open(ctx, auth.AddressFromContext(ctx), req.HospitalName, req.Province)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, claim)
}

type hospitalDataRequest struct {
	Illness           string        `json:"illness"`
	DoctorName        string        `json:"doctor_name"`
	Medicines         []string      `json:"medicines"`
	MedicineAmounts   []int64       `json:"medicine_amounts"`
	TreatmentDays     int           `json:"treatment_days"`
	PrescriptionHash  hexutil.Bytes `json:"prescription_hash"`
	HospitalSignature hexutil.Bytes `json:"hospital_signature"`
}

func (h *Handler) SubmitHospitalData(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	var req hospitalDataRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	claim, err := h.svc.SubmitHospitalData(ctx, auth.AddressFromContext(ctx), id, HospitalData{
		Illness:           req.Illness,
		DoctorName:        req.DoctorName,
		Medicines:         req.Medicines,
		MedicineAmounts:   req.MedicineAmounts,
		TreatmentDays:     req.TreatmentDays,
		PrescriptionHash:  req.PrescriptionHash,
		HospitalSignature: req.HospitalSignature,
	})
	if err != nil {
		return statusFromError(err)
	}
	return c.JSON(http.StatusOK, claim)
}

type patientConfirmRequest struct {
	Fingerprint hexutil.Bytes `json:"fingerprint"`
	Signature   hexutil.Bytes `json:"signature"`
}

func (h *Handler) ConfirmByPatient(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	var req patientConfirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	claim, err := h.svc.ConfirmByPatient(ctx, auth.AddressFromContext(ctx), id, req.Fingerprint, req.Signature)
	if err != nil {
		return statusFromError(err)
	}
	return c.JSON(http.StatusOK, claim)
}

type pharmacyConfirmRequest struct {
	PharmacyName     string        `json:"pharmacy_name"`
	PharmacyOperator string        `json:"pharmacy_operator"`
	Fingerprint      hexutil.Bytes `json:"fingerprint"`
}

func (h *Handler) ConfirmByPharmacy(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	var req pharmacyConfirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	claim, err := h.svc.ConfirmByPharmacy(ctx, auth.AddressFromContext(ctx), id,
		req.PharmacyName, req.PharmacyOperator, req.Fingerprint)
	if err != nil {
		return statusFromError(err)
	}
	return c.JSON(http.StatusOK, claim)
}

func (h *Handler) Approve(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	claim, amount, err := h.svc.ApproveAndSettle(ctx, auth.AddressFromContext(ctx), id)
	if err != nil {
		return statusFromError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"claim":  claim,
		"amount": amount,
	})
}

func (h *Handler) GetClaim(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	claim, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return statusFromError(err)
	}
	return c.JSON(http.StatusOK, claim)
}

func (h *Handler) ListClaims(c echo.Context) error {
	var filter ClaimFilter
	if raw := c.QueryParam("patient"); raw != "" {
		if !common.IsHexAddress(raw) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient address")
		}
		addr := common.HexToAddress(raw)
		filter.Patient = &addr
	}
	if raw := c.QueryParam("status"); raw != "" {
		status := Status(raw)
		filter.Status = &status
	}
	if raw := c.QueryParam("hospital"); raw != "" {
		name := raw
		filter.HospitalName = &name
	}

	p := pagination.FromContext(c)
	claims, total, err := h.svc.List(c.Request().Context(), filter, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(claims, total, p.Limit, p.Offset))
}
