package scrub

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/claimguard/claimguard/internal/platform/auth"
)

const maxBatchClaims = 500

type Handler struct {
	svc          *Service
	batchWorkers int
}

func NewHandler(svc *Service, batchWorkers int) *Handler {
	return &Handler{svc: svc, batchWorkers: max(batchWorkers, 1)}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleBilling))
	g.POST("/claims/validate", h.ValidateClaim)
	g.POST("/claims/validate/batch", h.ValidateBatch)
	g.GET("/scoring-config", h.GetScoringConfig)
}

func (h *Handler) ValidateClaim(c echo.Context) error {
	var claim Claim
	if err := c.Bind(&claim); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid claim body: "+err.Error())
	}
	res, err := h.svc.Validate(c.Request().Context(), claim)
	if err != nil {
		return validationError(err)
	}
	return c.JSON(http.StatusOK, res)
}

type batchRequest struct {
	Claims []Claim `json:"claims"`
}

type batchResponse struct {
	Items []BatchItem `json:"items"`
}

func (h *Handler) ValidateBatch(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid batch body: "+err.Error())
	}
	if len(req.Claims) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "claims is empty")
	}
	if len(req.Claims) > maxBatchClaims {
		return echo.NewHTTPError(http.StatusBadRequest, "batch exceeds 500 claims")
	}
	items, err := h.svc.ValidateBatch(c.Request().Context(), req.Claims, h.batchWorkers, nil)
	if err != nil {
		return validationError(err)
	}
	return c.JSON(http.StatusOK, batchResponse{Items: items})
}

func (h *Handler) GetScoringConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Profile())
}

func validationError(err error) error {
	switch {
	case errors.Is(err, ErrNoProcedures), errors.Is(err, ErrInvalidProcedure), errors.Is(err, ErrInvalidClaim):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "validation timed out")
	case errors.Is(err, context.Canceled):
		return echo.NewHTTPError(499, "request canceled")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
