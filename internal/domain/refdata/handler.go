package refdata

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/claimguard/claimguard/internal/platform/auth"
	"github.com/claimguard/claimguard/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – admin, billing
	readGroup := api.Group("", auth.RequireRole("admin", "billing"))
	readGroup.GET("/reference/unit-limits/:code", h.GetUnitLimit)
	readGroup.GET("/reference/bundling-edits", h.FindBundlingEdit)
	readGroup.GET("/reference/necessity-mappings/:code", h.ListNecessityMappings)
	readGroup.GET("/reference/payer-rules", h.ListPayerRules)
	readGroup.GET("/reference/frequency-limits/:code", h.ListFrequencyLimits)
	readGroup.GET("/patients/:identifier/claim-history", h.ListClaimHistory)
	readGroup.POST("/patients/:identifier/claim-history", h.RecordClaim)

	// Reference data is curated by admins only
	writeGroup := api.Group("", auth.RequireRole("admin"))
	writeGroup.PUT("/reference/unit-limits/:code", h.PutUnitLimit)
	writeGroup.POST("/reference/bundling-edits", h.CreateBundlingEdit)
	writeGroup.POST("/reference/necessity-mappings", h.CreateNecessityMapping)
	writeGroup.POST("/reference/payer-rules", h.CreatePayerRule)
	writeGroup.POST("/reference/frequency-limits", h.CreateFrequencyLimit)
}

func lookupError(err error, what string) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, what+" not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// -- Unit Limits --

func (h *Handler) GetUnitLimit(c echo.Context) error {
	u, err := h.svc.GetActiveUnitLimit(c.Request().Context(), c.Param("code"))
	if err != nil {
		return lookupError(err, "unit limit")
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) PutUnitLimit(c echo.Context) error {
	var u UnitLimit
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u.CPTCode = c.Param("code")
	if err := h.svc.CreateUnitLimit(c.Request().Context(), &u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, u)
}

// -- Bundling Edits --

func (h *Handler) FindBundlingEdit(c echo.Context) error {
	b, err := h.svc.FindBundlingEdit(c.Request().Context(), c.QueryParam("code_a"), c.QueryParam("code_b"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return lookupError(err, "bundling edit")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) CreateBundlingEdit(c echo.Context) error {
	var b BundlingEdit
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateBundlingEdit(c.Request().Context(), &b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, b)
}

// -- Necessity Mappings --

func (h *Handler) ListNecessityMappings(c echo.Context) error {
	items, err := h.svc.ListNecessityMappings(c.Request().Context(), c.Param("code"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateNecessityMapping(c echo.Context) error {
	var n NecessityMapping
	if err := c.Bind(&n); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateNecessityMapping(c.Request().Context(), &n); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, n)
}

// -- Payer Rules --

func (h *Handler) ListPayerRules(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPayerRules(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreatePayerRule(c echo.Context) error {
	p := PayerRule{Active: true}
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePayerRule(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

// -- Frequency Limits --

func (h *Handler) ListFrequencyLimits(c echo.Context) error {
	items, err := h.svc.ListFrequencyLimits(c.Request().Context(), c.Param("code"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateFrequencyLimit(c echo.Context) error {
	var f FrequencyLimit
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateFrequencyLimit(c.Request().Context(), &f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, f)
}

// -- Claim History --

func (h *Handler) ListClaimHistory(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > pagination.MaxLimit {
		limit = pagination.DefaultLimit
	}
	items, err := h.svc.ListClaimHistory(c.Request().Context(), c.Param("identifier"), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) RecordClaim(c echo.Context) error {
	var rec ClaimHistoryRecord
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec.PatientIdentifier = c.Param("identifier")
	if err := h.svc.RecordClaim(c.Request().Context(), &rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}
