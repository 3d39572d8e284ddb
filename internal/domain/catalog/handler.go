package catalog

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hms/facility/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/catalog")
	g.GET("/specializations", h.ListSpecializations)
	g.GET("/ward-types", h.ListWardTypes)
	g.GET("/amenities", h.ListAmenities)
}

func (h *Handler) ListSpecializations(c echo.Context) error {
	specs, err := h.svc.ListSpecializations(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, specs)
}

func (h *Handler) ListWardTypes(c echo.Context) error {
	types, err := h.svc.ListWardTypes(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, types)
}

func (h *Handler) ListAmenities(c echo.Context) error {
	level := AmenityLevel(c.QueryParam("level"))
	if level == "" {
		level = AmenityRoom
	}
	if level != AmenityRoom && level != AmenityBed {
		return echo.NewHTTPError(http.StatusBadRequest, "level must be room or bed")
	}

	p := pagination.FromContext(c)
	items, total, err := h.svc.ListAmenities(c.Request().Context(), level, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}
