package facility

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hms/facility/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/facility", auth.RequireRole("admin", "facility-manager"))

	g.POST("/sessions", h.CreateSession)
	g.GET("/sessions/:id", h.GetSession)
	g.DELETE("/sessions/:id", h.DeleteSession)
	g.POST("/sessions/:id/load", h.LoadForEdit)
	g.POST("/sessions/:id/save", h.Save)
	g.GET("/sessions/:id/summary", h.GetSummary)
	g.GET("/summaries", h.ListSummaries)

	g.POST("/sessions/:id/departments", h.AddDepartment)
	g.DELETE("/sessions/:id/departments/:deptId", h.DeleteDepartment)
	g.POST("/sessions/:id/wards", h.AddWard)
	g.DELETE("/sessions/:id/wards/:wardId", h.DeleteWard)
	g.POST("/sessions/:id/rooms", h.AddRoom)
	g.DELETE("/sessions/:id/rooms/:roomId", h.DeleteRoom)
	g.POST("/sessions/:id/beds", h.AddBeds)
	g.DELETE("/sessions/:id/beds/:bedId", h.DeleteBed)
	g.POST("/sessions/:id/amenities/toggle", h.ToggleAmenity)
	g.PUT("/sessions/:id/selection", h.SetSelection)
}

// httpError maps the domain taxonomy onto HTTP statuses.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrPersistence):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// -- Session lifecycle --

func (h *Handler) CreateSession(c echo.Context) error {
	var body struct {
		Seed bool `json:"seed"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.svc.CreateSession(c.Request().Context(), body.Seed)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"session":   sess,
		"aggregate": sess.Store().Snapshot(),
	})
}

func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.svc.Session(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"session":   sess,
		"aggregate": sess.Store().Snapshot(),
	})
}

func (h *Handler) DeleteSession(c echo.Context) error {
	if err := h.svc.DeleteSession(c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) LoadForEdit(c echo.Context) error {
	var body struct {
		WardID string `json:"ward_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.svc.LoadForEdit(c.Request().Context(), c.Param("id"), body.WardID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess.Store().Snapshot())
}

func (h *Handler) Save(c echo.Context) error {
	result, summary, err := h.svc.Save(c.Request().Context(), c.Param("id"))
	if err != nil {
		if result != nil && errors.Is(err, ErrPersistence) {
			// Surface the partial result so the caller knows what already
			// landed before re-invoking save.
			return c.JSON(http.StatusBadGateway, map[string]interface{}{
				"error":  err.Error(),
				"result": result,
			})
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"result":  result,
		"summary": summary,
	})
}

func (h *Handler) GetSummary(c echo.Context) error {
	sum, err := h.svc.SummaryForSession(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *Handler) ListSummaries(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Summaries())
}

// -- Mutation operations --

func (h *Handler) AddDepartment(c echo.Context) error {
	sess, err := h.svc.Session(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	var body struct {
		Name             string `json:"name"`
		SpecializationID int    `json:"specialization_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	dept, err := sess.Store().AddDepartment(body.Name, body.SpecializationID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, dept)
}

func (h *Handler) DeleteDepartment(c echo.Context) error {
	sess, err := h.svc.Session(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if err := sess.Store().DeleteDepartment(c.Param("deptId")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddWard(c echo.Context) error {
	var body struct {
		WardTypeID   int    `json:"ward_type_id"`
		DepartmentID string `json:"department_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ward, err := h.svc.AddWard(c.Request().Context(), c.Param("id"), body.WardTypeID, body.DepartmentID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, ward)
}

func (h *Handler) DeleteWard(c echo.Context) error {
	sess, err := h.svc.Session(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if err := sess.Store().DeleteWard(c.Param("wardId")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddRoom(c echo.Context) error {
	sess, err := h.svc.Session(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	var body struct {
		Name      string   `json:"name"`
		Number    string   `json:"number"`
		WardID    string   `json:"ward_id"`
		Amenities []string `json:"amenities"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	amenities := body.Amenities
	if amenities == nil {
		amenities = sess.Store().WardRoomDefaults(body.WardID)
	}
	room, err := sess.Store().AddRoom(body.Name, body.Number, body.WardID, amenities)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, room)
}

func (h *Handler) DeleteRoom(c echo.Context) error {
	sess, err := h.svc.Session(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if err := sess.Store().DeleteRoom(c.Param("roomId")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddBeds(c echo.Context) error {
	sess, err := h.svc.Session(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	var body struct {
		RoomID string `json:"room_id"`
		Count  int    `json:"count"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	beds, err := sess.Store().AddBeds(body.RoomID, body.Count)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, beds)
}

func (h *Handler) DeleteBed(c echo.Context) error {
	sess, err := h.svc.Session(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if err := sess.Store().DeleteBed(c.Param("bedId")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ToggleAmenity(c echo.Context) error {
	sess, err := h.svc.Session(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	var body struct {
		Level     string `json:"level"`
		EntityID  string `json:"entity_id"`
		AmenityID string `json:"amenity_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	added, err := sess.Store().ToggleAmenity(AmenityLevel(body.Level), body.EntityID, body.AmenityID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"added": added})
}

func (h *Handler) SetSelection(c echo.Context) error {
	sess, err := h.svc.Session(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	var sel Selection
	if err := c.Bind(&sel); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := sess.Store().SetSelection(sel); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sel)
}
