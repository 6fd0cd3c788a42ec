package booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinic/reserve/internal/platform/auth"
)

type Handler struct {
	svc   *Service
	slots *BlockedSlotService
}

func NewHandler(svc *Service, slots *BlockedSlotService) *Handler {
	return &Handler{svc: svc, slots: slots}
}

// RegisterRoutes mounts the calendar endpoints. Reads stay on the public
// group, as they always have; mutations require a token and are closed to
// viewers.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.GET("/appointments", h.ListAppointments)
	public.GET("/appointments/:id", h.GetAppointment)
	public.GET("/blocked-slots", h.ListBlockedSlots)

	write := api.Group("", auth.RequireWriter)
	write.POST("/appointments", h.CreateAppointment)
	write.POST("/appointments/special", h.CreateSpecialAppointment)
	write.PUT("/appointments/:id", h.UpdateAppointment)
	write.PUT("/appointments/special/:id", h.UpdateSpecialAppointment)
	write.DELETE("/appointments/:id", h.DeleteAppointment)
	write.POST("/blocked-slots", h.CreateBlockedSlot)
	write.PUT("/blocked-slots/:id", h.UpdateBlockedSlot)
	write.DELETE("/blocked-slots/:id", h.DeleteBlockedSlot)
	write.POST("/blocked-slots/register-holidays", h.RegisterHolidays)
}

// httpError maps the domain error taxonomy onto HTTP statuses.
func httpError(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusBadRequest, ve.Message)
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		return echo.NewHTTPError(http.StatusConflict, ce.Message)
	}
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func pathID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func actor(c echo.Context) string {
	if u := auth.CurrentUser(c); u != nil {
		return u.Name
	}
	return ""
}

// -- Appointment Handlers --

func (h *Handler) ListAppointments(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context(), c.QueryParam("date"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var in AppointmentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Create(c.Request().Context(), in, actor(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in AppointmentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Update(c.Request().Context(), id, in, actor(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	notify := c.QueryParam("notify") == "true"
	if err := h.svc.Delete(c.Request().Context(), id, actor(c), notify); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateSpecialAppointment(c echo.Context) error {
	var in AppointmentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.CreateSpecial(c.Request().Context(), in, actor(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) UpdateSpecialAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in AppointmentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.UpdateSpecial(c.Request().Context(), id, in, actor(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

// -- Blocked Slot Handlers --

func (h *Handler) ListBlockedSlots(c echo.Context) error {
	items, err := h.slots.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateBlockedSlot(c echo.Context) error {
	var in BlockedSlotInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.slots.Create(c.Request().Context(), in, actor(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) UpdateBlockedSlot(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in BlockedSlotInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.slots.Update(c.Request().Context(), id, in, actor(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBlockedSlot(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.slots.Delete(c.Request().Context(), id, actor(c)); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RegisterHolidays(c echo.Context) error {
	added, err := h.slots.RegisterHolidays(c.Request().Context(), actor(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"added": added})
}
