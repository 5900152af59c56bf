package availability

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, public *echo.Group) {
	public.GET("/availabilities", h.ListByDoctor)

	staff := api.Group("", auth.RequireStaff())
	staff.POST("/availabilities", h.Create)
	staff.PUT("/availabilities/:id", h.Update)
	staff.DELETE("/availabilities/:id", h.Delete)
}

type windowRequest struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	Weekday   int       `json:"weekday"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
}

type windowResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Weekday   int       `json:"weekday"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
}

func toResponse(w *Window) windowResponse {
	return windowResponse{
		ID:        w.ID,
		DoctorID:  w.DoctorID,
		Weekday:   w.Weekday,
		StartTime: w.StartLabel(),
		EndTime:   w.EndLabel(),
	}
}

func (h *Handler) bindWindow(c echo.Context) (*Window, error) {
	var req windowRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	start, err := ParseClock(req.StartTime)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	end, err := ParseClock(req.EndTime)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return &Window{
		DoctorID:    req.DoctorID,
		Weekday:     req.Weekday,
		StartMinute: start,
		EndMinute:   end,
	}, nil
}

// canManage reports whether the caller may write windows for doctorID.
// Doctors manage only their own calendar, admins manage any.
func canManage(c echo.Context, doctorID uuid.UUID) bool {
	ctx := c.Request().Context()
	if auth.RoleFromContext(ctx) == auth.RoleAdmin {
		return true
	}
	return auth.UserIDFromContext(ctx) == doctorID.String()
}

func (h *Handler) Create(c echo.Context) error {
	w, err := h.bindWindow(c)
	if err != nil {
		return err
	}
	if !canManage(c, w.DoctorID) {
		return echo.NewHTTPError(http.StatusForbidden, "cannot manage another doctor's availability")
	}
	if err := h.svc.CreateWindow(c.Request().Context(), w); err != nil {
		if errors.Is(err, ErrInvalidWindow) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, toResponse(w))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	existing, err := h.svc.GetWindow(c.Request().Context(), id)
	if errors.Is(err, ErrWindowNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "availability window not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !canManage(c, existing.DoctorID) {
		return echo.NewHTTPError(http.StatusForbidden, "cannot manage another doctor's availability")
	}

	w, err := h.bindWindow(c)
	if err != nil {
		return err
	}
	w.ID = id
	w.DoctorID = existing.DoctorID
	if err := h.svc.UpdateWindow(c.Request().Context(), w); err != nil {
		if errors.Is(err, ErrInvalidWindow) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toResponse(w))
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	existing, err := h.svc.GetWindow(c.Request().Context(), id)
	if errors.Is(err, ErrWindowNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "availability window not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !canManage(c, existing.DoctorID) {
		return echo.NewHTTPError(http.StatusForbidden, "cannot manage another doctor's availability")
	}

	if err := h.svc.DeleteWindow(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id query parameter is required")
	}
	windows, err := h.svc.ListByDoctor(c.Request().Context(), doctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]windowResponse, 0, len(windows))
	for _, w := range windows {
		out = append(out, toResponse(w))
	}
	return c.JSON(http.StatusOK, out)
}
