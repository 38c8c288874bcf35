package doctor

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medbook/medbook-api/internal/handler"
	"github.com/medbook/medbook-api/internal/middleware"
	"github.com/medbook/medbook-api/internal/model"
	"github.com/medbook/medbook-api/internal/service/booking"
	"github.com/medbook/medbook-api/internal/service/scheduleapi"
)

type Handler struct {
	bookingSvc  *booking.Service
	scheduleSvc *scheduleapi.Service
}

func NewHandler(bookingSvc *booking.Service, scheduleSvc *scheduleapi.Service) *Handler {
	return &Handler{bookingSvc: bookingSvc, scheduleSvc: scheduleSvc}
}

// GetAvailableSlots is public: patients consult it while booking.
func (h *Handler) GetAvailableSlots(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}

	date, err := model.ParseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid date format, expected YYYY-MM-DD"))
		return
	}

	listing, err := h.scheduleSvc.ListAvailableSlots(c.Request.Context(), doctorID, date)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(listing))
}

func (h *Handler) ListAppointments(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}

	appointments, err := h.bookingSvc.ListForOwner(c.Request.Context(), model.RoleDoctor, doctorID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

func (h *Handler) AddAppointment(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}

	var req model.AddAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	apt, err := h.bookingSvc.BookByDoctor(c.Request.Context(), doctorID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(apt))
}

func (h *Handler) UpdateAppointmentStatus(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}
	appointmentID, err := uuid.Parse(c.Param("appointmentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	var req model.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	apt, err := h.bookingSvc.SetStatus(c.Request.Context(), doctorID, appointmentID, req.Status)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}
	appointmentID, err := uuid.Parse(c.Param("appointmentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	if err := h.bookingSvc.Delete(c.Request.Context(), doctorID, appointmentID); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) UpdateWorkingHours(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}

	var req model.UpdateWorkingHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.scheduleSvc.UpdateWorkingHours(c.Request.Context(), doctorID, &req); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMw *middleware.AuthMiddleware) {
	doctors := r.Group("/doctors/:id")
	{
		doctors.GET("/slots", h.GetAvailableSlots)

		owned := doctors.Group("")
		owned.Use(authMw.Authenticate(), authMw.RequireSelf(model.RoleDoctor))
		{
			owned.GET("/appointments", h.ListAppointments)
			owned.POST("/appointments", h.AddAppointment)
			owned.PATCH("/appointments/:appointmentID", h.UpdateAppointmentStatus)
			owned.DELETE("/appointments/:appointmentID", h.DeleteAppointment)
			owned.PUT("/working-hours", h.UpdateWorkingHours)
		}
	}
}
