package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medbook/medbook-api/internal/handler"
	"github.com/medbook/medbook-api/internal/middleware"
	"github.com/medbook/medbook-api/internal/model"
	"github.com/medbook/medbook-api/internal/service/booking"
)

type Handler struct {
	bookingSvc *booking.Service
}

func NewHandler(bookingSvc *booking.Service) *Handler {
	return &Handler{bookingSvc: bookingSvc}
}

func (h *Handler) ListAppointments(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	appointments, err := h.bookingSvc.ListForOwner(c.Request.Context(), model.RolePatient, patientID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

func (h *Handler) BookAppointment(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	var req model.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	apt, err := h.bookingSvc.BookByPatient(c.Request.Context(), patientID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(apt))
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}
	appointmentID, err := uuid.Parse(c.Param("appointmentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	apt, err := h.bookingSvc.Cancel(c.Request.Context(), patientID, appointmentID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMw *middleware.AuthMiddleware) {
	patients := r.Group("/patients/:id")
	patients.Use(authMw.Authenticate(), authMw.RequireSelf(model.RolePatient))
	{
		patients.GET("/appointments", h.ListAppointments)
		patients.POST("/appointments", h.BookAppointment)
		patients.DELETE("/appointments/:appointmentID", h.CancelAppointment)
	}
}
