package directory

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medbook/medbook-api/internal/handler"
	"github.com/medbook/medbook-api/internal/middleware"
	"github.com/medbook/medbook-api/internal/model"
	"github.com/medbook/medbook-api/internal/service/directory"
)

type Handler struct {
	service *directory.Service
}

func NewHandler(service *directory.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListDoctorsByDepartment(c *gin.Context) {
	department := c.Param("department")
	if department == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("department is required"))
		return
	}

	doctors, err := h.service.DoctorsByDepartment(c.Request.Context(), department)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(doctors))
}

func (h *Handler) ListPatients(c *gin.Context) {
	patients, err := h.service.Patients(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patients))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMw *middleware.AuthMiddleware) {
	r.GET("/doctors/department/:department", h.ListDoctorsByDepartment)

	// Only doctors see the patient roster; they need it to add
	// appointments on a patient's behalf.
	r.GET("/patients", authMw.Authenticate(), authMw.RequireRole(model.RoleDoctor), h.ListPatients)
}
