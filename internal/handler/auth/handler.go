package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medbook/medbook-api/internal/handler"
	"github.com/medbook/medbook-api/internal/model"
	"github.com/medbook/medbook-api/internal/service/auth"
	"github.com/medbook/medbook-api/internal/service/directory"
)

type Handler struct {
	service   *auth.Service
	directory *directory.Service
}

func NewHandler(service *auth.Service, directory *directory.Service) *Handler {
	return &Handler{service: service, directory: directory}
}

func (h *Handler) Signup(c *gin.Context) {
	var req model.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	user, err := h.service.Signup(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	// New doctors and patients should appear in the pickers right away.
	h.directory.Flush()

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(user))
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/signup", h.Signup)
		authRoutes.POST("/login", h.Login)
	}
}
