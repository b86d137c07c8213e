package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"secureauth/internal/models"
)

type HealthHandler struct {
	environment string
}

func NewHealthHandler(environment string) *HealthHandler {
	return &HealthHandler{environment: environment}
}

// @Summary      Healthcheck
// @Tags         System
// @Produce      json
// @Success      200  {object}  models.HealthResponse
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{Status: "ok", Environment: h.environment})
}
