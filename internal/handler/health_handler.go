package handler

import (
	"net/http"

	"bookkeeping/internal/service"
	"bookkeeping/pkg/response"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	healthService service.HealthService
}

func NewHealthHandler(healthService service.HealthService) *HealthHandler {
	return &HealthHandler{healthService: healthService}
}

// Check reports liveness and database connectivity
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  response.Response{data=service.HealthStatus}
// @Failure      503  {object}  response.Response{data=service.HealthStatus}
// @Router       /health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	status, healthy := h.healthService.Check(c.Request.Context())
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, response.Response{
			Success: false,
			Data:    status,
			Error:   "Database unavailable",
		})
		return
	}
	ok(c, status)
}
