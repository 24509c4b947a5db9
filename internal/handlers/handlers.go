package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/gamecore/internal/services"
	"github.com/temcen/gamecore/pkg/models"
)

type Handlers struct {
	Health *HealthHandler
	Auth   *AuthHandler
	Usage  *UsageHandler
}

func New(logger *logrus.Logger, services *services.Services) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(logger, services.Health),
		Auth:   NewAuthHandler(logger, services.Accounts),
		Usage:  NewUsageHandler(logger, services.Usage),
	}
}

// Index describes the service and the routes it exposes.
func (h *Handlers) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "GameCore API",
		"version": services.Version,
		"endpoints": gin.H{
			"auth":    "/api/v1/auth",
			"usage":   "/api/v1/usage",
			"health":  "/health",
			"metrics": "/metrics",
		},
	})
}

// NotFound answers unmatched routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":  "Endpoint not found",
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, models.ErrorResponse{Error: message})
}
