package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/gamecore/internal/middleware"
	"github.com/temcen/gamecore/internal/services"
	"github.com/temcen/gamecore/pkg/models"
)

const usageWindowDays = 30

type UsageHandler struct {
	logger *logrus.Logger
	usage  services.UsageReader
	now    func() time.Time
}

func NewUsageHandler(logger *logrus.Logger, usage services.UsageReader) *UsageHandler {
	return &UsageHandler{
		logger: logger,
		usage:  usage,
		now:    time.Now,
	}
}

// Get lists the calling key's counters for the last 30 days.
func (h *UsageHandler) Get(c *gin.Context) {
	key, ok := middleware.GetAPIKey(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "API key required")
		return
	}

	since := h.now().UTC().AddDate(0, 0, -usageWindowDays)
	records, err := h.usage.UsageForKey(c.Request.Context(), key.ID, since)
	if err != nil {
		h.logger.WithError(err).WithField("api_key_id", key.ID).Error("Failed to load usage")
		respondError(c, http.StatusInternalServerError, "Failed to load usage")
		return
	}
	if records == nil {
		records = []models.UsageRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"api_key_id": key.ID,
		"since":      since.Format("2006-01-02"),
		"usage":      records,
	})
}
