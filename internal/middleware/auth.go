package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/gamecore/internal/database"
	"github.com/temcen/gamecore/internal/services"
	"github.com/temcen/gamecore/pkg/models"
)

const (
	// Context keys set by the guards.
	UserKey   = "user"
	APIKeyKey = "apiKey"

	APIKeyHeader = "X-Api-Key"
	bearerPrefix = "Bearer "

	msgNoToken        = "No token provided"
	msgInvalidToken   = "Invalid token"
	msgAPIKeyRequired = "API key required"
	msgInvalidAPIKey  = "Invalid API key"
	msgAuthFailed     = "Authentication failed"
)

// SessionAuth requires "Authorization: Bearer <token>". A header with any
// other scheme counts as no token at all.
func SessionAuth(tokens services.TokenVerifier, metrics *services.AuthMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			metrics.AuthAttempt(services.GuardSession, services.OutcomeMissing)
			abortWithError(c, http.StatusUnauthorized, msgNoToken)
			return
		}

		identity, ok := tokens.Verify(strings.TrimPrefix(authHeader, bearerPrefix))
		if !ok {
			metrics.AuthAttempt(services.GuardSession, services.OutcomeInvalid)
			abortWithError(c, http.StatusUnauthorized, msgInvalidToken)
			return
		}

		metrics.AuthAttempt(services.GuardSession, services.OutcomeSuccess)
		c.Set(UserKey, identity)
		c.Next()
	}
}

// APIKeyAuth requires an active key in X-Api-Key. On success the key record
// is attached and one usage increment for the request path is scheduled
// without waiting for it.
func APIKeyAuth(keys services.KeyLookup, tracker services.UsageTrackerInterface, metrics *services.AuthMetrics, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := c.GetHeader(APIKeyHeader)
		if rawKey == "" {
			metrics.AuthAttempt(services.GuardAPIKey, services.OutcomeMissing)
			abortWithError(c, http.StatusUnauthorized, msgAPIKeyRequired)
			return
		}

		apiKey, err := keys.LookupActiveKey(c.Request.Context(), rawKey)
		if errors.Is(err, database.ErrAPIKeyNotFound) {
			metrics.AuthAttempt(services.GuardAPIKey, services.OutcomeInvalid)
			logger.WithField("path", c.Request.URL.Path).Debug("Rejected unknown or inactive API key")
			abortWithError(c, http.StatusUnauthorized, msgInvalidAPIKey)
			return
		}
		if err != nil {
			metrics.AuthAttempt(services.GuardAPIKey, services.OutcomeError)
			logger.WithError(err).WithField("path", c.Request.URL.Path).Error("API key authentication error")
			abortWithError(c, http.StatusInternalServerError, msgAuthFailed)
			return
		}

		metrics.AuthAttempt(services.GuardAPIKey, services.OutcomeSuccess)
		c.Set(APIKeyKey, apiKey)

		// Outcome is logged by the tracker; the request does not wait on it.
		_ = tracker.Track(c.Request.Context(), apiKey.ID, c.Request.URL.Path)

		c.Next()
	}
}

func GetUser(c *gin.Context) (*models.Identity, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*models.Identity)
	return identity, ok
}

func GetAPIKey(c *gin.Context) (*models.APIKey, bool) {
	v, ok := c.Get(APIKeyKey)
	if !ok {
		return nil, false
	}
	key, ok := v.(*models.APIKey)
	return key, ok
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: message})
}
