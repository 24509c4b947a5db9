package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/gamecore/internal/middleware"
	"github.com/temcen/gamecore/internal/services"
	"github.com/temcen/gamecore/pkg/models"
)

type AuthHandler struct {
	logger    *logrus.Logger
	accounts  services.AccountServiceInterface
	validator *validator.Validate
}

func NewAuthHandler(logger *logrus.Logger, accounts services.AccountServiceInterface) *AuthHandler {
	return &AuthHandler{
		logger:    logger,
		accounts:  accounts,
		validator: validator.New(),
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.accounts.Register(c.Request.Context(), &req)
	switch {
	case errors.Is(err, services.ErrAccountExists):
		respondError(c, http.StatusConflict, "Email or username already registered")
		return
	case errors.Is(err, services.ErrPasswordTooLong):
		respondError(c, http.StatusBadRequest, "Password must be at most 72 bytes")
		return
	case err != nil:
		h.logger.WithError(err).Error("Failed to register account")
		respondError(c, http.StatusInternalServerError, "Registration failed")
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), &req)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	case err != nil:
		h.logger.WithError(err).Error("Failed to log in")
		respondError(c, http.StatusInternalServerError, "Login failed")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Me returns the identity attached by the session guard.
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.GetUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "No token provided")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": identity})
}

func (h *AuthHandler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.WithError(err).Debug("Failed to bind auth request")
		respondError(c, http.StatusBadRequest, "Invalid request format")
		return false
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.WithError(err).Debug("Validation failed for auth request")
		respondError(c, http.StatusBadRequest, "Request validation failed")
		return false
	}

	return true
}
