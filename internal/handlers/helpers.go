package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"secureauth/internal/services"
)

// respondError маппит ошибку сервиса в статус и {"message": ...}.
// Внутренние детали наружу не уходят, только в лог.
func respondError(c *gin.Context, tag string, err error) {
	status, msg := http.StatusInternalServerError, "Server error"
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		status, msg = http.StatusBadRequest, "Email and password are required"
	case errors.Is(err, services.ErrAlreadyExists):
		status, msg = http.StatusBadRequest, "User already exists"
	case errors.Is(err, services.ErrInvalidCredentials):
		status, msg = http.StatusBadRequest, "Invalid credentials"
	case errors.Is(err, services.ErrAccountNotFound):
		status, msg = http.StatusBadRequest, "User not found"
	case errors.Is(err, services.ErrCodeMismatch):
		status, msg = http.StatusBadRequest, "Invalid OTP"
	case errors.Is(err, services.ErrChallengeExpired):
		status, msg = http.StatusBadRequest, "OTP expired"
	case errors.Is(err, services.ErrInvalidToken):
		status, msg = http.StatusForbidden, "Invalid token"
	case errors.Is(err, services.ErrDeliveryFailed):
		status, msg = http.StatusBadGateway, "Failed to send verification email"
	case errors.Is(err, services.ErrStoreUnavailable):
		status, msg = http.StatusServiceUnavailable, "Service temporarily unavailable"
	}

	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error().Stack()
	}
	ev.Err(err).Int("status", status).Msg(tag + " failed")
	_ = c.Error(err)
	c.JSON(status, gin.H{"message": msg})
}

func badRequest(c *gin.Context, tag string, err error, msg string) {
	log.Warn().Err(err).Msg(tag + " bad request: bind json failed")
	c.JSON(http.StatusBadRequest, gin.H{"message": msg})
}
