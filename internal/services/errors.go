package services

import "github.com/pkg/errors"

// Ошибки уровня сервиса. Хендлеры маппят их в HTTP-статусы через errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrAlreadyExists      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("user not found")
	ErrCodeMismatch       = errors.New("invalid otp")
	ErrChallengeExpired   = errors.New("otp expired")
	ErrInvalidToken       = errors.New("invalid token")
	ErrDeliveryFailed     = errors.New("verification email delivery failed")
	ErrStoreUnavailable   = errors.New("account store unavailable")
)
