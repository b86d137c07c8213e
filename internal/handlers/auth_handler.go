package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"secureauth/internal/models"
	"secureauth/internal/services"
)

const signupMessage = "Signup successful. Please check your email for verification code."

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// @Summary      Регистрация
// @Description  Создаёт аккаунт, отправляет код подтверждения на почту и возвращает токен
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      models.CredentialsRequest  true  "Email и пароль"
// @Success      200          {object}  models.SignupResponse
// @Failure      400          {object}  models.MessageResponse
// @Failure      502          {object}  models.MessageResponse
// @Failure      500          {object}  models.MessageResponse
// @Router       /api/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[auth][signup]", err, "Email and password are required")
		return
	}

	res, err := h.authService.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, "[auth][signup]", err)
		return
	}

	c.JSON(http.StatusOK, models.SignupResponse{Token: res.Token, Message: signupMessage})
}

// @Summary      Вход
// @Description  Проверяет пароль и возвращает токен и статус подтверждения
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      models.CredentialsRequest  true  "Email и пароль"
// @Success      200          {object}  models.SigninResponse
// @Failure      400          {object}  models.MessageResponse
// @Failure      500          {object}  models.MessageResponse
// @Router       /api/signin [post]
func (h *AuthHandler) Signin(c *gin.Context) {
	var req models.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[auth][signin]", err, "Email and password are required")
		return
	}

	res, err := h.authService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, "[auth][signin]", err)
		return
	}

	c.JSON(http.StatusOK, models.SigninResponse{
		Token:      res.Token,
		IsVerified: res.IsVerified,
		Username:   res.Username,
	})
}
