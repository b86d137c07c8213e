package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"secureauth/internal/middleware"
	"secureauth/internal/models"
	"secureauth/internal/services"
)

type VerifyHandler struct {
	authService services.AuthService
}

func NewVerifyHandler(authService services.AuthService) *VerifyHandler {
	return &VerifyHandler{authService: authService}
}

// @Summary      Подтверждение почты
// @Description  Проверяет одноразовый код и помечает аккаунт подтверждённым
// @Tags         Verification
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.VerifyRequest  true  "Email и код"
// @Success      200   {object}  models.MessageResponse
// @Failure      400   {object}  models.MessageResponse
// @Failure      401   {object}  models.MessageResponse
// @Failure      403   {object}  models.MessageResponse
// @Router       /api/verify [post]
func (h *VerifyHandler) Verify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[auth][verify]", err, "Email and OTP are required")
		return
	}
	identity, _ := middleware.IdentityFrom(c)

	if err := h.authService.VerifyChallenge(c.Request.Context(), identity, req.Email, req.OTP); err != nil {
		respondError(c, "[auth][verify]", err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Account verified successfully"})
}

// @Summary      Новый код
// @Description  Выпускает новый код подтверждения, старый перестаёт действовать
// @Tags         Verification
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.ResendRequest  true  "Email"
// @Success      200   {object}  models.MessageResponse
// @Failure      400   {object}  models.MessageResponse
// @Failure      401   {object}  models.MessageResponse
// @Failure      403   {object}  models.MessageResponse
// @Failure      502   {object}  models.MessageResponse
// @Router       /api/resend-otp [post]
func (h *VerifyHandler) ResendOTP(c *gin.Context) {
	var req models.ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[auth][resend]", err, "Email is required")
		return
	}
	identity, _ := middleware.IdentityFrom(c)

	if err := h.authService.ReissueChallenge(c.Request.Context(), identity, req.Email); err != nil {
		respondError(c, "[auth][resend]", err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "New verification code sent successfully"})
}
