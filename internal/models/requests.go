package models

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type VerifyRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

type ResendRequest struct {
	Email string `json:"email" binding:"required"`
}

type SignupResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

type SigninResponse struct {
	Token      string  `json:"token"`
	IsVerified bool    `json:"isVerified"`
	Username   *string `json:"username"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
}
