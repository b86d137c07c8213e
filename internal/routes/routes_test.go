package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secureauth/internal/auth"
	"secureauth/internal/handlers"
	"secureauth/internal/repositories"
	"secureauth/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

// captureDispatcher запоминает последний код для каждого адреса.
type captureDispatcher struct {
	mu    sync.Mutex
	codes map[string]string
}

func (d *captureDispatcher) Send(_ context.Context, to, code string, _ services.ChallengeKind) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.codes[to] = code
	return nil
}

func (d *captureDispatcher) code(email string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.codes[email]
}

func newTestServer(t *testing.T) (*gin.Engine, *captureDispatcher) {
	t.Helper()
	tokens, err := auth.NewTokenIssuer("route-test-secret")
	require.NoError(t, err)
	dispatcher := &captureDispatcher{codes: map[string]string{}}
	svc := services.NewAuthService(
		repositories.NewMemoryAccountRepository(),
		auth.NewPasswordHasher(4),
		auth.NewOTPGenerator(),
		tokens,
		dispatcher,
	)
	r := gin.New()
	SetupRoutes(r, tokens,
		handlers.NewAuthHandler(svc),
		handlers.NewVerifyHandler(svc),
		handlers.NewHealthHandler("test"),
	)
	return r, dispatcher
}

func do(t *testing.T, r http.Handler, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func TestFullVerificationFlow(t *testing.T) {
	r, dispatcher := newTestServer(t)
	creds := gin.H{"email": "a@x.com", "password": "Secret123"}

	status, body := do(t, r, http.MethodPost, "/api/signup", "", creds)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Signup successful. Please check your email for verification code.", body["message"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	status, body = do(t, r, http.MethodPost, "/api/signin", "", creds)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["isVerified"])
	assert.Nil(t, body["username"])

	code := dispatcher.code("a@x.com")
	require.Len(t, code, 6)

	status, body = do(t, r, http.MethodPost, "/api/verify", token, gin.H{"email": "a@x.com", "otp": code})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Account verified successfully", body["message"])

	// повтор того же кода
	status, body = do(t, r, http.MethodPost, "/api/verify", token, gin.H{"email": "a@x.com", "otp": code})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid OTP", body["message"])

	status, body = do(t, r, http.MethodPost, "/api/signin", "", creds)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["isVerified"])
}

func TestResendFlow(t *testing.T) {
	r, dispatcher := newTestServer(t)
	_, body := do(t, r, http.MethodPost, "/api/signup", "", gin.H{"email": "a@x.com", "password": "pw"})
	token := body["token"].(string)
	first := dispatcher.code("a@x.com")

	status, body := do(t, r, http.MethodPost, "/api/resend-otp", token, gin.H{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "New verification code sent successfully", body["message"])
	second := dispatcher.code("a@x.com")

	if first != second {
		status, body = do(t, r, http.MethodPost, "/api/verify", token, gin.H{"email": "a@x.com", "otp": first})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Invalid OTP", body["message"])
	}
	status, _ = do(t, r, http.MethodPost, "/api/verify", token, gin.H{"email": "a@x.com", "otp": second})
	assert.Equal(t, http.StatusOK, status)
}

func TestSignupErrors(t *testing.T) {
	r, _ := newTestServer(t)
	creds := gin.H{"email": "a@x.com", "password": "pw"}

	status, _ := do(t, r, http.MethodPost, "/api/signup", "", creds)
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, r, http.MethodPost, "/api/signup", "", creds)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "User already exists", body["message"])

	status, _ = do(t, r, http.MethodPost, "/api/signup", "", gin.H{"email": "b@x.com"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSigninInvalidCredentials(t *testing.T) {
	r, _ := newTestServer(t)
	do(t, r, http.MethodPost, "/api/signup", "", gin.H{"email": "a@x.com", "password": "right"})

	s1, b1 := do(t, r, http.MethodPost, "/api/signin", "", gin.H{"email": "a@x.com", "password": "wrong"})
	s2, b2 := do(t, r, http.MethodPost, "/api/signin", "", gin.H{"email": "ghost@x.com", "password": "right"})
	assert.Equal(t, http.StatusBadRequest, s1)
	assert.Equal(t, s1, s2)
	assert.Equal(t, "Invalid credentials", b1["message"])
	assert.Equal(t, b1, b2)
}

func TestGuard(t *testing.T) {
	r, _ := newTestServer(t)
	payload := gin.H{"email": "a@x.com", "otp": "123456"}

	status, body := do(t, r, http.MethodPost, "/api/verify", "", payload)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Access denied", body["message"])

	status, body = do(t, r, http.MethodPost, "/api/verify", "garbage.token.value", payload)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Invalid token", body["message"])

	other, err := auth.NewTokenIssuer("another-secret")
	require.NoError(t, err)
	forged, err := other.Issue("acc-1", "a@x.com")
	require.NoError(t, err)
	status, _ = do(t, r, http.MethodPost, "/api/resend-otp", forged, gin.H{"email": "a@x.com"})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestVerifyOtherAccountRejected(t *testing.T) {
	r, dispatcher := newTestServer(t)
	_, a := do(t, r, http.MethodPost, "/api/signup", "", gin.H{"email": "a@x.com", "password": "pw"})
	do(t, r, http.MethodPost, "/api/signup", "", gin.H{"email": "b@x.com", "password": "pw"})

	status, body := do(t, r, http.MethodPost, "/api/verify", a["token"].(string),
		gin.H{"email": "b@x.com", "otp": dispatcher.code("b@x.com")})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Invalid token", body["message"])
}

func TestHealth(t *testing.T) {
	r, _ := newTestServer(t)
	status, body := do(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["environment"])
}
