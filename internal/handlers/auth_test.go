package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/kassenwart/finepot-api/internal/middleware"
	"github.com/kassenwart/finepot-api/internal/models"
	"github.com/kassenwart/finepot-api/internal/services"
	"github.com/kassenwart/finepot-api/pkg/dto"
	"github.com/kassenwart/finepot-api/tests/testutil"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupAuthTest(t *testing.T) (*testutil.MockUserService, *testutil.MockTokenService, *AuthHandler, *services.JWTService) {
	t.Helper()
	mockUserService := new(testutil.MockUserService)
	mockTokenService := new(testutil.MockTokenService)
	jwtSvc := newTestJWTService()
	handler := NewAuthHandler(mockUserService, mockTokenService, jwtSvc)
	return mockUserService, mockTokenService, handler, jwtSvc
}

func newAuthApp(handler *AuthHandler, jwtSvc *services.JWTService) http.Handler {
	app := drift.New()
	app.Use(driftmw.BodyParser())

	auth := app.Group("/auth")
	auth.Post("/register", handler.Register)
	auth.Post("/login", handler.Login)
	auth.Post("/refresh", handler.RefreshToken)
	auth.Post("/logout", handler.Logout)

	protected := auth.Group("")
	protected.Use(middleware.Auth(jwtSvc))
	protected.Post("/logout-all", handler.LogoutAll)
	return app
}

func TestAuthHandler_Register_Success(t *testing.T) {
	mockUserService, mockTokenService, handler, jwtSvc := setupAuthTest(t)

	userID := uuid.New()
	user := &models.User{
		ID:    userID,
		Email: "new@example.com",
		Name:  "New User",
	}

	mockUserService.On("Register", mock.Anything, "new@example.com", "New User", "password123").Return(user, nil)
	mockTokenService.On("StoreRefreshToken", mock.Anything, userID, mock.Anything, mock.Anything).Return(nil)

	app := newAuthApp(handler, jwtSvc)

	body := dto.RegisterRequest{Email: "new@example.com", Name: "New User", Password: "password123"}
	jsonBody, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var response dto.TokenResponse
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.NotEmpty(t, response.AccessToken)
	assert.NotEmpty(t, response.RefreshToken)
	assert.Greater(t, response.ExpiresIn, int64(0))

	mockUserService.AssertExpectations(t)
	mockTokenService.AssertExpectations(t)
}

func TestAuthHandler_Register_MissingFields(t *testing.T) {
	_, _, handler, jwtSvc := setupAuthTest(t)

	app := newAuthApp(handler, jwtSvc)

	body := dto.RegisterRequest{Email: "new@example.com"}
	jsonBody, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "email, name and password are required")
}

func TestAuthHandler_Register_EmailExists(t *testing.T) {
	mockUserService, _, handler, jwtSvc := setupAuthTest(t)

	mockUserService.On("Register", mock.Anything, "taken@example.com", "New User", "password123").
		Return(nil, services.ErrEmailExists)

	app := newAuthApp(handler, jwtSvc)

	body := dto.RegisterRequest{Email: "taken@example.com", Name: "New User", Password: "password123"}
	jsonBody, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)

	var response dto.ErrorResponse
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "CONFLICT", response.Code)
	assert.Equal(t, "email already registered", response.Message)

	mockUserService.AssertExpectations(t)
}

func TestAuthHandler_Register_WeakPassword(t *testing.T) {
	mockUserService, _, handler, jwtSvc := setupAuthTest(t)

	mockUserService.On("Register", mock.Anything, "new@example.com", "New User", "short").
		Return(nil, services.ErrWeakPassword)

	app := newAuthApp(handler, jwtSvc)

	body := dto.RegisterRequest{Email: "new@example.com", Name: "New User", Password: "short"}
	jsonBody, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var response dto.ErrorResponse
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "INVALID_INPUT", response.Code)

	mockUserService.AssertExpectations(t)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	mockUserService, mockTokenService, handler, jwtSvc := setupAuthTest(t)

	userID := uuid.New()
	user := &models.User{
		ID:    userID,
		Email: "test@example.com",
		Name:  "Test User",
	}

	mockUserService.On("Authenticate", mock.Anything, "test@example.com", "password123").Return(user, nil)
	mockTokenService.On("StoreRefreshToken", mock.Anything, userID, mock.Anything, mock.Anything).Return(nil)

	app := newAuthApp(handler, jwtSvc)

	body := dto.LoginRequest{Email: "test@example.com", Password: "password123"}
	jsonBody, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.TokenResponse
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.NotEmpty(t, response.AccessToken)
	assert.NotEmpty(t, response.RefreshToken)

	mockUserService.AssertExpectations(t)
	mockTokenService.AssertExpectations(t)
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	mockUserService, _, handler, jwtSvc := setupAuthTest(t)

	mockUserService.On("Authenticate", mock.Anything, "test@example.com", "wrong").
		Return(nil, services.ErrInvalidCredentials)

	app := newAuthApp(handler, jwtSvc)

	body := dto.LoginRequest{Email: "test@example.com", Password: "wrong"}
	jsonBody, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")

	mockUserService.AssertExpectations(t)
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	_, _, handler, jwtSvc := setupAuthTest(t)

	app := newAuthApp(handler, jwtSvc)

	body := dto.LoginRequest{Email: "test@example.com"}
	jsonBody, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "email and password are required")
}

func TestAuthHandler_RefreshToken_Success(t *testing.T) {
	mockUserService, mockTokenService, handler, jwtSvc := setupAuthTest(t)

	userID := uuid.New()
	email := "test@example.com"
	user := &models.User{ID: userID, Email: email, Name: "Test User"}

	pair, err := jwtSvc.GenerateTokenPair(userID, email)
	require.NoError(t, err)
	tokenHash := services.HashToken(pair.RefreshToken)

	mockTokenService.On("ValidateRefreshToken", mock.Anything, tokenHash).Return(userID, nil)
	mockUserService.On("GetByID", mock.Anything, userID).Return(user, nil)
	mockTokenService.On("RevokeRefreshToken", mock.Anything, tokenHash).Return(nil)
	mockTokenService.On("StoreRefreshToken", mock.Anything, userID, mock.Anything, mock.Anything).Return(nil)

	app := newAuthApp(handler, jwtSvc)

	body := dto.RefreshTokenRequest{RefreshToken: pair.RefreshToken}
	jsonBody, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.TokenResponse
	err = json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.NotEmpty(t, response.AccessToken)
	assert.NotEmpty(t, response.RefreshToken)

	mockUserService.AssertExpectations(t)
	mockTokenService.AssertExpectations(t)
}

func TestAuthHandler_RefreshToken_InvalidToken(t *testing.T) {
	_, _, handler, jwtSvc := setupAuthTest(t)

	app := newAuthApp(handler, jwtSvc)

	body := dto.RefreshTokenRequest{RefreshToken: "not-a-valid-token"}
	jsonBody, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid refresh token")
}

func TestAuthHandler_RefreshToken_NotStored(t *testing.T) {
	_, mockTokenService, handler, jwtSvc := setupAuthTest(t)

	userID := uuid.New()
	pair, err := jwtSvc.GenerateTokenPair(userID, "test@example.com")
	require.NoError(t, err)
	tokenHash := services.HashToken(pair.RefreshToken)

	mockTokenService.On("ValidateRefreshToken", mock.Anything, tokenHash).
		Return(uuid.Nil, errors.New("token not found"))

	app := newAuthApp(handler, jwtSvc)

	body := dto.RefreshTokenRequest{RefreshToken: pair.RefreshToken}
	jsonBody, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "refresh token not found or expired")

	mockTokenService.AssertExpectations(t)
}

func TestAuthHandler_Logout_Success(t *testing.T) {
	_, mockTokenService, handler, jwtSvc := setupAuthTest(t)

	userID := uuid.New()
	pair, err := jwtSvc.GenerateTokenPair(userID, "test@example.com")
	require.NoError(t, err)
	tokenHash := services.HashToken(pair.RefreshToken)

	mockTokenService.On("RevokeRefreshToken", mock.Anything, tokenHash).Return(nil)

	app := newAuthApp(handler, jwtSvc)

	body := dto.RefreshTokenRequest{RefreshToken: pair.RefreshToken}
	jsonBody, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "logged out")

	mockTokenService.AssertExpectations(t)
}

func TestAuthHandler_LogoutAll_Success(t *testing.T) {
	_, mockTokenService, handler, jwtSvc := setupAuthTest(t)

	userID := uuid.New()
	email := "test@example.com"

	mockTokenService.On("RevokeAllUserTokens", mock.Anything, userID).Return(nil)

	app := newAuthApp(handler, jwtSvc)

	token := generateTestToken(t, jwtSvc, userID, email)
	req := httptest.NewRequest(http.MethodPost, "/auth/logout-all", bytes.NewReader([]byte("{}")))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "all sessions logged out")

	mockTokenService.AssertExpectations(t)
}

func TestAuthHandler_LogoutAll_NotAuthenticated(t *testing.T) {
	_, _, handler, jwtSvc := setupAuthTest(t)

	app := newAuthApp(handler, jwtSvc)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout-all", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
