package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	domain "user-service/internal/domain/user"
	"user-service/internal/usecase/user"
	apperrors "user-service/pkg/errors"
)

// MockUsecase is a mock implementation of the user.Usecase interface
type MockUsecase struct {
	mock.Mock
}

func (m *MockUsecase) CreateUser(ctx context.Context, in user.CreateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUsecase) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUsecase) ListUsers(ctx context.Context, in user.ListUsersRequest) ([]domain.User, error) {
	args := m.Called(ctx, in)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUsecase) UpdateUser(ctx context.Context, in user.UpdateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUsecase) DeleteUser(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func setupTestRouter(t *testing.T) (*gin.Engine, *MockUsecase) {
	gin.SetMode(gin.TestMode)

	mockUC := new(MockUsecase)
	h := NewUserHandler(mockUC, zaptest.NewLogger(t))

	router := gin.New()
	users := router.Group("/api/v1/users")
	users.POST("", h.CreateUser)
	users.GET("", h.ListUsers)
	users.GET("/:id", h.GetUser)
	users.PUT("/:id", h.UpdateUser)
	users.DELETE("/:id", h.DeleteUser)

	return router, mockUC
}

func performJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sampleUser(id int64) *domain.User {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &domain.User{
		ID:           id,
		Name:         "John Doe",
		Email:        "john@example.com",
		PasswordHash: "$2a$10$secret-digest",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestCreateUser_Returns201WithoutPassword(t *testing.T) {
	router, mockUC := setupTestRouter(t)

	mockUC.On("CreateUser", mock.Anything, user.CreateUserRequest{
		Name:     "John Doe",
		Email:    "john@example.com",
		Password: "a_secure_password",
	}).Return(sampleUser(1), nil)

	w := performJSON(router, http.MethodPost, "/api/v1/users", gin.H{
		"name":     "John Doe",
		"email":    "john@example.com",
		"password": "a_secure_password",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["id"])
	assert.Equal(t, "John Doe", body["name"])
	assert.Equal(t, "john@example.com", body["email"])
	assert.Contains(t, body, "created_at")
	assert.Contains(t, body, "updated_at")
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "password_hash")
	assert.NotContains(t, w.Body.String(), "secret-digest")
}

func TestCreateUser_EmptyPayloadReturns422(t *testing.T) {
	router, mockUC := setupTestRouter(t)

	w := performJSON(router, http.MethodPost, "/api/v1/users", gin.H{})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	mockUC.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestCreateUser_InvalidEmailReturns422(t *testing.T) {
	router, mockUC := setupTestRouter(t)

	w := performJSON(router, http.MethodPost, "/api/v1/users", gin.H{
		"name":     "John Doe",
		"email":    "not-an-email",
		"password": "a_secure_password",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	mockUC.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestCreateUser_DuplicateEmailReturns400(t *testing.T) {
	router, mockUC := setupTestRouter(t)

	mockUC.On("CreateUser", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewAlreadyExistsError("user", "email already registered"))

	w := performJSON(router, http.MethodPost, "/api/v1/users", gin.H{
		"name":     "John Doe",
		"email":    "taken@example.com",
		"password": "a_secure_password",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "email already registered")
}

func TestGetUser_Returns200(t *testing.T) {
	router, mockUC := setupTestRouter(t)

	mockUC.On("GetUser", mock.Anything, int64(1)).Return(sampleUser(1), nil)

	w := performJSON(router, http.MethodGet, "/api/v1/users/1", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp UserResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.ID)
	assert.Equal(t, "john@example.com", resp.Email)
}

func TestGetUser_AbsentReturns404(t *testing.T) {
	router, mockUC := setupTestRouter(t)

	mockUC.On("GetUser", mock.Anything, int64(99)).
		Return(nil, apperrors.NewNotFoundError("user", "user not found: id=99"))

	w := performJSON(router, http.MethodGet, "/api/v1/users/99", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUser_NonNumericIDReturns422(t *testing.T) {
	router, mockUC := setupTestRouter(t)

	w := performJSON(router, http.MethodGet, "/api/v1/users/abc", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	mockUC.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
}

func TestListUsers_DefaultWindow(t *testing.T) {
	router, mockUC := setupTestRouter(t)

	mockUC.On("ListUsers", mock.Anything, user.ListUsersRequest{Skip: 0, Limit: 100}).
		Return([]domain.User{*sampleUser(1), *sampleUser(2)}, nil)

	w := performJSON(router, http.MethodGet, "/api/v1/users", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []UserResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestListUsers_CustomWindow(t *testing.T) {
	router, mockUC := setupTestRouter(t)

	mockUC.On("ListUsers", mock.Anything, user.ListUsersRequest{Skip: 5, Limit: 10}).
		Return([]domain.User{}, nil)

	w := performJSON(router, http.MethodGet, "/api/v1/users?skip=5&limit=10", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	mockUC.AssertExpectations(t)
}

func TestUpdateUser_PartialBodyReturns200(t *testing.T) {
	router, mockUC := setupTestRouter(t)

	newName := "New Name"
	updated := sampleUser(1)
	updated.Name = newName

	mockUC.On("UpdateUser", mock.Anything, mock.MatchedBy(func(in user.UpdateUserRequest) bool {
		return in.ID == 1 && in.Name != nil && *in.Name == newName && in.Email == nil
	})).Return(updated, nil)

	w := performJSON(router, http.MethodPut, "/api/v1/users/1", gin.H{"name": newName})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp UserResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, newName, resp.Name)
	assert.Equal(t, "john@example.com", resp.Email)
}

func TestUpdateUser_AbsentReturns404(t *testing.T) {
	router, mockUC := setupTestRouter(t)

	mockUC.On("UpdateUser", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewNotFoundError("user", "user not found: id=99"))

	w := performJSON(router, http.MethodPut, "/api/v1/users/99", gin.H{"name": "Ghost"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteUser_Returns204NoBody(t *testing.T) {
	router, mockUC := setupTestRouter(t)

	mockUC.On("DeleteUser", mock.Anything, int64(1)).Return(nil)

	w := performJSON(router, http.MethodDelete, "/api/v1/users/1", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestDeleteUser_AbsentReturns404(t *testing.T) {
	router, mockUC := setupTestRouter(t)

	mockUC.On("DeleteUser", mock.Anything, int64(99)).
		Return(apperrors.NewNotFoundError("user", "user not found: id=99"))

	w := performJSON(router, http.MethodDelete, "/api/v1/users/99", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
