package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/escolar-api/internal/dto"
	"github.com/noah-isme/escolar-api/internal/middleware"
	"github.com/noah-isme/escolar-api/internal/models"
	appErrors "github.com/noah-isme/escolar-api/pkg/errors"
)

type lifecycleServiceMock struct {
	run        *models.LifecycleRun
	err        error
	promoteErr error
	calls      int
}

func (m *lifecycleServiceMock) PromoteAll(ctx context.Context, userID string, req dto.GatedRequest) (*models.LifecycleRun, error) {
	m.calls++
	if m.promoteErr != nil {
		return m.run, m.promoteErr
	}
	return m.run, m.err
}

func (m *lifecycleServiceMock) DemoteAll(ctx context.Context, userID string, req dto.GatedRequest) (*models.LifecycleRun, error) {
	m.calls++
	return m.run, m.err
}

func (m *lifecycleServiceMock) DeleteAllEnrollments(ctx context.Context, userID string, req dto.GatedRequest) (*models.LifecycleRun, error) {
	m.calls++
	return m.run, m.err
}

func (m *lifecycleServiceMock) DeleteAllAttendance(ctx context.Context, userID string, req dto.GatedRequest) (*models.LifecycleRun, error) {
	m.calls++
	return m.run, m.err
}

func (m *lifecycleServiceMock) DeleteGroupCascade(ctx context.Context, userID string, req dto.DeleteGroupRequest) (*models.LifecycleRun, error) {
	m.calls++
	return m.run, m.err
}

func (m *lifecycleServiceMock) Runs(ctx context.Context, limit int) ([]models.LifecycleRun, error) {
	return nil, nil
}

func lifecycleRequest(t *testing.T, method, target string, payload interface{}, withClaims bool) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if withClaims {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	}
	return w, c
}

func TestLifecycleHandlerPromoteAll(t *testing.T) {
	mock := &lifecycleServiceMock{run: &models.LifecycleRun{ID: "run-1", Status: models.LifecycleCompleted}}
	handler := NewLifecycleHandler(mock)

	w, c := lifecycleRequest(t, http.MethodPost, "/lifecycle/promote", dto.GatedRequest{Password: "secret"}, true)
	handler.PromoteAll(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, mock.calls)
	assert.Contains(t, w.Body.String(), "run-1")
}

func TestLifecycleHandlerPromoteAllWithoutClaims(t *testing.T) {
	mock := &lifecycleServiceMock{}
	handler := NewLifecycleHandler(mock)

	w, c := lifecycleRequest(t, http.MethodPost, "/lifecycle/promote", dto.GatedRequest{Password: "secret"}, false)
	handler.PromoteAll(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, mock.calls)
}

func TestLifecycleHandlerPromoteAllInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &lifecycleServiceMock{}
	handler := NewLifecycleHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/lifecycle/promote", bytes.NewReader([]byte(`invalid`)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.PromoteAll(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, mock.calls)
}

func TestLifecycleHandlerPromoteAllRejectedCredential(t *testing.T) {
	mock := &lifecycleServiceMock{
		run:        &models.LifecycleRun{ID: "run-1", Status: models.LifecycleRejected},
		promoteErr: appErrors.Clone(appErrors.ErrInvalidCredentials, "password confirmation failed"),
	}
	handler := NewLifecycleHandler(mock)

	w, c := lifecycleRequest(t, http.MethodPost, "/lifecycle/promote", dto.GatedRequest{Password: "wrong"}, true)
	handler.PromoteAll(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")
}

func TestLifecycleHandlerDeleteGroupCascade(t *testing.T) {
	mock := &lifecycleServiceMock{run: &models.LifecycleRun{ID: "run-2", Status: models.LifecycleCompleted}}
	handler := NewLifecycleHandler(mock)

	payload := dto.DeleteGroupRequest{GatedRequest: dto.GatedRequest{Password: "secret"}, Grade: 3, GroupCode: "B"}
	w, c := lifecycleRequest(t, http.MethodDelete, "/lifecycle/group", payload, true)
	handler.DeleteGroupCascade(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "run-2")
}
