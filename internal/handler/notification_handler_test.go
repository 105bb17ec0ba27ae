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
	"github.com/noah-isme/escolar-api/internal/models"
	appErrors "github.com/noah-isme/escolar-api/pkg/errors"
)

type notificationServiceMock struct {
	notification *models.Notification
	createErr    error
	approveErr   error
	approved     []string
}

func (m *notificationServiceMock) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	return nil, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *notificationServiceMock) Get(ctx context.Context, id string) (*models.Notification, error) {
	if m.notification == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return m.notification, nil
}

func (m *notificationServiceMock) Create(ctx context.Context, req dto.CreateNotificationRequest) (*models.Notification, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Notification{ID: "n-new", Title: req.Title, Mode: models.NotificationMode(req.Mode), Status: models.NotificationStatusPending}, nil
}

func (m *notificationServiceMock) Approve(ctx context.Context, id string) (*models.Notification, error) {
	if m.approveErr != nil {
		return nil, m.approveErr
	}
	m.approved = append(m.approved, id)
	return &models.Notification{ID: id, Status: models.NotificationStatusApproved}, nil
}

func (m *notificationServiceMock) Reject(ctx context.Context, id string) (*models.Notification, error) {
	return &models.Notification{ID: id, Status: models.NotificationStatusRejected}, nil
}

func (m *notificationServiceMock) Delete(ctx context.Context, id string) error {
	return nil
}

func TestNotificationHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewNotificationHandler(&notificationServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.CreateNotificationRequest{Title: "Holiday", Body: "No classes Friday", Mode: "ALL"})
	req, _ := http.NewRequest(http.MethodPost, "/notifications", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "PENDING")
}

func TestNotificationHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewNotificationHandler(&notificationServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/notifications", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationHandlerCreateTargetingRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &notificationServiceMock{createErr: appErrors.Clone(appErrors.ErrValidation, "ALL mode takes no qualifiers")}
	handler := NewNotificationHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	grade := 3
	body, _ := json.Marshal(dto.CreateNotificationRequest{Title: "t", Body: "b", Mode: "ALL", Grade: &grade})
	req, _ := http.NewRequest(http.MethodPost, "/notifications", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestNotificationHandlerApprove(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &notificationServiceMock{}
	handler := NewNotificationHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/notifications/n1/approve", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "n1"}}

	handler.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"n1"}, mock.approved)
	assert.Contains(t, w.Body.String(), "APPROVED")
}
