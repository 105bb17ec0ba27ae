package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/escolar-api/internal/dto"
	"github.com/noah-isme/escolar-api/internal/models"
	"github.com/noah-isme/escolar-api/pkg/config"
	appErrors "github.com/noah-isme/escolar-api/pkg/errors"
	"github.com/noah-isme/escolar-api/pkg/jobs"
)

type mockNotificationRepo struct {
	notifications map[string]*models.Notification
	created       []models.Notification
	statusUpdates map[string]models.NotificationStatus
}

func (m *mockNotificationRepo) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	return nil, 0, nil
}

func (m *mockNotificationRepo) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	if n, ok := m.notifications[id]; ok {
		copied := *n
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = "n-new"
	}
	m.created = append(m.created, *notification)
	return nil
}

func (m *mockNotificationRepo) UpdateStatus(ctx context.Context, id string, status models.NotificationStatus) error {
	if m.statusUpdates == nil {
		m.statusUpdates = make(map[string]models.NotificationStatus)
	}
	m.statusUpdates[id] = status
	return nil
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id string) error {
	delete(m.notifications, id)
	return nil
}

type mockNotificationStudents struct{}

func (m *mockNotificationStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if id == "s1" || id == "s2" {
		return &models.Student{ID: id}, nil
	}
	return nil, sql.ErrNoRows
}

type mockNotificationClasses struct{}

func (m *mockNotificationClasses) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if id == "c1" {
		return &models.Class{ID: id}, nil
	}
	return nil, sql.ErrNoRows
}

type mockQueue struct {
	jobs []jobs.Job
}

func (m *mockQueue) Enqueue(job jobs.Job) error {
	m.jobs = append(m.jobs, job)
	return nil
}

func newNotificationFixture(repo *mockNotificationRepo) (*NotificationService, *mockQueue) {
	queue := &mockQueue{}
	school := config.SchoolConfig{MinGrade: 1, MaxGrade: 6, Groups: []string{"A", "B"}}
	svc := NewNotificationService(repo, &mockNotificationStudents{}, &mockNotificationClasses{}, queue, school, nil, nil)
	return svc, queue
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestNotificationServiceCreatePerMode(t *testing.T) {
	tests := []struct {
		name string
		req  dto.CreateNotificationRequest
	}{
		{
			name: "all",
			req:  dto.CreateNotificationRequest{Title: "t", Body: "b", Mode: "ALL"},
		},
		{
			name: "by grade",
			req:  dto.CreateNotificationRequest{Title: "t", Body: "b", Mode: "BY_GRADE", Grade: intPtr(3)},
		},
		{
			name: "by grade group",
			req:  dto.CreateNotificationRequest{Title: "t", Body: "b", Mode: "BY_GRADE_GROUP", Grade: intPtr(3), GroupCode: strPtr("A")},
		},
		{
			name: "by class",
			req:  dto.CreateNotificationRequest{Title: "t", Body: "b", Mode: "BY_CLASS", ClassID: strPtr("c1")},
		},
		{
			name: "explicit",
			req:  dto.CreateNotificationRequest{Title: "t", Body: "b", Mode: "EXPLICIT", StudentIDs: []string{"s1", "s2"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newNotificationFixture(&mockNotificationRepo{})
			notification, err := svc.Create(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, models.NotificationStatusPending, notification.Status)
			assert.Equal(t, models.NotificationMode(tt.req.Mode), notification.Mode)
		})
	}
}

func TestNotificationServiceCreateRejectsForeignQualifiers(t *testing.T) {
	tests := []struct {
		name string
		req  dto.CreateNotificationRequest
	}{
		{
			name: "all with grade",
			req:  dto.CreateNotificationRequest{Title: "t", Body: "b", Mode: "ALL", Grade: intPtr(2)},
		},
		{
			name: "by grade missing grade",
			req:  dto.CreateNotificationRequest{Title: "t", Body: "b", Mode: "BY_GRADE"},
		},
		{
			name: "by grade with class",
			req:  dto.CreateNotificationRequest{Title: "t", Body: "b", Mode: "BY_GRADE", Grade: intPtr(2), ClassID: strPtr("c1")},
		},
		{
			name: "by grade group missing group",
			req:  dto.CreateNotificationRequest{Title: "t", Body: "b", Mode: "BY_GRADE_GROUP", Grade: intPtr(2)},
		},
		{
			name: "by class with students",
			req:  dto.CreateNotificationRequest{Title: "t", Body: "b", Mode: "BY_CLASS", ClassID: strPtr("c1"), StudentIDs: []string{"s1"}},
		},
		{
			name: "explicit empty",
			req:  dto.CreateNotificationRequest{Title: "t", Body: "b", Mode: "EXPLICIT"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockNotificationRepo{}
			svc, _ := newNotificationFixture(repo)
			_, err := svc.Create(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
			assert.Empty(t, repo.created)
		})
	}
}

func TestNotificationServiceCreateGradeOutOfRange(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc, _ := newNotificationFixture(repo)

	req := dto.CreateNotificationRequest{Title: "t", Body: "b", Mode: "BY_GRADE", Grade: intPtr(9)}
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestNotificationServiceCreateDeduplicatesRecipients(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc, _ := newNotificationFixture(repo)

	req := dto.CreateNotificationRequest{Title: "t", Body: "b", Mode: "EXPLICIT", StudentIDs: []string{"s1", "s2", "s1"}}
	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	assert.JSONEq(t, `["s1","s2"]`, string(repo.created[0].StudentIDs))
}

func TestNotificationServiceCreateUnknownClass(t *testing.T) {
	svc, _ := newNotificationFixture(&mockNotificationRepo{})

	req := dto.CreateNotificationRequest{Title: "t", Body: "b", Mode: "BY_CLASS", ClassID: strPtr("ghost")}
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestNotificationServiceCreateUnknownStudent(t *testing.T) {
	svc, _ := newNotificationFixture(&mockNotificationRepo{})

	req := dto.CreateNotificationRequest{Title: "t", Body: "b", Mode: "EXPLICIT", StudentIDs: []string{"s1", "ghost"}}
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestNotificationServiceApproveEnqueuesDispatch(t *testing.T) {
	repo := &mockNotificationRepo{notifications: map[string]*models.Notification{
		"n1": {ID: "n1", Title: "Holiday", Body: "No classes Friday", Mode: models.NotificationModeAll, Status: models.NotificationStatusPending},
	}}
	svc, queue := newNotificationFixture(repo)

	notification, err := svc.Approve(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusApproved, notification.Status)
	assert.Equal(t, models.NotificationStatusApproved, repo.statusUpdates["n1"])

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "notification.dispatch", queue.jobs[0].Type)
	target, ok := queue.jobs[0].Payload.(dto.NotificationTarget)
	require.True(t, ok)
	assert.Equal(t, "n1", target.NotificationID)
	assert.Equal(t, "ALL", target.Mode)
}

func TestNotificationServiceApproveNonPendingRejected(t *testing.T) {
	repo := &mockNotificationRepo{notifications: map[string]*models.Notification{
		"n1": {ID: "n1", Mode: models.NotificationModeAll, Status: models.NotificationStatusApproved},
	}}
	svc, queue := newNotificationFixture(repo)

	_, err := svc.Approve(context.Background(), "n1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, queue.jobs)
}

func TestNotificationServiceRejectLeavesQueueEmpty(t *testing.T) {
	repo := &mockNotificationRepo{notifications: map[string]*models.Notification{
		"n1": {ID: "n1", Mode: models.NotificationModeAll, Status: models.NotificationStatusPending},
	}}
	svc, queue := newNotificationFixture(repo)

	notification, err := svc.Reject(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusRejected, notification.Status)
	assert.Empty(t, queue.jobs)
}

func TestDispatchHandlerAcceptsTargetPayload(t *testing.T) {
	handler := DispatchHandler(nil)

	err := handler(context.Background(), jobs.Job{ID: "j1", Type: "notification.dispatch", Payload: dto.NotificationTarget{NotificationID: "n1", Mode: "ALL"}})
	require.NoError(t, err)

	err = handler(context.Background(), jobs.Job{ID: "j2", Type: "notification.dispatch", Payload: "bogus"})
	require.Error(t, err)
}
