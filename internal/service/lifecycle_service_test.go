package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/escolar-api/internal/dto"
	"github.com/noah-isme/escolar-api/internal/models"
	"github.com/noah-isme/escolar-api/pkg/config"
	appErrors "github.com/noah-isme/escolar-api/pkg/errors"
)

type mockLifecycleRepo struct {
	statuses   []models.LifecycleStatus
	mutations  int
	cascadeErr error
}

func (m *mockLifecycleRepo) PromoteAll(ctx context.Context, maxGrade int) (*models.PromotionResult, error) {
	m.mutations++
	return &models.PromotionResult{Moved: 40, Held: 8}, nil
}

func (m *mockLifecycleRepo) DemoteAll(ctx context.Context, minGrade int) (*models.PromotionResult, error) {
	m.mutations++
	return &models.PromotionResult{Moved: 35, Held: 13}, nil
}

func (m *mockLifecycleRepo) DeleteAllEnrollments(ctx context.Context) (int, error) {
	m.mutations++
	return 120, nil
}

func (m *mockLifecycleRepo) DeleteAllAttendance(ctx context.Context) (int, error) {
	m.mutations++
	return 900, nil
}

func (m *mockLifecycleRepo) DeleteGroupCascade(ctx context.Context, grade int, groupCode string) (*models.CascadeResult, error) {
	if m.cascadeErr != nil {
		return nil, m.cascadeErr
	}
	m.mutations++
	return &models.CascadeResult{Enrollments: 5, Attendance: 11, Students: 4}, nil
}

func (m *mockLifecycleRepo) CreateRun(ctx context.Context, run *models.LifecycleRun) error {
	m.statuses = append(m.statuses, run.Status)
	return nil
}

func (m *mockLifecycleRepo) UpdateRun(ctx context.Context, run *models.LifecycleRun) error {
	m.statuses = append(m.statuses, run.Status)
	return nil
}

func (m *mockLifecycleRepo) ListRuns(ctx context.Context, limit int) ([]models.LifecycleRun, error) {
	return nil, nil
}

type mockConfirmer struct {
	err   error
	calls int
}

func (m *mockConfirmer) Confirm(ctx context.Context, userID, password string) error {
	m.calls++
	return m.err
}

type mockLifecycleAudit struct {
	entries []models.AuditLog
}

func (m *mockLifecycleAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.entries = append(m.entries, *log)
	return nil
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) Invalidate(ctx context.Context) { m.calls++ }

type mockLifecycleMetrics struct {
	recorded []string
}

func (m *mockLifecycleMetrics) RecordLifecycleRun(operation, status string) {
	m.recorded = append(m.recorded, operation+":"+status)
}

func newLifecycleFixture(repo *mockLifecycleRepo, confirmer *mockConfirmer) (*LifecycleService, *mockLifecycleAudit, *mockInvalidator, *mockLifecycleMetrics) {
	audit := &mockLifecycleAudit{}
	invalidator := &mockInvalidator{}
	metrics := &mockLifecycleMetrics{}
	school := config.SchoolConfig{MinGrade: 1, MaxGrade: 6, Groups: []string{"A", "B"}}
	svc := NewLifecycleService(repo, confirmer, audit, invalidator, metrics, school, nil, nil)
	return svc, audit, invalidator, metrics
}

func TestLifecycleServicePromoteAll(t *testing.T) {
	repo := &mockLifecycleRepo{}
	confirmer := &mockConfirmer{}
	svc, audit, invalidator, metrics := newLifecycleFixture(repo, confirmer)

	run, err := svc.PromoteAll(context.Background(), "u1", dto.GatedRequest{Password: "secret"})
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.LifecycleCompleted, run.Status)
	assert.NotNil(t, run.FinishedAt)
	assert.Equal(t, 1, confirmer.calls)
	assert.Equal(t, 1, repo.mutations)

	var counts models.PromotionResult
	require.NoError(t, json.Unmarshal(run.Counts, &counts))
	assert.Equal(t, 40, counts.Moved)
	assert.Equal(t, 8, counts.Held)

	assert.Equal(t, []models.LifecycleStatus{
		models.LifecycleRequested,
		models.LifecycleAwaitingConfirmation,
		models.LifecycleConfirmed,
		models.LifecycleExecuting,
		models.LifecycleCompleted,
	}, repo.statuses)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionLifecycleRun, audit.entries[0].Action)
	assert.Equal(t, 1, invalidator.calls)
	assert.Equal(t, []string{"PROMOTE_ALL:COMPLETED"}, metrics.recorded)
}

func TestLifecycleServiceRejectedConfirmationMutatesNothing(t *testing.T) {
	repo := &mockLifecycleRepo{}
	confirmer := &mockConfirmer{err: appErrors.Clone(appErrors.ErrInvalidCredentials, "password confirmation failed")}
	svc, audit, invalidator, _ := newLifecycleFixture(repo, confirmer)

	run, err := svc.PromoteAll(context.Background(), "u1", dto.GatedRequest{Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	require.NotNil(t, run)
	assert.Equal(t, models.LifecycleRejected, run.Status)
	assert.Equal(t, 0, repo.mutations)
	assert.Empty(t, audit.entries)
	assert.Equal(t, 0, invalidator.calls)
	require.NotNil(t, run.Detail)
	assert.Equal(t, "re-authentication rejected", *run.Detail)
}

func TestLifecycleServiceDeleteAllEnrollments(t *testing.T) {
	repo := &mockLifecycleRepo{}
	svc, _, _, _ := newLifecycleFixture(repo, &mockConfirmer{})

	run, err := svc.DeleteAllEnrollments(context.Background(), "u1", dto.GatedRequest{Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, models.LifecycleCompleted, run.Status)
	assert.JSONEq(t, `{"deleted":120}`, string(run.Counts))
}

func TestLifecycleServiceDeleteGroupCascade(t *testing.T) {
	repo := &mockLifecycleRepo{}
	svc, _, _, _ := newLifecycleFixture(repo, &mockConfirmer{})

	req := dto.DeleteGroupRequest{GatedRequest: dto.GatedRequest{Password: "secret"}, Grade: 3, GroupCode: "B"}
	run, err := svc.DeleteGroupCascade(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Equal(t, models.LifecycleCompleted, run.Status)
	assert.JSONEq(t, `{"enrollments":5,"attendance":11,"students":4}`, string(run.Counts))
}

func TestLifecycleServiceDeleteGroupCascadeFailureIsPartial(t *testing.T) {
	repo := &mockLifecycleRepo{cascadeErr: errors.New("disk I/O error")}
	svc, audit, _, metrics := newLifecycleFixture(repo, &mockConfirmer{})

	req := dto.DeleteGroupRequest{GatedRequest: dto.GatedRequest{Password: "secret"}, Grade: 3, GroupCode: "B"}
	run, err := svc.DeleteGroupCascade(context.Background(), "u1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPartialFailure.Code, appErrors.FromError(err).Code)
	require.NotNil(t, run)
	assert.Equal(t, models.LifecycleFailed, run.Status)
	assert.Empty(t, audit.entries)
	assert.Equal(t, []string{"DELETE_GROUP_CASCADE:FAILED"}, metrics.recorded)
}

func TestLifecycleServiceDeleteGroupCascadeGradeOutOfRange(t *testing.T) {
	repo := &mockLifecycleRepo{}
	svc, _, _, _ := newLifecycleFixture(repo, &mockConfirmer{})

	req := dto.DeleteGroupRequest{GatedRequest: dto.GatedRequest{Password: "secret"}, Grade: 9, GroupCode: "A"}
	_, err := svc.DeleteGroupCascade(context.Background(), "u1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.statuses)
}
