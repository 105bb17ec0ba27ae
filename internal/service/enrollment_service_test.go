package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/escolar-api/internal/models"
	appErrors "github.com/noah-isme/escolar-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	pairs       map[string]bool
	created     []models.Enrollment
	deleted     []string
}

func pairKey(studentID, classID string) string { return studentID + "|" + classID }

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ExistsPair(ctx context.Context, studentID, classID string) (bool, error) {
	return m.pairs[pairKey(studentID, classID)], nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = "enr-new"
	}
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	if m.pairs == nil {
		m.pairs = make(map[string]bool)
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.pairs[pairKey(enrollment.StudentID, enrollment.ClassID)] = true
	m.created = append(m.created, *enrollment)
	return nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, id string) error {
	delete(m.enrollments, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockEnrollmentRepo) ListByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error) {
	return nil, nil
}

func (m *mockEnrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return nil, nil
}

type mockStudentReader struct {
	students map[string]*models.Student
	cohort   []models.Student
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("find student: %w", sql.ErrNoRows)
}

func (m *mockStudentReader) ListByGradeGroup(ctx context.Context, grade int, groupCode string) ([]models.Student, error) {
	return m.cohort, nil
}

type mockClassReader struct{}

func (m *mockClassReader) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.Class{ID: id, Grade: 3, GroupCode: "A"}, nil
}

func newEnrollmentSvc(repo *mockEnrollmentRepo, students *mockStudentReader) *EnrollmentService {
	return NewEnrollmentService(repo, students, &mockClassReader{}, validator.New(), zap.NewNop())
}

func TestEnrollmentServiceEnroll(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	students := &mockStudentReader{students: map[string]*models.Student{"s1": {ID: "s1"}}}
	svc := newEnrollmentSvc(repo, students)

	enrollment, err := svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "s1", ClassID: "c1"})
	require.NoError(t, err)
	require.NotNil(t, enrollment)
	assert.Len(t, repo.created, 1)
	assert.False(t, enrollment.EnrolledAt.IsZero())
}

func TestEnrollmentServiceEnrollDuplicatePairRejected(t *testing.T) {
	repo := &mockEnrollmentRepo{pairs: map[string]bool{pairKey("s1", "c1"): true}}
	students := &mockStudentReader{students: map[string]*models.Student{"s1": {ID: "s1"}}}
	svc := newEnrollmentSvc(repo, students)

	_, err := svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "s1", ClassID: "c1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDuplicateEnrollment.Code, appErr.Code)
	assert.Empty(t, repo.created)
}

func TestEnrollmentServiceEnrollUnknownStudent(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentSvc(repo, &mockStudentReader{})

	_, err := svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "ghost", ClassID: "c1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollGroupSkipsExisting(t *testing.T) {
	repo := &mockEnrollmentRepo{pairs: map[string]bool{pairKey("s2", "c1"): true}}
	students := &mockStudentReader{cohort: []models.Student{
		{ID: "s1", Matricula: "2024-0001"},
		{ID: "s2", Matricula: "2024-0002"},
		{ID: "s3", Matricula: "2024-0003"},
	}}
	svc := newEnrollmentSvc(repo, students)

	result, err := svc.EnrollGroup(context.Background(), EnrollGroupRequest{Grade: 3, GroupCode: "A", ClassID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Enrolled)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, repo.created, 2)
	assert.Equal(t, "s1", repo.created[0].StudentID)
	assert.Equal(t, "s3", repo.created[1].StudentID)
}

func TestEnrollmentServiceEnrollGroupIsIdempotent(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	students := &mockStudentReader{cohort: []models.Student{
		{ID: "s1", Matricula: "2024-0001"},
		{ID: "s2", Matricula: "2024-0002"},
	}}
	svc := newEnrollmentSvc(repo, students)

	first, err := svc.EnrollGroup(context.Background(), EnrollGroupRequest{Grade: 3, GroupCode: "A", ClassID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Enrolled)

	second, err := svc.EnrollGroup(context.Background(), EnrollGroupRequest{Grade: 3, GroupCode: "A", ClassID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Enrolled)
	assert.Equal(t, 2, second.Skipped)
	assert.Len(t, repo.created, 2)
}

func TestEnrollmentServiceUnenroll(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{"e1": {ID: "e1", StudentID: "s1", ClassID: "c1"}}}
	svc := newEnrollmentSvc(repo, &mockStudentReader{})

	require.NoError(t, svc.Unenroll(context.Background(), "e1"))
	assert.Contains(t, repo.deleted, "e1")

	err := svc.Unenroll(context.Background(), "e1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
