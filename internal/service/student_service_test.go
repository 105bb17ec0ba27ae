package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/escolar-api/internal/models"
	"github.com/noah-isme/escolar-api/pkg/config"
	appErrors "github.com/noah-isme/escolar-api/pkg/errors"
)

type mockStudentRepo struct {
	students map[string]*models.Student
	created  []models.Student
	updated  []models.Student
	deleted  []string
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	return nil, 0, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ExistsByMatricula(ctx context.Context, matricula, excludeID string) (bool, error) {
	for _, s := range m.students {
		if s.Matricula == matricula && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = "s-new"
	}
	if m.students == nil {
		m.students = make(map[string]*models.Student)
	}
	copied := *student
	m.students[student.ID] = &copied
	m.created = append(m.created, copied)
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	copied := *student
	m.students[student.ID] = &copied
	m.updated = append(m.updated, copied)
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	delete(m.students, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func newStudentFixture(repo *mockStudentRepo) (*StudentService, *mockInvalidator) {
	invalidator := &mockInvalidator{}
	school := config.SchoolConfig{MinGrade: 1, MaxGrade: 6, Groups: []string{"A", "B"}}
	return NewStudentService(repo, invalidator, school, nil, nil), invalidator
}

func validCreateRequest() CreateStudentRequest {
	return CreateStudentRequest{
		Matricula: "2024-0001",
		FullName:  "Ana Torres",
		Grade:     3,
		GroupCode: "A",
		Email:     "ana@escolar.mx",
		BirthDate: time.Date(2015, 4, 12, 0, 0, 0, 0, time.UTC),
	}
}

func TestStudentServiceCreate(t *testing.T) {
	repo := &mockStudentRepo{}
	svc, invalidator := newStudentFixture(repo)

	student, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.Len(t, repo.created, 1)
	assert.Equal(t, 1, invalidator.calls)
}

func TestStudentServiceCreateDuplicateMatricula(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{
		"s1": {ID: "s1", Matricula: "2024-0001"},
	}}
	svc, invalidator := newStudentFixture(repo)

	_, err := svc.Create(context.Background(), validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
	assert.Equal(t, 0, invalidator.calls)
}

func TestStudentServiceCreateGradeOutOfRange(t *testing.T) {
	repo := &mockStudentRepo{}
	svc, _ := newStudentFixture(repo)

	req := validCreateRequest()
	req.Grade = 7
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestStudentServiceCreateInvalidEmail(t *testing.T) {
	repo := &mockStudentRepo{}
	svc, _ := newStudentFixture(repo)

	req := validCreateRequest()
	req.Email = "not-an-email"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdateKeepsID(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{
		"s1": {ID: "s1", Matricula: "2024-0001", FullName: "Ana Torres", Grade: 3, GroupCode: "A"},
	}}
	svc, invalidator := newStudentFixture(repo)

	req := UpdateStudentRequest{
		Matricula: "2024-0001",
		FullName:  "Ana Torres Ruiz",
		Grade:     4,
		GroupCode: "B",
		BirthDate: time.Date(2015, 4, 12, 0, 0, 0, 0, time.UTC),
	}
	student, err := svc.Update(context.Background(), "s1", req)
	require.NoError(t, err)
	assert.Equal(t, "s1", student.ID)
	assert.Equal(t, "Ana Torres Ruiz", student.FullName)
	assert.Equal(t, 4, student.Grade)
	assert.Equal(t, 1, invalidator.calls)
}

func TestStudentServiceUpdateRejectsTakenMatricula(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{
		"s1": {ID: "s1", Matricula: "2024-0001"},
		"s2": {ID: "s2", Matricula: "2024-0002"},
	}}
	svc, _ := newStudentFixture(repo)

	req := UpdateStudentRequest{
		Matricula: "2024-0002",
		FullName:  "Ana Torres",
		Grade:     3,
		GroupCode: "A",
		BirthDate: time.Date(2015, 4, 12, 0, 0, 0, 0, time.UTC),
	}
	_, err := svc.Update(context.Background(), "s1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceDelete(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{
		"s1": {ID: "s1", Matricula: "2024-0001"},
	}}
	svc, invalidator := newStudentFixture(repo)

	require.NoError(t, svc.Delete(context.Background(), "s1"))
	assert.Contains(t, repo.deleted, "s1")
	assert.Equal(t, 1, invalidator.calls)

	err := svc.Delete(context.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
