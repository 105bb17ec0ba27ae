package service

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/escolar-api/internal/models"
	appErrors "github.com/noah-isme/escolar-api/pkg/errors"
	"github.com/noah-isme/escolar-api/pkg/storage"
)

type mockExportEnrollments struct {
	roster []models.EnrollmentDetail
}

func (m *mockExportEnrollments) ListByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error) {
	return m.roster, nil
}

type mockExportClasses struct{}

func (m *mockExportClasses) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	if id == "c1" {
		return &models.ClassDetail{Class: models.Class{ID: "c1", Code: "MAT-3A", Grade: 3, GroupCode: "A"}}, nil
	}
	return nil, sql.ErrNoRows
}

type mockExportStudents struct {
	students []models.Student
	filter   models.StudentFilter
}

func (m *mockExportStudents) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	m.filter = filter
	return m.students, len(m.students), nil
}

func TestExportServiceClassRosterPDF(t *testing.T) {
	enrollments := &mockExportEnrollments{roster: []models.EnrollmentDetail{
		{
			Enrollment:       models.Enrollment{ID: "e1", EnrolledAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
			StudentMatricula: "2024-0001",
			StudentName:      "Ana Torres",
		},
	}}
	svc := NewExportService(enrollments, &mockExportClasses{}, &mockExportStudents{}, nil, nil, "", nil)

	payload, filename, err := svc.ClassRosterPDF(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "roster-MAT-3A.pdf", filename)
	require.NotEmpty(t, payload)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportServiceClassRosterPDFUnknownClass(t *testing.T) {
	svc := NewExportService(&mockExportEnrollments{}, &mockExportClasses{}, &mockExportStudents{}, nil, nil, "", nil)

	_, _, err := svc.ClassRosterPDF(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceStudentsCSV(t *testing.T) {
	students := &mockExportStudents{students: []models.Student{
		{Matricula: "2024-0001", FullName: "Ana Torres", Grade: 3, GroupCode: "A", Email: "ana@escolar.mx"},
		{Matricula: "2024-0002", FullName: "Luis Mora", Grade: 3, GroupCode: "A"},
	}}
	svc := NewExportService(&mockExportEnrollments{}, &mockExportClasses{}, students, nil, nil, "", nil)

	payload, filename, err := svc.StudentsCSV(context.Background(), models.StudentFilter{GroupCode: "A"})
	require.NoError(t, err)
	assert.Equal(t, "students.csv", filename)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Matricula,Full Name,Grade,Group,Email,Phone", lines[0])
	assert.Contains(t, lines[1], "Ana Torres")
	assert.Equal(t, 10000, students.filter.PageSize)
}

func newArchivingExportService(t *testing.T, enrollments *mockExportEnrollments) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	return NewExportService(enrollments, &mockExportClasses{}, &mockExportStudents{}, store, signer, "/api/v1", nil)
}

func TestExportServiceRosterLinkDownloadRoundTrip(t *testing.T) {
	enrollments := &mockExportEnrollments{roster: []models.EnrollmentDetail{
		{
			Enrollment:       models.Enrollment{ID: "e1", EnrolledAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
			StudentMatricula: "2024-0001",
			StudentName:      "Ana Torres",
		},
	}}
	svc := newArchivingExportService(t, enrollments)

	link, err := svc.ClassRosterLink(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "roster-MAT-3A.pdf", link.Filename)
	assert.True(t, strings.HasPrefix(link.URL, "/api/v1/exports/"))
	require.NotEmpty(t, link.Token)

	file, filename, err := svc.Download(link.Token)
	require.NoError(t, err)
	defer file.Close()
	assert.True(t, strings.HasPrefix(filename, "roster-MAT-3A"))
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestExportServiceDownloadRejectsBadToken(t *testing.T) {
	svc := newArchivingExportService(t, &mockExportEnrollments{})

	_, _, err := svc.Download("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestExportServiceRosterLinkWithoutArchive(t *testing.T) {
	svc := NewExportService(&mockExportEnrollments{}, &mockExportClasses{}, &mockExportStudents{}, nil, nil, "", nil)

	_, err := svc.ClassRosterLink(context.Background(), "c1")
	require.Error(t, err)
}
