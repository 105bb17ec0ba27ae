package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/escolar-api/internal/models"
)

func TestEnrollmentRepositoryExistsPair(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = ? AND class_id = ? LIMIT 1")).
		WithArgs("std-1", "cls-1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsPair(context.Background(), "std-1", "cls-1")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsPairAbsent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = ? AND class_id = ? LIMIT 1")).
		WithArgs("std-1", "cls-2").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	exists, err := repo.ExistsPair(context.Background(), "std-1", "cls-2")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	enrollment := &models.Enrollment{StudentID: "std-1", ClassID: "cls-1"}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	require.NotEmpty(t, enrollment.ID)
	require.False(t, enrollment.EnrolledAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListByClassOrdersByMatricula(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "class_id", "enrolled_at", "student_name", "student_matricula", "class_code", "class_name"}).
		AddRow("enr-1", "std-1", "cls-1", now, "Ana Torres", "2024-0001", "MAT-3A", "Mathematics 3A").
		AddRow("enr-2", "std-2", "cls-1", now, "Bruno Lima", "2024-0002", "MAT-3A", "Mathematics 3A")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.class_id = ? ORDER BY s.matricula ASC")).
		WithArgs("cls-1").
		WillReturnRows(rows)

	roster, err := repo.ListByClass(context.Background(), "cls-1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	require.Equal(t, "2024-0001", roster[0].StudentMatricula)
	require.Equal(t, "2024-0002", roster[1].StudentMatricula)
	require.NoError(t, mock.ExpectationsWereMet())
}
