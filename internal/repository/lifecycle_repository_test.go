package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestLifecycleRepositoryPromoteAllCountsHeldAndMoved(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLifecycleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE grade >= ?")).
		WithArgs(6).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET grade = grade + 1, updated_at = ? WHERE grade < ?")).
		WithArgs(sqlmock.AnyArg(), 6).
		WillReturnResult(sqlmock.NewResult(0, 7))

	result, err := repo.PromoteAll(context.Background(), 6)
	require.NoError(t, err)
	require.Equal(t, 7, result.Moved)
	require.Equal(t, 3, result.Held)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleRepositoryDemoteAllCountsHeldAndMoved(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLifecycleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE grade <= ?")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET grade = grade - 1, updated_at = ? WHERE grade > ?")).
		WithArgs(sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 6))

	result, err := repo.DemoteAll(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 6, result.Moved)
	require.Equal(t, 4, result.Held)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleRepositoryDeleteAllEnrollments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLifecycleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 42))

	deleted, err := repo.DeleteAllEnrollments(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleRepositoryDeleteGroupCascadeCommitsInOrder(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLifecycleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE student_id IN (SELECT id FROM students WHERE grade = ? AND group_code = ?)")).
		WithArgs(3, "B").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance WHERE student_id IN (SELECT id FROM students WHERE grade = ? AND group_code = ?)")).
		WithArgs(3, "B").
		WillReturnResult(sqlmock.NewResult(0, 11))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE grade = ? AND group_code = ?")).
		WithArgs(3, "B").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	result, err := repo.DeleteGroupCascade(context.Background(), 3, "B")
	require.NoError(t, err)
	require.Equal(t, 5, result.Enrollments)
	require.Equal(t, 11, result.Attendance)
	require.Equal(t, 4, result.Students)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleRepositoryDeleteGroupCascadeRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLifecycleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE student_id IN")).
		WithArgs(3, "B").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance WHERE student_id IN")).
		WithArgs(3, "B").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	result, err := repo.DeleteGroupCascade(context.Background(), 3, "B")
	require.Error(t, err)
	require.Nil(t, result)
	require.NoError(t, mock.ExpectationsWereMet())
}
