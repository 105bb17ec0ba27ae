package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/escolar-api/internal/models"
)

// LifecycleRepository executes the destructive bulk mutations and keeps the
// lifecycle_runs audit trail. Bulk updates are set-based SQL so a sweep is a
// single statement, never a per-row loop.
type LifecycleRepository struct {
	db *sqlx.DB
}

// NewLifecycleRepository constructs the repository.
func NewLifecycleRepository(db *sqlx.DB) *LifecycleRepository {
	return &LifecycleRepository{db: db}
}

// PromoteAll raises every student one grade, holding those already at the
// ceiling. Returns moved and held counts.
func (r *LifecycleRepository) PromoteAll(ctx context.Context, maxGrade int) (*models.PromotionResult, error) {
	var held int
	if err := r.db.GetContext(ctx, &held, "SELECT COUNT(*) FROM students WHERE grade >= ?", maxGrade); err != nil {
		return nil, fmt.Errorf("count students at ceiling: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE students SET grade = grade + 1, updated_at = ? WHERE grade < ?",
		time.Now().UTC(), maxGrade)
	if err != nil {
		return nil, fmt.Errorf("promote students: %w", err)
	}
	moved, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("promote rows affected: %w", err)
	}
	return &models.PromotionResult{Moved: int(moved), Held: held}, nil
}

// DemoteAll lowers every student one grade, holding those at the floor.
func (r *LifecycleRepository) DemoteAll(ctx context.Context, minGrade int) (*models.PromotionResult, error) {
	var held int
	if err := r.db.GetContext(ctx, &held, "SELECT COUNT(*) FROM students WHERE grade <= ?", minGrade); err != nil {
		return nil, fmt.Errorf("count students at floor: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE students SET grade = grade - 1, updated_at = ? WHERE grade > ?",
		time.Now().UTC(), minGrade)
	if err != nil {
		return nil, fmt.Errorf("demote students: %w", err)
	}
	moved, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("demote rows affected: %w", err)
	}
	return &models.PromotionResult{Moved: int(moved), Held: held}, nil
}

// DeleteAllEnrollments wipes the enrollments table.
func (r *LifecycleRepository) DeleteAllEnrollments(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM enrollments")
	if err != nil {
		return 0, fmt.Errorf("delete all enrollments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("enrollment rows affected: %w", err)
	}
	return int(n), nil
}

// DeleteAllAttendance wipes the attendance table, unconditionally.
func (r *LifecycleRepository) DeleteAllAttendance(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM attendance")
	if err != nil {
		return 0, fmt.Errorf("delete all attendance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("attendance rows affected: %w", err)
	}
	return int(n), nil
}

// DeleteGroupCascade removes one cohort and everything referencing it in a
// single transaction. Deletion order is enrollments, attendance, then the
// student rows themselves, so a concurrent reader scanning by student id
// never observes a student whose dependents are already partially gone.
func (r *LifecycleRepository) DeleteGroupCascade(ctx context.Context, grade int, groupCode string) (*models.CascadeResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cascade: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result := &models.CascadeResult{}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM enrollments WHERE student_id IN (SELECT id FROM students WHERE grade = ? AND group_code = ?)`,
		grade, groupCode)
	if err != nil {
		return nil, fmt.Errorf("cascade enrollments: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		result.Enrollments = int(n)
	}

	res, err = tx.ExecContext(ctx,
		`DELETE FROM attendance WHERE student_id IN (SELECT id FROM students WHERE grade = ? AND group_code = ?)`,
		grade, groupCode)
	if err != nil {
		return nil, fmt.Errorf("cascade attendance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		result.Attendance = int(n)
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM students WHERE grade = ? AND group_code = ?`, grade, groupCode)
	if err != nil {
		return nil, fmt.Errorf("cascade students: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		result.Students = int(n)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cascade: %w", err)
	}
	return result, nil
}

// CreateRun persists a new lifecycle run record.
func (r *LifecycleRepository) CreateRun(ctx context.Context, run *models.LifecycleRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.RequestedAt.IsZero() {
		run.RequestedAt = time.Now().UTC()
	}
	const query = `INSERT INTO lifecycle_runs (id, operation, status, counts, detail, requested_by, requested_at, finished_at)
        VALUES (:id, :operation, :status, :counts, :detail, :requested_by, :requested_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create lifecycle run: %w", err)
	}
	return nil
}

// UpdateRun records a status transition, optionally with counts and detail.
func (r *LifecycleRepository) UpdateRun(ctx context.Context, run *models.LifecycleRun) error {
	const query = `UPDATE lifecycle_runs SET status = :status, counts = :counts, detail = :detail, finished_at = :finished_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("update lifecycle run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent lifecycle runs.
func (r *LifecycleRepository) ListRuns(ctx context.Context, limit int) ([]models.LifecycleRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT id, operation, status, counts, detail, requested_by, requested_at, finished_at
        FROM lifecycle_runs ORDER BY requested_at DESC LIMIT %d`, limit)
	var runs []models.LifecycleRun
	if err := r.db.SelectContext(ctx, &runs, query); err != nil {
		return nil, fmt.Errorf("list lifecycle runs: %w", err)
	}
	return runs, nil
}
