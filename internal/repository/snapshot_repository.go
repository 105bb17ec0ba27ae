package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/escolar-api/internal/dto"
)

// SnapshotRepository replaces the five entity collections wholesale when a
// snapshot is restored. Reads for export go through the entity repositories;
// this type only owns the destructive import path, which must be atomic.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository constructs the repository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Restore wipes the current collections and loads the snapshot contents in
// one transaction. Users, audit logs and lifecycle history are untouched.
func (r *SnapshotRepository) Restore(ctx context.Context, snap *dto.Snapshot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"enrollments", "attendance", "notifications", "classes", "students", "teachers"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i := range snap.Teachers {
		t := &snap.Teachers[i]
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO teachers (id, full_name, email, phone, created_at, updated_at)
			VALUES (:id, :full_name, :email, :phone, :created_at, :updated_at)`, t); err != nil {
			return fmt.Errorf("restore teacher %s: %w", t.ID, err)
		}
	}
	for i := range snap.Students {
		s := &snap.Students[i]
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO students (id, matricula, full_name, grade, group_code, email, phone, national_id, birth_date, created_at, updated_at)
			VALUES (:id, :matricula, :full_name, :grade, :group_code, :email, :phone, :national_id, :birth_date, :created_at, :updated_at)`, s); err != nil {
			return fmt.Errorf("restore student %s: %w", s.ID, err)
		}
	}
	for i := range snap.Classes {
		c := &snap.Classes[i]
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO classes (id, code, name, teacher_id, grade, group_code, capacity, created_at, updated_at)
			VALUES (:id, :code, :name, :teacher_id, :grade, :group_code, :capacity, :created_at, :updated_at)`, c); err != nil {
			return fmt.Errorf("restore class %s: %w", c.ID, err)
		}
	}
	for i := range snap.Enrollments {
		e := &snap.Enrollments[i]
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO enrollments (id, student_id, class_id, enrolled_at)
			VALUES (:id, :student_id, :class_id, :enrolled_at)`, e); err != nil {
			return fmt.Errorf("restore enrollment %s: %w", e.ID, err)
		}
	}
	for i := range snap.Notifications {
		n := &snap.Notifications[i]
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO notifications (id, title, body, mode, grade, group_code, class_id, student_ids, status, expires_at, created_at, updated_at)
			VALUES (:id, :title, :body, :mode, :grade, :group_code, :class_id, :student_ids, :status, :expires_at, :created_at, :updated_at)`, n); err != nil {
			return fmt.Errorf("restore notification %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}
	return nil
}
