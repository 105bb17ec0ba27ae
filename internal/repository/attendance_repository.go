package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/escolar-api/internal/models"
)

// AttendanceRepository handles persistence of attendance rows.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// List returns attendance rows filtered by class, student or date.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error) {
	base := "FROM attendance a"
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		conditions = append(conditions, "a.class_id = ?")
		args = append(args, filter.ClassID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, "a.student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.Date != nil {
		conditions = append(conditions, "date(a.date) = date(?)")
		args = append(args, *filter.Date)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.class_id, a.student_id, a.date, a.status, a.created_at
        %s ORDER BY a.date DESC, a.id ASC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var rows []models.Attendance
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// Create persists one attendance row.
func (r *AttendanceRepository) Create(ctx context.Context, att *models.Attendance) error {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance (id, class_id, student_id, date, status, created_at)
        VALUES (:id, :class_id, :student_id, :date, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, att); err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}
