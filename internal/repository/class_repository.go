package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/escolar-api/internal/models"
)

// ClassRepository handles persistence of classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classDetailColumns = `c.id, c.code, c.name, c.teacher_id, c.grade, c.group_code, c.capacity, c.created_at, c.updated_at,
        t.full_name AS teacher_name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.class_id = c.id) AS enrolled_count`

// List returns classes with resolved teacher names and enrollment counts.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	base := "FROM classes c LEFT JOIN teachers t ON t.id = c.teacher_id"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, "(c.name LIKE ? OR c.code LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Grade != nil {
		conditions = append(conditions, "c.grade = ?")
		args = append(args, *filter.Grade)
	}
	if filter.GroupCode != "" {
		conditions = append(conditions, "c.group_code = ?")
		args = append(args, filter.GroupCode)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"code":  "c.code",
		"name":  "c.name",
		"grade": "c.grade",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "c.code"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		classDetailColumns, base+clause, orderBy, order, size, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID returns a class by its ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, code, name, teacher_id, grade, group_code, capacity, created_at, updated_at FROM classes WHERE id = ?`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// FindDetailByID resolves the class together with its teacher and current
// enrollment count.
func (r *ClassRepository) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM classes c LEFT JOIN teachers t ON t.id = c.teacher_id WHERE c.id = ?", classDetailColumns)
	var detail models.ClassDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByCode checks the class code uniqueness invariant.
func (r *ClassRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM classes WHERE code = ?"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> ?"
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check class code: %w", err)
	}
	return true, nil
}

// Create persists a new class record.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, code, name, teacher_id, grade, group_code, capacity, created_at, updated_at)
        VALUES (:id, :code, :name, :teacher_id, :grade, :group_code, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update persists changes to an existing class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET code = :code, name = :name, teacher_id = :teacher_id, grade = :grade,
        group_code = :group_code, capacity = :capacity, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class row without touching its enrollments.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM classes WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}

// UnassignTeacher clears the teacher pointer on every class referencing it.
func (r *ClassRepository) UnassignTeacher(ctx context.Context, teacherID string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE classes SET teacher_id = NULL WHERE teacher_id = ?", teacherID); err != nil {
		return fmt.Errorf("unassign teacher: %w", err)
	}
	return nil
}

// ListAll returns every class ordered by code, for snapshot export.
func (r *ClassRepository) ListAll(ctx context.Context) ([]models.Class, error) {
	const query = `SELECT id, code, name, teacher_id, grade, group_code, capacity, created_at, updated_at FROM classes ORDER BY code ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list all classes: %w", err)
	}
	return classes, nil
}
