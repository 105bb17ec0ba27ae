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

// StudentRepository handles persistence of students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students filtered by the provided criteria.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students s"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, "(s.full_name LIKE ? OR s.matricula LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Grade != nil {
		conditions = append(conditions, "s.grade = ?")
		args = append(args, *filter.Grade)
	}
	if filter.GroupCode != "" {
		conditions = append(conditions, "s.group_code = ?")
		args = append(args, filter.GroupCode)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"matricula": "s.matricula",
		"name":      "s.full_name",
		"grade":     "s.grade",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "s.matricula"
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

	query := fmt.Sprintf(`SELECT s.id, s.matricula, s.full_name, s.grade, s.group_code, s.email, s.phone, s.national_id, s.birth_date, s.created_at, s.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student by its ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, matricula, full_name, grade, group_code, email, phone, national_id, birth_date, created_at, updated_at
        FROM students WHERE id = ?`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByMatricula checks the matricula uniqueness invariant.
func (r *StudentRepository) ExistsByMatricula(ctx context.Context, matricula, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE matricula = ?"
	args := []interface{}{matricula}
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
		return false, fmt.Errorf("check matricula: %w", err)
	}
	return true, nil
}

// Create persists a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, matricula, full_name, grade, group_code, email, phone, national_id, birth_date, created_at, updated_at)
        VALUES (:id, :matricula, :full_name, :grade, :group_code, :email, :phone, :national_id, :birth_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update persists changes to an existing student. The id never changes.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET matricula = :matricula, full_name = :full_name, grade = :grade, group_code = :group_code,
        email = :email, phone = :phone, national_id = :national_id, birth_date = :birth_date, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student row. It does not cascade; enrollment and
// attendance cleanup is the lifecycle engine's responsibility.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM students WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// ListByGradeGroup returns the cohort ordered by matricula so bulk
// operations iterate deterministically.
func (r *StudentRepository) ListByGradeGroup(ctx context.Context, grade int, groupCode string) ([]models.Student, error) {
	const query = `SELECT id, matricula, full_name, grade, group_code, email, phone, national_id, birth_date, created_at, updated_at
        FROM students WHERE grade = ? AND group_code = ? ORDER BY matricula ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, grade, groupCode); err != nil {
		return nil, fmt.Errorf("list cohort: %w", err)
	}
	return students, nil
}

// EligibleForClass returns every student not yet enrolled in the class,
// ordered by matricula. Enrollment is open across cohorts, so the view is
// not restricted to the class's grade and group.
func (r *StudentRepository) EligibleForClass(ctx context.Context, classID string) ([]models.Student, error) {
	const query = `SELECT s.id, s.matricula, s.full_name, s.grade, s.group_code, s.email, s.phone, s.national_id, s.birth_date, s.created_at, s.updated_at
        FROM students s
        WHERE s.id NOT IN (SELECT e.student_id FROM enrollments e WHERE e.class_id = ?)
        ORDER BY s.matricula ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list eligible students: %w", err)
	}
	return students, nil
}

// GroupDistribution counts students per (grade, group) pair.
func (r *StudentRepository) GroupDistribution(ctx context.Context) ([]models.GroupCount, error) {
	const query = `SELECT grade, group_code, COUNT(*) AS count FROM students
        GROUP BY grade, group_code ORDER BY grade ASC, group_code ASC`
	var rows []models.GroupCount
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("group distribution: %w", err)
	}
	return rows, nil
}

// ListAll returns every student ordered by matricula, for snapshot export.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	const query = `SELECT id, matricula, full_name, grade, group_code, email, phone, national_id, birth_date, created_at, updated_at
        FROM students ORDER BY matricula ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}
