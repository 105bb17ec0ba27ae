package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/escolar-api/internal/models"
)

// DefaultAdminEmail is the seeded administrator login.
const DefaultAdminEmail = "admin@escolar.local"

var seedBase = time.Date(2024, 8, 1, 8, 0, 0, 0, time.UTC)

// SeedIfEmpty loads the deterministic starter data set when the database has
// never been populated. IDs are fixed literals so repeated first runs produce
// identical stores.
func SeedIfEmpty(ctx context.Context, db *sqlx.DB, adminPassword string) error {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users"); err != nil {
		return fmt.Errorf("check seed state: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		"usr-admin-0001", DefaultAdminEmail, string(hash), "Administrator", models.RoleSuperAdmin, seedBase, seedBase); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	teachers := []models.Teacher{
		{ID: "tch-0001", FullName: "Laura Mendoza", Email: "laura.mendoza@escolar.local"},
		{ID: "tch-0002", FullName: "Carlos Rivera", Email: "carlos.rivera@escolar.local"},
	}
	for _, t := range teachers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO teachers (id, full_name, email, phone, created_at, updated_at) VALUES (?, ?, ?, NULL, ?, ?)`,
			t.ID, t.FullName, t.Email, seedBase, seedBase); err != nil {
			return fmt.Errorf("seed teacher %s: %w", t.ID, err)
		}
	}

	type seedClass struct {
		id, code, name, teacherID string
		grade                     int
		group                     string
		capacity                  int
	}
	classes := []seedClass{
		{"cls-0001", "MAT-1A", "Mathematics 1A", "tch-0001", 1, "A", 30},
		{"cls-0002", "ESP-1A", "Spanish 1A", "tch-0002", 1, "A", 30},
		{"cls-0003", "MAT-2B", "Mathematics 2B", "tch-0001", 2, "B", 25},
		{"cls-0004", "CIE-6B", "Science 6B", "", 6, "B", 25},
	}
	for _, c := range classes {
		var teacherID interface{}
		if c.teacherID != "" {
			teacherID = c.teacherID
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO classes (id, code, name, teacher_id, grade, group_code, capacity, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.id, c.code, c.name, teacherID, c.grade, c.group, c.capacity, seedBase, seedBase); err != nil {
			return fmt.Errorf("seed class %s: %w", c.id, err)
		}
	}

	type seedStudent struct {
		id, matricula, name string
		grade               int
		group               string
	}
	students := []seedStudent{
		{"std-0001", "2024-0001", "Ana Torres", 1, "A"},
		{"std-0002", "2024-0002", "Luis Garcia", 1, "A"},
		{"std-0003", "2024-0003", "Sofia Lopez", 1, "A"},
		{"std-0004", "2024-0004", "Diego Ramos", 1, "B"},
		{"std-0005", "2024-0005", "Elena Cruz", 2, "A"},
		{"std-0006", "2024-0006", "Pablo Ortiz", 2, "B"},
		{"std-0007", "2024-0007", "Marta Vega", 2, "B"},
		{"std-0008", "2024-0008", "Jorge Soto", 6, "B"},
		{"std-0009", "2024-0009", "Lucia Nunez", 6, "B"},
		{"std-0010", "2024-0010", "Raul Pena", 6, "A"},
	}
	for i, s := range students {
		birth := seedBase.AddDate(-12, 0, i)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO students (id, matricula, full_name, grade, group_code, email, phone, national_id, birth_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, '', '', '', ?, ?, ?)`,
			s.id, s.matricula, s.name, s.grade, s.group, birth, seedBase, seedBase); err != nil {
			return fmt.Errorf("seed student %s: %w", s.id, err)
		}
	}

	enrollments := [][2]string{
		{"std-0001", "cls-0001"},
		{"std-0002", "cls-0001"},
		{"std-0001", "cls-0002"},
		{"std-0006", "cls-0003"},
		{"std-0008", "cls-0004"},
		{"std-0009", "cls-0004"},
	}
	for i, e := range enrollments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO enrollments (id, student_id, class_id, enrolled_at) VALUES (?, ?, ?, ?)`,
			fmt.Sprintf("enr-%04d", i+1), e[0], e[1], seedBase); err != nil {
			return fmt.Errorf("seed enrollment %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}
