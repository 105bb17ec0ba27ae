package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/escolar-api/internal/models"
	"github.com/noah-isme/escolar-api/pkg/config"
	appErrors "github.com/noah-isme/escolar-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByMatricula(ctx context.Context, matricula, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// directoryInvalidator drops cached grade/group statistics after any write
// that changes the student population.
type directoryInvalidator interface {
	Invalidate(ctx context.Context)
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	Matricula  string    `json:"matricula" validate:"required"`
	FullName   string    `json:"full_name" validate:"required"`
	Grade      int       `json:"grade" validate:"required,min=1"`
	GroupCode  string    `json:"group_code" validate:"required,alpha,uppercase"`
	Email      string    `json:"email" validate:"omitempty,email"`
	Phone      string    `json:"phone"`
	NationalID string    `json:"national_id"`
	BirthDate  time.Time `json:"birth_date" validate:"required"`
}

// UpdateStudentRequest holds payload for updating students.
type UpdateStudentRequest struct {
	Matricula  string    `json:"matricula" validate:"required"`
	FullName   string    `json:"full_name" validate:"required"`
	Grade      int       `json:"grade" validate:"required,min=1"`
	GroupCode  string    `json:"group_code" validate:"required,alpha,uppercase"`
	Email      string    `json:"email" validate:"omitempty,email"`
	Phone      string    `json:"phone"`
	NationalID string    `json:"national_id"`
	BirthDate  time.Time `json:"birth_date" validate:"required"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	directory directoryInvalidator
	school    config.SchoolConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, directory directoryInvalidator, school config.SchoolConfig, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, directory: directory, school: school, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *StudentService) checkGrade(grade int) error {
	if grade < s.school.MinGrade || grade > s.school.MaxGrade {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("grade must be between %d and %d", s.school.MinGrade, s.school.MaxGrade))
	}
	return nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.checkGrade(req.Grade); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByMatricula(ctx, req.Matricula, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate matricula")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "matricula already used")
	}
	student := &models.Student{
		Matricula:  req.Matricula,
		FullName:   req.FullName,
		Grade:      req.Grade,
		GroupCode:  req.GroupCode,
		Email:      req.Email,
		Phone:      req.Phone,
		NationalID: req.NationalID,
		BirthDate:  req.BirthDate,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.invalidate(ctx)
	return student, nil
}

// Update modifies an existing student. The id is never changed.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.checkGrade(req.Grade); err != nil {
		return nil, err
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if req.Matricula != student.Matricula {
		exists, err := s.repo.ExistsByMatricula(ctx, req.Matricula, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate matricula")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "matricula already used")
		}
	}
	student.Matricula = req.Matricula
	student.FullName = req.FullName
	student.Grade = req.Grade
	student.GroupCode = req.GroupCode
	student.Email = req.Email
	student.Phone = req.Phone
	student.NationalID = req.NationalID
	student.BirthDate = req.BirthDate
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.invalidate(ctx)
	return student, nil
}

// Delete removes a single student without cascading; bulk cohort removal
// goes through the lifecycle engine.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.invalidate(ctx)
	return nil
}

func (s *StudentService) invalidate(ctx context.Context) {
	if s.directory != nil {
		s.directory.Invalidate(ctx)
	}
}
