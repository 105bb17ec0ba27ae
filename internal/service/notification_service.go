package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/escolar-api/internal/dto"
	"github.com/noah-isme/escolar-api/internal/models"
	"github.com/noah-isme/escolar-api/pkg/config"
	appErrors "github.com/noah-isme/escolar-api/pkg/errors"
	"github.com/noah-isme/escolar-api/pkg/jobs"
)

type notificationRepository interface {
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	Create(ctx context.Context, notification *models.Notification) error
	UpdateStatus(ctx context.Context, id string, status models.NotificationStatus) error
	Delete(ctx context.Context, id string) error
}

type notificationStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type notificationClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type dispatchEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// NotificationService manages announcement targeting and the review flow.
// A notification carries exactly the qualifier its mode needs; the other
// qualifier columns stay null. Approval hands a dispatch job to the queue.
type NotificationService struct {
	repo      notificationRepository
	students  notificationStudentReader
	classes   notificationClassReader
	queue     dispatchEnqueuer
	school    config.SchoolConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(repo notificationRepository, students notificationStudentReader, classes notificationClassReader, queue dispatchEnqueuer, school config.SchoolConfig, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, students: students, classes: classes, queue: queue, school: school, validator: validate, logger: logger}
}

// List returns notifications with pagination metadata.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	notifications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return notifications, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one notification.
func (s *NotificationService) Get(ctx context.Context, id string) (*models.Notification, error) {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
	}
	return notification, nil
}

// Create validates the targeting shape and persists a PENDING notification.
func (s *NotificationService) Create(ctx context.Context, req dto.CreateNotificationRequest) (*models.Notification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload")
	}
	mode := models.NotificationMode(req.Mode)
	if err := s.checkTarget(ctx, mode, req); err != nil {
		return nil, err
	}

	notification := &models.Notification{
		Title:  req.Title,
		Body:   req.Body,
		Mode:   mode,
		Status: models.NotificationStatusPending,
	}
	switch mode {
	case models.NotificationModeGrade:
		notification.Grade = req.Grade
	case models.NotificationModeGradeGroup:
		notification.Grade = req.Grade
		notification.GroupCode = req.GroupCode
	case models.NotificationModeClass:
		notification.ClassID = req.ClassID
	case models.NotificationModeExplicit:
		ids, err := json.Marshal(dedupe(req.StudentIDs))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode recipients")
		}
		notification.StudentIDs = ids
	}
	if req.ExpiresAt != nil {
		expires, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "expires_at must be RFC3339")
		}
		notification.ExpiresAt = &expires
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notification")
	}
	return notification, nil
}

// Approve marks a pending notification APPROVED and enqueues its dispatch.
func (s *NotificationService) Approve(ctx context.Context, id string) (*models.Notification, error) {
	notification, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification.Status != models.NotificationStatusPending {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only pending notifications can be approved")
	}
	if err := s.repo.UpdateStatus(ctx, id, models.NotificationStatusApproved); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve notification")
	}
	notification.Status = models.NotificationStatusApproved

	if s.queue != nil {
		target := s.target(notification)
		job := jobs.Job{ID: uuid.NewString(), Type: "notification.dispatch", Payload: target}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Error("failed to enqueue notification dispatch",
				zap.String("notification_id", id),
				zap.Error(err))
		}
	}
	return notification, nil
}

// Reject marks a pending notification REJECTED; nothing is dispatched.
func (s *NotificationService) Reject(ctx context.Context, id string) (*models.Notification, error) {
	notification, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification.Status != models.NotificationStatusPending {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only pending notifications can be rejected")
	}
	if err := s.repo.UpdateStatus(ctx, id, models.NotificationStatusRejected); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject notification")
	}
	notification.Status = models.NotificationStatusRejected
	return notification, nil
}

// Delete removes a notification.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notification")
	}
	return nil
}

// checkTarget enforces that the qualifier matching the mode is present and
// references existing entities, and that qualifiers for other modes are
// absent.
func (s *NotificationService) checkTarget(ctx context.Context, mode models.NotificationMode, req dto.CreateNotificationRequest) error {
	if req.Grade != nil && (*req.Grade < s.school.MinGrade || *req.Grade > s.school.MaxGrade) {
		return appErrors.Clone(appErrors.ErrValidation, "grade out of range")
	}
	switch mode {
	case models.NotificationModeAll:
		if req.Grade != nil || req.GroupCode != nil || req.ClassID != nil || len(req.StudentIDs) > 0 {
			return appErrors.Clone(appErrors.ErrValidation, "ALL mode takes no qualifiers")
		}
	case models.NotificationModeGrade:
		if req.Grade == nil {
			return appErrors.Clone(appErrors.ErrValidation, "BY_GRADE mode requires grade")
		}
		if req.GroupCode != nil || req.ClassID != nil || len(req.StudentIDs) > 0 {
			return appErrors.Clone(appErrors.ErrValidation, "BY_GRADE mode takes only grade")
		}
	case models.NotificationModeGradeGroup:
		if req.Grade == nil || req.GroupCode == nil {
			return appErrors.Clone(appErrors.ErrValidation, "BY_GRADE_GROUP mode requires grade and group_code")
		}
		if req.ClassID != nil || len(req.StudentIDs) > 0 {
			return appErrors.Clone(appErrors.ErrValidation, "BY_GRADE_GROUP mode takes only grade and group_code")
		}
	case models.NotificationModeClass:
		if req.ClassID == nil {
			return appErrors.Clone(appErrors.ErrValidation, "BY_CLASS mode requires class_id")
		}
		if req.Grade != nil || req.GroupCode != nil || len(req.StudentIDs) > 0 {
			return appErrors.Clone(appErrors.ErrValidation, "BY_CLASS mode takes only class_id")
		}
		if _, err := s.classes.FindByID(ctx, *req.ClassID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "class not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
		}
	case models.NotificationModeExplicit:
		if len(req.StudentIDs) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "EXPLICIT mode requires student_ids")
		}
		if req.Grade != nil || req.GroupCode != nil || req.ClassID != nil {
			return appErrors.Clone(appErrors.ErrValidation, "EXPLICIT mode takes only student_ids")
		}
		for _, studentID := range req.StudentIDs {
			if _, err := s.students.FindByID(ctx, studentID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrNotFound, "student not found: "+studentID)
				}
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
			}
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *NotificationService) target(n *models.Notification) dto.NotificationTarget {
	target := dto.NotificationTarget{
		NotificationID: n.ID,
		Mode:           string(n.Mode),
		Grade:          n.Grade,
		GroupCode:      n.GroupCode,
		ClassID:        n.ClassID,
		Title:          n.Title,
		Body:           n.Body,
	}
	if ids, err := n.RecipientList(); err == nil {
		target.StudentIDs = ids
	}
	return target
}

// DispatchHandler returns the queue handler that delivers approved
// notifications. Delivery here is structured-log only; a push transport can
// replace the body without touching the queue wiring.
func DispatchHandler(logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		target, ok := job.Payload.(dto.NotificationTarget)
		if !ok {
			return appErrors.Clone(appErrors.ErrInternal, "unexpected dispatch payload")
		}
		logger.Info("notification dispatched",
			zap.String("notification_id", target.NotificationID),
			zap.String("mode", target.Mode),
			zap.String("title", target.Title),
			zap.Int("explicit_recipients", len(target.StudentIDs)))
		return nil
	}
}
