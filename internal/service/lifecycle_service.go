package service

import (
	"context"
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
)

type lifecycleRepository interface {
	PromoteAll(ctx context.Context, maxGrade int) (*models.PromotionResult, error)
	DemoteAll(ctx context.Context, minGrade int) (*models.PromotionResult, error)
	DeleteAllEnrollments(ctx context.Context) (int, error)
	DeleteAllAttendance(ctx context.Context) (int, error)
	DeleteGroupCascade(ctx context.Context, grade int, groupCode string) (*models.CascadeResult, error)
	CreateRun(ctx context.Context, run *models.LifecycleRun) error
	UpdateRun(ctx context.Context, run *models.LifecycleRun) error
	ListRuns(ctx context.Context, limit int) ([]models.LifecycleRun, error)
}

// reauthConfirmer re-verifies an administrator credential. Gated operations
// call it exactly once and mutate nothing unless it accepts.
type reauthConfirmer interface {
	Confirm(ctx context.Context, userID, password string) error
}

type lifecycleAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type lifecycleMetricsRecorder interface {
	RecordLifecycleRun(operation, status string)
}

// LifecycleService runs the destructive bulk operations. Every operation is
// persisted as a lifecycle run row that walks the state machine
// REQUESTED -> AWAITING_CONFIRMATION -> CONFIRMED -> EXECUTING -> COMPLETED,
// branching to REJECTED when re-authentication fails and FAILED when the
// store mutation fails.
type LifecycleService struct {
	repo       lifecycleRepository
	auth       reauthConfirmer
	audit      lifecycleAuditWriter
	invalidate directoryInvalidator
	metrics    lifecycleMetricsRecorder
	school     config.SchoolConfig
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewLifecycleService constructs LifecycleService.
func NewLifecycleService(repo lifecycleRepository, auth reauthConfirmer, audit lifecycleAuditWriter, invalidate directoryInvalidator, metrics lifecycleMetricsRecorder, school config.SchoolConfig, validate *validator.Validate, logger *zap.Logger) *LifecycleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{repo: repo, auth: auth, audit: audit, invalidate: invalidate, metrics: metrics, school: school, validator: validate, logger: logger}
}

// PromoteAll advances every student one grade; students already at the top
// grade are held in place and counted.
func (s *LifecycleService) PromoteAll(ctx context.Context, userID string, req dto.GatedRequest) (*models.LifecycleRun, error) {
	return s.execute(ctx, userID, req.Password, models.LifecyclePromoteAll, func(ctx context.Context) (interface{}, error) {
		return s.repo.PromoteAll(ctx, s.school.MaxGrade)
	})
}

// DemoteAll is the inverse sweep; students at the bottom grade are held.
func (s *LifecycleService) DemoteAll(ctx context.Context, userID string, req dto.GatedRequest) (*models.LifecycleRun, error) {
	return s.execute(ctx, userID, req.Password, models.LifecycleDemoteAll, func(ctx context.Context) (interface{}, error) {
		return s.repo.DemoteAll(ctx, s.school.MinGrade)
	})
}

// DeleteAllEnrollments clears the enrollments table.
func (s *LifecycleService) DeleteAllEnrollments(ctx context.Context, userID string, req dto.GatedRequest) (*models.LifecycleRun, error) {
	return s.execute(ctx, userID, req.Password, models.LifecycleDeleteAllEnrollments, func(ctx context.Context) (interface{}, error) {
		deleted, err := s.repo.DeleteAllEnrollments(ctx)
		return map[string]int{"deleted": deleted}, err
	})
}

// DeleteAllAttendance clears the attendance table.
func (s *LifecycleService) DeleteAllAttendance(ctx context.Context, userID string, req dto.GatedRequest) (*models.LifecycleRun, error) {
	return s.execute(ctx, userID, req.Password, models.LifecycleDeleteAllAttendance, func(ctx context.Context) (interface{}, error) {
		deleted, err := s.repo.DeleteAllAttendance(ctx)
		return map[string]int{"deleted": deleted}, err
	})
}

// DeleteGroupCascade removes a whole (grade, group) cohort: enrollments and
// attendance first, then the student rows. The three deletes run in one
// transaction; if the transaction cannot guarantee full completion the run is
// marked FAILED and a partial failure error tells the caller the effect is
// undefined.
func (s *LifecycleService) DeleteGroupCascade(ctx context.Context, userID string, req dto.DeleteGroupRequest) (*models.LifecycleRun, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cascade payload")
	}
	if req.Grade < s.school.MinGrade || req.Grade > s.school.MaxGrade {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade out of range")
	}
	return s.execute(ctx, userID, req.Password, models.LifecycleDeleteGroupCascade, func(ctx context.Context) (interface{}, error) {
		result, err := s.repo.DeleteGroupCascade(ctx, req.Grade, req.GroupCode)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrPartialFailure.Code, appErrors.ErrPartialFailure.Status, "group cascade did not complete; verify store state manually")
		}
		return result, nil
	})
}

// Runs lists the most recent lifecycle runs, newest first.
func (s *LifecycleService) Runs(ctx context.Context, limit int) ([]models.LifecycleRun, error) {
	if limit <= 0 {
		limit = 50
	}
	runs, err := s.repo.ListRuns(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lifecycle runs")
	}
	return runs, nil
}

// execute drives one gated operation through the run state machine. The
// confirmation step happens strictly before op runs, so a rejected credential
// leaves the store untouched.
func (s *LifecycleService) execute(ctx context.Context, userID, password string, operation models.LifecycleOperation, op func(ctx context.Context) (interface{}, error)) (*models.LifecycleRun, error) {
	run := &models.LifecycleRun{
		ID:          uuid.NewString(),
		Operation:   operation,
		Status:      models.LifecycleRequested,
		RequestedBy: userID,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record lifecycle run")
	}

	s.transition(ctx, run, models.LifecycleAwaitingConfirmation)
	if err := s.auth.Confirm(ctx, userID, password); err != nil {
		s.finish(ctx, run, models.LifecycleRejected, nil, "re-authentication rejected")
		s.logger.Warn("lifecycle operation rejected",
			zap.String("operation", string(operation)),
			zap.String("run_id", run.ID),
			zap.String("user_id", userID))
		return run, err
	}
	s.transition(ctx, run, models.LifecycleConfirmed)

	s.transition(ctx, run, models.LifecycleExecuting)
	counts, err := op(ctx)
	if err != nil {
		s.finish(ctx, run, models.LifecycleFailed, nil, err.Error())
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return run, err
		}
		return run, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "lifecycle operation failed")
	}

	payload, marshalErr := json.Marshal(counts)
	if marshalErr != nil {
		payload = nil
	}
	s.finish(ctx, run, models.LifecycleCompleted, payload, "")
	s.recordAudit(ctx, userID, run)
	if s.invalidate != nil {
		s.invalidate.Invalidate(ctx)
	}
	s.logger.Info("lifecycle operation completed",
		zap.String("operation", string(operation)),
		zap.String("run_id", run.ID),
		zap.ByteString("counts", payload))
	return run, nil
}

func (s *LifecycleService) transition(ctx context.Context, run *models.LifecycleRun, status models.LifecycleStatus) {
	run.Status = status
	if err := s.repo.UpdateRun(ctx, run); err != nil {
		s.logger.Warn("failed to persist lifecycle transition",
			zap.String("run_id", run.ID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func (s *LifecycleService) finish(ctx context.Context, run *models.LifecycleRun, status models.LifecycleStatus, counts json.RawMessage, detail string) {
	run.Status = status
	run.Counts = counts
	if detail != "" {
		run.Detail = &detail
	}
	now := time.Now().UTC()
	run.FinishedAt = &now
	if s.metrics != nil {
		s.metrics.RecordLifecycleRun(string(run.Operation), string(status))
	}
	if err := s.repo.UpdateRun(ctx, run); err != nil {
		s.logger.Warn("failed to persist lifecycle result",
			zap.String("run_id", run.ID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func (s *LifecycleService) recordAudit(ctx context.Context, userID string, run *models.LifecycleRun) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		ID:         uuid.NewString(),
		UserID:     &userID,
		Action:     models.AuditActionLifecycleRun,
		Resource:   "lifecycle_runs",
		ResourceID: &run.ID,
		NewValues:  run.Counts,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write lifecycle audit entry", zap.Error(err))
	}
}
