package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/escolar-api/internal/dto"
	"github.com/noah-isme/escolar-api/internal/models"
	appErrors "github.com/noah-isme/escolar-api/pkg/errors"
)

// snapshotVersion guards imports against a future format change.
const snapshotVersion = 1

type snapshotStudentLister interface {
	ListAll(ctx context.Context) ([]models.Student, error)
}

type snapshotTeacherLister interface {
	ListAll(ctx context.Context) ([]models.Teacher, error)
}

type snapshotClassLister interface {
	ListAll(ctx context.Context) ([]models.Class, error)
}

type snapshotEnrollmentLister interface {
	ListAll(ctx context.Context) ([]models.Enrollment, error)
}

type snapshotNotificationLister interface {
	ListAll(ctx context.Context) ([]models.Notification, error)
}

type snapshotRestorer interface {
	Restore(ctx context.Context, snap *dto.Snapshot) error
}

type snapshotAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type snapshotArchiveWriter interface {
	Save(filename string, data []byte) (string, error)
}

// SnapshotService exports and restores the full entity state. Restoring the
// export of a store reproduces it id-for-id, which also serves as the
// backup/migration path for the single-file database.
type SnapshotService struct {
	students      snapshotStudentLister
	teachers      snapshotTeacherLister
	classes       snapshotClassLister
	enrollments   snapshotEnrollmentLister
	notifications snapshotNotificationLister
	restorer      snapshotRestorer
	audit         snapshotAuditWriter
	archive       snapshotArchiveWriter
	invalidate    directoryInvalidator
	logger        *zap.Logger
}

// NewSnapshotService constructs SnapshotService. A nil archive disables the
// on-disk copy of exports.
func NewSnapshotService(students snapshotStudentLister, teachers snapshotTeacherLister, classes snapshotClassLister, enrollments snapshotEnrollmentLister, notifications snapshotNotificationLister, restorer snapshotRestorer, audit snapshotAuditWriter, archive snapshotArchiveWriter, invalidate directoryInvalidator, logger *zap.Logger) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotService{
		students:      students,
		teachers:      teachers,
		classes:       classes,
		enrollments:   enrollments,
		notifications: notifications,
		restorer:      restorer,
		audit:         audit,
		archive:       archive,
		invalidate:    invalidate,
		logger:        logger,
	}
}

// Export serializes the five entity collections.
func (s *SnapshotService) Export(ctx context.Context, userID string) (*dto.Snapshot, error) {
	snap := &dto.Snapshot{Version: snapshotVersion, ExportedAt: time.Now().UTC()}

	var err error
	if snap.Students, err = s.students.ListAll(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export students")
	}
	if snap.Teachers, err = s.teachers.ListAll(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export teachers")
	}
	if snap.Classes, err = s.classes.ListAll(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export classes")
	}
	if snap.Enrollments, err = s.enrollments.ListAll(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export enrollments")
	}
	if snap.Notifications, err = s.notifications.ListAll(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export notifications")
	}

	s.recordAudit(ctx, userID, models.AuditActionSnapshotExport)
	s.archiveExport(snap)
	return snap, nil
}

// archiveExport writes a dated copy of the export to disk. Failures are
// logged, not returned.
func (s *SnapshotService) archiveExport(snap *dto.Snapshot) {
	if s.archive == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		s.logger.Warn("failed to encode snapshot archive", zap.Error(err))
		return
	}
	name := fmt.Sprintf("snapshots/snapshot-%s.json", snap.ExportedAt.Format("20060102-150405"))
	if _, err := s.archive.Save(name, payload); err != nil {
		s.logger.Warn("failed to archive snapshot", zap.Error(err))
		return
	}
	s.logger.Info("snapshot archived", zap.String("path", name))
}

// Import replaces the entity state with the snapshot's contents in one
// transaction. Users, audit logs and lifecycle runs are not part of the
// snapshot and survive the import.
func (s *SnapshotService) Import(ctx context.Context, userID string, snap *dto.Snapshot) error {
	if snap == nil {
		return appErrors.Clone(appErrors.ErrValidation, "snapshot payload required")
	}
	if snap.Version != snapshotVersion {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported snapshot version")
	}
	if err := s.restorer.Restore(ctx, snap); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore snapshot")
	}

	s.recordAudit(ctx, userID, models.AuditActionSnapshotImport)
	if s.invalidate != nil {
		s.invalidate.Invalidate(ctx)
	}
	s.logger.Info("snapshot imported",
		zap.Int("students", len(snap.Students)),
		zap.Int("teachers", len(snap.Teachers)),
		zap.Int("classes", len(snap.Classes)),
		zap.Int("enrollments", len(snap.Enrollments)),
		zap.Int("notifications", len(snap.Notifications)))
	return nil
}

func (s *SnapshotService) recordAudit(ctx context.Context, userID, action string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		ID:        uuid.NewString(),
		UserID:    &userID,
		Action:    action,
		Resource:  "snapshot",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write snapshot audit entry", zap.Error(err))
	}
}
