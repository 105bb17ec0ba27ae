package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/escolar-api/internal/models"
	appErrors "github.com/noah-isme/escolar-api/pkg/errors"
)

type directoryStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	EligibleForClass(ctx context.Context, classID string) ([]models.Student, error)
	GroupDistribution(ctx context.Context) ([]models.GroupCount, error)
}

type directoryClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
}

type directoryEnrollmentReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	ListByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error)
}

type directoryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type directoryMetricsRecorder interface {
	RecordCacheOperation(hit bool)
}

const directoryCacheKey = "directory:distribution"

// StudentProfile is a student resolved together with their enrollments.
type StudentProfile struct {
	Student     models.Student            `json:"student"`
	Enrollments []models.EnrollmentDetail `json:"enrollments"`
}

// DirectoryService answers the cross-entity read queries: class rosters with
// resolved names, eligibility cohorts and the grade/group distribution. The
// distribution is served read-through from Redis; write paths call Invalidate.
type DirectoryService struct {
	students    directoryStudentReader
	classes     directoryClassReader
	enrollments directoryEnrollmentReader
	cache       directoryCache
	cacheTTL    time.Duration
	metrics     directoryMetricsRecorder
	logger      *zap.Logger
}

// NewDirectoryService constructs DirectoryService.
func NewDirectoryService(students directoryStudentReader, classes directoryClassReader, enrollments directoryEnrollmentReader, cache directoryCache, cacheTTL time.Duration, metrics directoryMetricsRecorder, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DirectoryService{students: students, classes: classes, enrollments: enrollments, cache: cache, cacheTTL: cacheTTL, metrics: metrics, logger: logger}
}

// ClassDetail resolves a class with teacher name and enrolled count. Classes
// with no assigned teacher resolve with a nil teacher name rather than an
// error.
func (s *DirectoryService) ClassDetail(ctx context.Context, classID string) (*models.ClassDetail, error) {
	detail, err := s.classes.FindDetailByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return detail, nil
}

// StudentProfile resolves a student together with their current enrollments.
func (s *DirectoryService) StudentProfile(ctx context.Context, studentID string) (*StudentProfile, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	return &StudentProfile{Student: *student, Enrollments: enrollments}, nil
}

// EligibleStudents returns every student not yet enrolled in the class,
// ordered by matricula. The view spans all cohorts, matching what Enroll
// accepts.
func (s *DirectoryService) EligibleStudents(ctx context.Context, classID string) ([]models.Student, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	eligible, err := s.students.EligibleForClass(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load eligible students")
	}
	return eligible, nil
}

// Distribution returns student counts per grade and group. Results are served
// from Redis when present; a miss (or a cache failure, logged at Warn) falls
// through to the store.
func (s *DirectoryService) Distribution(ctx context.Context) ([]models.GroupCount, error) {
	if s.cache != nil {
		var cached []models.GroupCount
		err := s.cache.Get(ctx, directoryCacheKey, &cached)
		if err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true)
			}
			return cached, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false)
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("distribution cache read failed", zap.Error(err))
		}
	}

	counts, err := s.students.GroupDistribution(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute distribution")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, directoryCacheKey, counts, s.cacheTTL); err != nil {
			s.logger.Warn("distribution cache write failed", zap.Error(err))
		}
	}
	return counts, nil
}

// Invalidate drops the cached distribution. Entity write paths call this so
// reads never serve a stale roster after a mutation.
func (s *DirectoryService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "directory:*"); err != nil {
		s.logger.Warn("directory cache invalidation failed", zap.Error(err))
	}
}
