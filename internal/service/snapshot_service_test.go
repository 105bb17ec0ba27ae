package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/escolar-api/internal/dto"
	"github.com/noah-isme/escolar-api/internal/models"
	appErrors "github.com/noah-isme/escolar-api/pkg/errors"
)

type mockSnapshotStore struct {
	students      []models.Student
	teachers      []models.Teacher
	classes       []models.Class
	enrollments   []models.Enrollment
	notifications []models.Notification
	restored      *dto.Snapshot
}

func (m *mockSnapshotStore) ListAll(ctx context.Context) ([]models.Student, error) {
	return m.students, nil
}

type mockTeacherLister struct{ store *mockSnapshotStore }

func (m *mockTeacherLister) ListAll(ctx context.Context) ([]models.Teacher, error) {
	return m.store.teachers, nil
}

type mockClassLister struct{ store *mockSnapshotStore }

func (m *mockClassLister) ListAll(ctx context.Context) ([]models.Class, error) {
	return m.store.classes, nil
}

type mockEnrollmentLister struct{ store *mockSnapshotStore }

func (m *mockEnrollmentLister) ListAll(ctx context.Context) ([]models.Enrollment, error) {
	return m.store.enrollments, nil
}

type mockNotificationLister struct{ store *mockSnapshotStore }

func (m *mockNotificationLister) ListAll(ctx context.Context) ([]models.Notification, error) {
	return m.store.notifications, nil
}

func (m *mockSnapshotStore) Restore(ctx context.Context, snap *dto.Snapshot) error {
	m.restored = snap
	m.students = snap.Students
	m.teachers = snap.Teachers
	m.classes = snap.Classes
	m.enrollments = snap.Enrollments
	m.notifications = snap.Notifications
	return nil
}

type mockSnapshotAudit struct {
	actions []string
}

func (m *mockSnapshotAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.actions = append(m.actions, log.Action)
	return nil
}

type mockSnapshotArchive struct {
	saved map[string][]byte
}

func (m *mockSnapshotArchive) Save(filename string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[filename] = data
	return filename, nil
}

func newSnapshotFixture(store *mockSnapshotStore) (*SnapshotService, *mockSnapshotAudit, *mockInvalidator) {
	audit := &mockSnapshotAudit{}
	invalidator := &mockInvalidator{}
	svc := NewSnapshotService(
		store,
		&mockTeacherLister{store: store},
		&mockClassLister{store: store},
		&mockEnrollmentLister{store: store},
		&mockNotificationLister{store: store},
		store,
		audit,
		nil,
		invalidator,
		nil,
	)
	return svc, audit, invalidator
}

func TestSnapshotServiceExport(t *testing.T) {
	store := &mockSnapshotStore{
		students:    []models.Student{{ID: "s1", Matricula: "2024-0001"}},
		teachers:    []models.Teacher{{ID: "t1"}},
		classes:     []models.Class{{ID: "c1"}},
		enrollments: []models.Enrollment{{ID: "e1", StudentID: "s1", ClassID: "c1"}},
	}
	svc, audit, _ := newSnapshotFixture(store)

	snap, err := svc.Export(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version)
	assert.False(t, snap.ExportedAt.IsZero())
	assert.Len(t, snap.Students, 1)
	assert.Len(t, snap.Enrollments, 1)
	assert.Equal(t, []string{models.AuditActionSnapshotExport}, audit.actions)
}

func TestSnapshotServiceExportImportRoundTrip(t *testing.T) {
	source := &mockSnapshotStore{
		students: []models.Student{{ID: "s1", Matricula: "2024-0001", FullName: "Ana Torres"}},
		classes:  []models.Class{{ID: "c1", Code: "MAT-3A"}},
	}
	sourceSvc, _, _ := newSnapshotFixture(source)

	snap, err := sourceSvc.Export(context.Background(), "u1")
	require.NoError(t, err)

	target := &mockSnapshotStore{}
	targetSvc, audit, invalidator := newSnapshotFixture(target)

	require.NoError(t, targetSvc.Import(context.Background(), "u1", snap))
	require.NotNil(t, target.restored)
	assert.Equal(t, source.students, target.students)
	assert.Equal(t, source.classes, target.classes)
	assert.Equal(t, []string{models.AuditActionSnapshotImport}, audit.actions)
	assert.Equal(t, 1, invalidator.calls)
}

func TestSnapshotServiceExportArchivesCopy(t *testing.T) {
	store := &mockSnapshotStore{students: []models.Student{{ID: "s1", Matricula: "2024-0001"}}}
	archive := &mockSnapshotArchive{}
	svc := NewSnapshotService(
		store,
		&mockTeacherLister{store: store},
		&mockClassLister{store: store},
		&mockEnrollmentLister{store: store},
		&mockNotificationLister{store: store},
		store,
		&mockSnapshotAudit{},
		archive,
		&mockInvalidator{},
		nil,
	)

	_, err := svc.Export(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, archive.saved, 1)
	for name, data := range archive.saved {
		assert.True(t, strings.HasPrefix(name, "snapshots/snapshot-"))
		assert.Contains(t, string(data), "2024-0001")
	}
}

func TestSnapshotServiceImportRejectsVersionMismatch(t *testing.T) {
	store := &mockSnapshotStore{}
	svc, audit, _ := newSnapshotFixture(store)

	err := svc.Import(context.Background(), "u1", &dto.Snapshot{Version: 99, ExportedAt: time.Now()})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, store.restored)
	assert.Empty(t, audit.actions)
}

func TestSnapshotServiceImportRejectsNilPayload(t *testing.T) {
	store := &mockSnapshotStore{}
	svc, _, _ := newSnapshotFixture(store)

	err := svc.Import(context.Background(), "u1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
