package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/escolar-api/internal/models"
	appErrors "github.com/noah-isme/escolar-api/pkg/errors"
	"github.com/noah-isme/escolar-api/pkg/export"
	"github.com/noah-isme/escolar-api/pkg/storage"
)

type exportEnrollmentReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error)
}

type exportClassReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
}

type exportStudentLister interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
}

type exportFileStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportLink points at a stored export file. The token doubles as the
// credential, so the link works without a session until it expires.
type ExportLink struct {
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportService renders class rosters and the student directory as PDF or
// CSV, either streamed directly or persisted to the export archive and
// served through signed download links.
type ExportService struct {
	enrollments exportEnrollmentReader
	classes     exportClassReader
	students    exportStudentLister
	store       exportFileStore
	signer      *storage.SignedURLSigner
	apiPrefix   string
	pdf         *export.PDFExporter
	csv         *export.CSVExporter
	logger      *zap.Logger
}

// NewExportService constructs ExportService. Store and signer may be nil,
// in which case only the direct download paths are available.
func NewExportService(enrollments exportEnrollmentReader, classes exportClassReader, students exportStudentLister, store exportFileStore, signer *storage.SignedURLSigner, apiPrefix string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if apiPrefix == "" {
		apiPrefix = "/api/v1"
	}
	return &ExportService{
		enrollments: enrollments,
		classes:     classes,
		students:    students,
		store:       store,
		signer:      signer,
		apiPrefix:   strings.TrimRight(apiPrefix, "/"),
		pdf:         export.NewPDFExporter(),
		csv:         export.NewCSVExporter(),
		logger:      logger,
	}
}

// ClassRosterPDF renders the enrollment roster of one class.
func (s *ExportService) ClassRosterPDF(ctx context.Context, classID string) ([]byte, string, error) {
	detail, err := s.classes.FindDetailByID(ctx, classID)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	roster, err := s.enrollments.ListByClass(ctx, classID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	data := export.Dataset{Headers: []string{"Matricula", "Student", "Enrolled At"}}
	for _, row := range roster {
		data.Rows = append(data.Rows, []string{row.StudentMatricula, row.StudentName, row.EnrolledAt.Format("2006-01-02")})
	}
	title := fmt.Sprintf("Roster %s (grade %d, group %s)", detail.Code, detail.Grade, detail.GroupCode)
	payload, err := s.pdf.Render(data, title)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	filename := fmt.Sprintf("roster-%s.pdf", detail.Code)
	return payload, filename, nil
}

// StudentsCSV renders the filtered student directory as CSV.
func (s *ExportService) StudentsCSV(ctx context.Context, filter models.StudentFilter) ([]byte, string, error) {
	filter.Page = 1
	filter.PageSize = 10000
	students, _, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	data := export.Dataset{Headers: []string{"Matricula", "Full Name", "Grade", "Group", "Email", "Phone"}}
	for _, st := range students {
		data.Rows = append(data.Rows, []string{
			st.Matricula,
			st.FullName,
			strconv.Itoa(st.Grade),
			st.GroupCode,
			st.Email,
			st.Phone,
		})
	}
	payload, err := s.csv.Render(data)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render directory")
	}
	return payload, "students.csv", nil
}

// ClassRosterLink renders the roster, stores it in the export archive and
// returns a signed download link.
func (s *ExportService) ClassRosterLink(ctx context.Context, classID string) (*ExportLink, error) {
	payload, filename, err := s.ClassRosterPDF(ctx, classID)
	if err != nil {
		return nil, err
	}
	return s.archive("roster-"+classID, "rosters", filename, payload)
}

// StudentsCSVLink renders the filtered directory, stores it and returns a
// signed download link.
func (s *ExportService) StudentsCSVLink(ctx context.Context, filter models.StudentFilter) (*ExportLink, error) {
	payload, filename, err := s.StudentsCSV(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.archive("students-csv", "directory", filename, payload)
}

// Download resolves a signed token to a stored file and the filename to
// suggest to the client.
func (s *ExportService) Download(token string) (*os.File, string, error) {
	if s.store == nil || s.signer == nil {
		return nil, "", appErrors.Clone(appErrors.ErrInternal, "export archive is not configured")
	}
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return file, filepath.Base(relPath), nil
}

// Cleanup removes archived exports older than ttl and returns their paths.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.CleanupOlderThan(ttl)
}

func (s *ExportService) archive(exportID, dir, filename string, payload []byte) (*ExportLink, error) {
	if s.store == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export archive is not configured")
	}
	stamp := time.Now().UTC().Format("20060102-150405")
	ext := filepath.Ext(filename)
	stored := fmt.Sprintf("%s/%s-%s%s", dir, strings.TrimSuffix(filename, ext), stamp, ext)
	relPath, err := s.store.Save(stored, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	s.logger.Info("export archived", zap.String("path", relPath), zap.Time("expires_at", expiresAt))
	return &ExportLink{
		Filename:  filename,
		URL:       fmt.Sprintf("%s/exports/%s", s.apiPrefix, token),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
