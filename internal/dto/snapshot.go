package dto

import (
	"time"

	"github.com/noah-isme/escolar-api/internal/models"
)

// Snapshot is the full serialized state of the five entity collections.
// Exporting then importing a snapshot reproduces the store id-for-id.
type Snapshot struct {
	Version       int                   `json:"version"`
	ExportedAt    time.Time             `json:"exported_at"`
	Students      []models.Student      `json:"students"`
	Teachers      []models.Teacher      `json:"teachers"`
	Classes       []models.Class        `json:"classes"`
	Enrollments   []models.Enrollment   `json:"enrollments"`
	Notifications []models.Notification `json:"notifications"`
}
