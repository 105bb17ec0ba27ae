package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/escolar-api/internal/models"
)

// NotificationRepository handles persistence of notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// List returns notifications filtered by mode and status.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	base := "FROM notifications n"
	var conditions []string
	var args []interface{}

	if filter.Mode != "" {
		conditions = append(conditions, "n.mode = ?")
		args = append(args, filter.Mode)
	}
	if filter.Status != "" {
		conditions = append(conditions, "n.status = ?")
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf(`SELECT n.id, n.title, n.body, n.mode, n.grade, n.group_code, n.class_id, n.student_ids, n.status, n.expires_at, n.created_at, n.updated_at
        %s ORDER BY n.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return notifications, total, nil
}

// FindByID returns a notification by its ID.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	const query = `SELECT id, title, body, mode, grade, group_code, class_id, student_ids, status, expires_at, created_at, updated_at
        FROM notifications WHERE id = ?`
	var notification models.Notification
	if err := r.db.GetContext(ctx, &notification, query, id); err != nil {
		return nil, err
	}
	return &notification, nil
}

// Create persists a new notification record.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = now
	}
	notification.UpdatedAt = now
	if notification.Status == "" {
		notification.Status = models.NotificationStatusPending
	}
	const query = `INSERT INTO notifications (id, title, body, mode, grade, group_code, class_id, student_ids, status, expires_at, created_at, updated_at)
        VALUES (:id, :title, :body, :mode, :grade, :group_code, :class_id, :student_ids, :status, :expires_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// UpdateStatus transitions the review status.
func (r *NotificationRepository) UpdateStatus(ctx context.Context, id string, status models.NotificationStatus) error {
	const query = `UPDATE notifications SET status = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update notification status: %w", err)
	}
	return nil
}

// Delete removes a notification row.
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// ListAll returns every notification, for snapshot export.
func (r *NotificationRepository) ListAll(ctx context.Context) ([]models.Notification, error) {
	const query = `SELECT id, title, body, mode, grade, group_code, class_id, student_ids, status, expires_at, created_at, updated_at
        FROM notifications ORDER BY created_at ASC, id ASC`
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query); err != nil {
		return nil, fmt.Errorf("list all notifications: %w", err)
	}
	return notifications, nil
}
