package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/futuremed/wardcare/internal/platform/apperr"
	"github.com/futuremed/wardcare/internal/platform/db"
)

type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type notificationRepoPG struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) Repository {
	return &notificationRepoPG{pool: pool}
}

func (r *notificationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const notificationCols = `id, title, message, sender_id, sender_name, receiver_id, kind, priority,
	admission_id, patient_id, action_url, read_at, is_active, created_at`

func (r *notificationRepoPG) scan(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.Title, &n.Message, &n.SenderID, &n.SenderName, &n.ReceiverID,
		&n.Kind, &n.Priority, &n.AdmissionID, &n.PatientID, &n.ActionURL, &n.ReadAt,
		&n.Active, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepoPG) Create(ctx context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO notification (id, title, message, sender_id, sender_name, receiver_id, kind, priority,
			admission_id, patient_id, action_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`,
		n.ID, n.Title, n.Message, n.SenderID, n.SenderName, n.ReceiverID, n.Kind, n.Priority,
		n.AdmissionID, n.PatientID, n.ActionURL, n.Active,
	).Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *notificationRepoPG) ListForReceiver(ctx context.Context, receiverID uuid.UUID, limit, offset int) ([]*Notification, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notification WHERE receiver_id = $1 AND is_active`, receiverID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+notificationCols+` FROM notification
		WHERE receiver_id = $1 AND is_active
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, receiverID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	var items []*Notification
	for rows.Next() {
		n, err := r.scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (r *notificationRepoPG) UnreadCount(ctx context.Context, receiverID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notification WHERE receiver_id = $1 AND read_at IS NULL AND is_active`,
		receiverID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

func (r *notificationRepoPG) MarkRead(ctx context.Context, id, receiverID uuid.UUID, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE notification SET read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND receiver_id = $2 AND is_active`, id, receiverID, at)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Notification not found.")
	}
	return nil
}

func (r *notificationRepoPG) MarkAllRead(ctx context.Context, receiverID uuid.UUID, at time.Time) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE notification SET read_at = $2
		WHERE receiver_id = $1 AND read_at IS NULL AND is_active`, receiverID, at)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
