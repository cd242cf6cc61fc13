package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	// ListForReceiver returns active notifications, latest first.
	ListForReceiver(ctx context.Context, receiverID uuid.UUID, limit, offset int) ([]*Notification, int, error)
	UnreadCount(ctx context.Context, receiverID uuid.UUID) (int, error)
	// MarkRead only touches a notification owned by receiverID.
	MarkRead(ctx context.Context, id, receiverID uuid.UUID, at time.Time) error
	MarkAllRead(ctx context.Context, receiverID uuid.UUID, at time.Time) (int, error)
}
