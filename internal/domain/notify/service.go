package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Pusher is the real-time channel to connected employees.
type Pusher interface {
	NotifyUser(ctx context.Context, employeeID uuid.UUID, payload interface{}) error
	UpdateUnreadCount(ctx context.Context, employeeID uuid.UUID, count int) error
}

// Outbox accepts the drafts of a committed operation.
type Outbox interface {
	Dispatch(ctx context.Context, drafts []Draft)
}

// Dispatcher delivers drafts after the operation that produced them has
// committed. Delivery failures are logged and never reach the caller.
type Dispatcher struct {
	repo   Repository
	push   Pusher
	logger zerolog.Logger
}

func NewDispatcher(repo Repository, push Pusher, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:   repo,
		push:   push,
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, drafts []Draft) {
	if len(drafts) == 0 {
		return
	}
	// The request may already be finished; delivery still has to happen.
	ctx = context.WithoutCancel(ctx)
	for _, draft := range drafts {
		n := draft.notification()
		if err := d.repo.Create(ctx, n); err != nil {
			d.logger.Error().Err(err).
				Str("receiver_id", draft.ReceiverID.String()).
				Str("kind", string(draft.Kind)).
				Msg("notification not saved")
			continue
		}
		if err := d.push.NotifyUser(ctx, n.ReceiverID, n); err != nil {
			d.logger.Warn().Err(err).Str("receiver_id", n.ReceiverID.String()).Msg("notification push failed")
		}
		d.pushUnread(ctx, n.ReceiverID)
	}
}

func (d *Dispatcher) pushUnread(ctx context.Context, receiverID uuid.UUID) {
	count, err := d.repo.UnreadCount(ctx, receiverID)
	if err != nil {
		d.logger.Warn().Err(err).Str("receiver_id", receiverID.String()).Msg("unread count failed")
		return
	}
	if err := d.push.UpdateUnreadCount(ctx, receiverID, count); err != nil {
		d.logger.Warn().Err(err).Str("receiver_id", receiverID.String()).Msg("unread count push failed")
	}
}

// Inbox serves an employee's own notifications.
type Inbox struct {
	repo       Repository
	dispatcher *Dispatcher
	now        func() time.Time
}

func NewInbox(repo Repository, dispatcher *Dispatcher) *Inbox {
	return &Inbox{repo: repo, dispatcher: dispatcher, now: time.Now}
}

func (s *Inbox) List(ctx context.Context, receiverID uuid.UUID, limit, offset int) ([]*Notification, int, error) {
	return s.repo.ListForReceiver(ctx, receiverID, limit, offset)
}

func (s *Inbox) UnreadCount(ctx context.Context, receiverID uuid.UUID) (int, error) {
	return s.repo.UnreadCount(ctx, receiverID)
}

func (s *Inbox) MarkRead(ctx context.Context, id, receiverID uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, id, receiverID, s.now()); err != nil {
		return err
	}
	s.dispatcher.pushUnread(ctx, receiverID)
	return nil
}

func (s *Inbox) MarkAllRead(ctx context.Context, receiverID uuid.UUID) (int, error) {
	n, err := s.repo.MarkAllRead(ctx, receiverID, s.now())
	if err != nil {
		return 0, err
	}
	s.dispatcher.pushUnread(ctx, receiverID)
	return n, nil
}
