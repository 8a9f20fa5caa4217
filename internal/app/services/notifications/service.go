package notifications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/R3E-Network/agent_studio/internal/app/domain/notification"
	"github.com/R3E-Network/agent_studio/internal/app/domain/paging"
	"github.com/R3E-Network/agent_studio/internal/app/events"
	"github.com/R3E-Network/agent_studio/internal/app/metrics"
	"github.com/R3E-Network/agent_studio/internal/app/storage"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

// ListQuery selects one page of a user's notifications.
type ListQuery struct {
	Page       int
	Limit      int
	UnreadOnly bool
}

// Service manages per-user notifications.
type Service struct {
	store     storage.NotificationStore
	publisher events.Publisher
	now       func() time.Time
	log       *logger.Logger
}

// New constructs a notification service.
func New(store storage.NotificationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("notifications")
	}
	return &Service{
		store:     store,
		publisher: events.Noop{},
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
}

// AttachPublisher fans new notifications out to subscribers.
func (s *Service) AttachPublisher(pub events.Publisher) {
	if pub != nil {
		s.publisher = pub
	}
}

// List returns the newest notifications first.
func (s *Service) List(ctx context.Context, userID string, q ListQuery) (paging.Result[notification.Notification], error) {
	page, err := paging.Request{Page: q.Page, Limit: q.Limit}.Normalize()
	if err != nil {
		return paging.Result[notification.Notification]{}, svcerrors.BadRequest(err.Error())
	}
	items, total, err := s.store.ListNotifications(ctx, userID, notification.Filter{UnreadOnly: q.UnreadOnly}, page)
	if err != nil {
		return paging.Result[notification.Notification]{}, svcerrors.Internal("list notifications", err)
	}
	if items == nil {
		items = []notification.Notification{}
	}
	return paging.Result[notification.Notification]{Data: items, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

// MarkRead flags one notification as read. Repeated calls keep the first
// read time. Notifications of other users are reported as missing.
func (s *Service) MarkRead(ctx context.Context, userID, id string) (notification.Notification, error) {
	n, err := s.store.GetNotification(ctx, id)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && n.UserID != userID) {
		return notification.Notification{}, svcerrors.NotFound("notification", id)
	}
	if err != nil {
		return notification.Notification{}, svcerrors.Internal("load notification", err)
	}
	if n.IsRead {
		return n, nil
	}
	updated, err := s.store.MarkNotificationRead(ctx, id, s.now())
	if err != nil {
		return notification.Notification{}, svcerrors.Internal("mark notification read", err)
	}
	return updated, nil
}

// MarkAllRead flags every unread notification of userID and returns how
// many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.MarkAllNotificationsRead(ctx, userID, s.now())
	if err != nil {
		return 0, svcerrors.Internal("mark notifications read", err)
	}
	return n, nil
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := s.store.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return 0, svcerrors.Internal("count notifications", err)
	}
	return n, nil
}

// Notify stores a notification and publishes it on notifications.<userID>.
func (s *Service) Notify(ctx context.Context, userID string, typ notification.Type, title, body string) (notification.Notification, error) {
	title = strings.TrimSpace(title)
	if userID == "" || title == "" {
		return notification.Notification{}, svcerrors.BadRequest("user and title are required")
	}
	if typ == "" {
		typ = notification.TypeSystem
	}
	created, err := s.store.CreateNotification(ctx, notification.Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Body:      strings.TrimSpace(body),
		CreatedAt: s.now(),
	})
	if err != nil {
		return notification.Notification{}, svcerrors.Internal("create notification", err)
	}
	metrics.RecordNotificationCreated(string(created.Type))
	events.Emit(ctx, s.publisher, s.log, events.Subject(events.NotificationsTopic, userID), created)
	return created, nil
}
