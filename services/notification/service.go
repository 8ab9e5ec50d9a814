package notification

import (
	"context"
	"time"

	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/db/pagination"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/gen"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/repository"
	"endurancy-platform/pkg/task"
	"endurancy-platform/pkg/taskname"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier delivers in-app notifications to a user. Services depend on this
// rather than on the concrete store.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

type Service struct {
	db       *gorm.DB
	ids      gen.IDGenerator
	enqueuer task.Enqueuer
	validate *validator.Validate

	notification repository.Repository[Notification]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	IDs      gen.IDGenerator
	Enqueuer task.Enqueuer
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		ids:      p.IDs,
		enqueuer: p.Enqueuer,
		validate: validator.New(),

		notification: repository.ProvideStore[Notification](p.DB),
	}
}

func (s *Service) Notify(ctx context.Context, n Notice) error {
	if err := s.validate.Struct(n); err != nil {
		return errutil.FromValidation(err)
	}
	if n.Type == "" {
		n.Type = TypeInfo
	}

	return s.notification.Create(ctx, &Notification{
		ID:             s.ids.NewID(),
		OrganizationID: n.OrganizationID,
		UserID:         n.UserID,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		Link:           n.Link,
	})
}

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, p pagination.Pagination) ([]*Notification, *pagination.PageInfo, error) {
	opts := []option.QueryOption{
		option.Equal("user_id", userID),
	}
	if unreadOnly {
		opts = append(opts, option.Equal("is_read", false))
	}
	opts = append(opts, option.WithSortBy(option.QuerySortBy{}), option.ApplyPagination(p))

	rows, err := s.notification.Find(ctx, nil, opts...)
	if err != nil {
		return nil, nil, err
	}
	data, info := pagination.Page(rows, p.Normalize().Limit, func(n *Notification) string {
		return pagination.CursorOf(n.ID, n.CreatedAt)
	})
	return data, info, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.notification.Count(ctx, nil, option.Equal("user_id", userID), option.Equal("is_read", false))
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) (*Notification, error) {
	n, err := s.notification.FindOne(ctx, &Notification{ID: id, UserID: userID})
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, errutil.NotFound("Notification not found", nil)
	}
	if n.IsRead {
		return n, nil
	}

	now := time.Now().UTC()
	if err := s.notification.Update(ctx, id, map[string]any{"is_read": true, "read_at": now}); err != nil {
		return nil, err
	}
	n.IsRead = true
	n.ReadAt = &now
	return n, nil
}

// MarkAllRead returns how many notifications changed.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// Broadcast queues a notification for every active user of the organization.
func (s *Service) Broadcast(ctx context.Context, organizationID, senderID string, req BroadcastRequest) (*asynq.TaskInfo, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	if organizationID == "" {
		return nil, errutil.BadRequest("Organization is required", nil)
	}

	t, err := task.NewJSONTask(taskname.NotificationBroadcast, broadcastPayload{
		OrganizationID: organizationID,
		SenderID:       senderID,
		Request:        req,
	})
	if err != nil {
		return nil, err
	}

	info, err := s.enqueuer.Enqueue(t, asynq.Queue(task.QueueLow), asynq.MaxRetry(3))
	if err != nil {
		logger.FromContext(ctx).Error("failed to enqueue broadcast", zap.Error(err))
		return nil, err
	}
	return info, nil
}
