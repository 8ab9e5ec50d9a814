package notification

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"endurancy-platform/pkg/task"
	"endurancy-platform/services/user"

	"github.com/hibiken/asynq"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Broadcaster fans a broadcast task out to every recipient on a bounded
// goroutine pool.
type Broadcaster struct {
	notifier Notifier
	users    *user.Service
	pool     *ants.Pool
}

func NewBroadcaster(notifier *Service, users *user.Service, pool *ants.Pool) *Broadcaster {
	return &Broadcaster{notifier: notifier, users: users, pool: pool}
}

func newPool() (*ants.Pool, error) {
	return ants.NewPool(16)
}

func (b *Broadcaster) Handle(ctx context.Context, t *asynq.Task) error {
	var p broadcastPayload
	if err := task.Decode(t, &p); err != nil {
		return err
	}

	recipients, err := b.users.ListActive(ctx, p.OrganizationID)
	if err != nil {
		return err
	}

	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)
	for _, u := range recipients {
		wg.Add(1)
		notice := Notice{
			OrganizationID: p.OrganizationID,
			UserID:         u.ID,
			Type:           p.Request.Type,
			Title:          p.Request.Title,
			Message:        p.Request.Message,
			Link:           p.Request.Link,
		}
		err := b.pool.Submit(func() {
			defer wg.Done()
			if err := b.notifier.Notify(ctx, notice); err != nil {
				failed.Add(1)
				zap.L().Warn("broadcast delivery failed", zap.String("user_id", notice.UserID), zap.Error(err))
			}
		})
		if err != nil {
			wg.Done()
			failed.Add(1)
		}
	}
	wg.Wait()

	zap.L().Info("broadcast delivered",
		zap.String("organization_id", p.OrganizationID),
		zap.Int("recipients", len(recipients)),
		zap.Int64("failed", failed.Load()),
	)
	if n := failed.Load(); n > 0 && int(n) == len(recipients) {
		return fmt.Errorf("broadcast failed for all %d recipients", n)
	}
	return nil
}
