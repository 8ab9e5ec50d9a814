package mailer

import (
	"context"
	"fmt"

	"endurancy-platform/pkg/task"
	"endurancy-platform/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Outbox hands messages to the worker for asynchronous delivery.
type Outbox interface {
	Deliver(ctx context.Context, msg Message) error
}

var OutboxModule = fx.Module("mailer.outbox",
	fx.Provide(NewOutbox),
)

// Worker registers the delivery handler on the asynq mux.
var Worker = fx.Module("mailer.worker",
	fx.Invoke(func(mux *asynq.ServeMux, sender Sender) {
		mux.HandleFunc(taskname.EmailSend, NewDeliveryHandler(sender))
	}),
)

type outbox struct {
	enqueuer task.Enqueuer
}

func NewOutbox(enqueuer task.Enqueuer) Outbox {
	return &outbox{enqueuer: enqueuer}
}

func (o *outbox) Deliver(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}

	t, err := task.NewJSONTask(taskname.EmailSend, msg)
	if err != nil {
		return err
	}
	_, err = o.enqueuer.Enqueue(t, asynq.Queue(task.QueueDefault), asynq.MaxRetry(8))
	return err
}

func NewDeliveryHandler(sender Sender) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var msg Message
		if err := task.Decode(t, &msg); err != nil {
			return err
		}

		if err := sender.Send(ctx, msg); err != nil {
			zap.L().Warn("mail delivery failed", zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.Error(err))
			return err
		}
		return nil
	}
}
