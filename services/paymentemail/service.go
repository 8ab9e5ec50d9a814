package paymentemail

import (
	"context"
	"errors"
	"strings"
	"time"

	"endurancy-platform/pkg/config"
	"endurancy-platform/pkg/emailtemplate"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/mailer"
	"endurancy-platform/pkg/task"
	"endurancy-platform/pkg/taskname"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maxRetry = 5

// deliveredRetention keeps a processed task, and with it its id, in Redis so a
// request repeated after delivery is still rejected.
const deliveredRetention = 7 * 24 * time.Hour

type Service struct {
	validate       *validator.Validate
	enqueuer       task.Enqueuer
	publishableKey string
}

type ServiceParams struct {
	fx.In
	Config   *config.Config
	Enqueuer task.Enqueuer
}

func NewService(p ServiceParams) *Service {
	return &Service{
		validate:       validator.New(),
		enqueuer:       p.Enqueuer,
		publishableKey: p.Config.Stripe.PublishableKey,
	}
}

func (s *Service) Config() ClientConfig {
	return ClientConfig{PublishableKey: s.publishableKey}
}

func (s *Service) Confirmation(ctx context.Context, req Request) (*Accepted, error) {
	return s.enqueue(ctx, taskname.PaymentConfirmation, "confirmation", req)
}

func (s *Service) Failure(ctx context.Context, req Request) (*Accepted, error) {
	return s.enqueue(ctx, taskname.PaymentFailure, "failure", req)
}

// enqueue queues one e-mail per payment intent and kind. The task id makes a
// repeated request for the same payment a conflict instead of a second mail,
// for as long as the task is retained.
func (s *Service) enqueue(ctx context.Context, typename, kind string, req Request) (*Accepted, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	if req.Currency == "" {
		req.Currency = "BRL"
	}

	t, err := task.NewJSONTask(typename, req)
	if err != nil {
		return nil, err
	}
	id := "payment-" + kind + "-" + req.PaymentIntentID
	info, err := s.enqueuer.Enqueue(t,
		asynq.TaskID(id),
		asynq.Queue(task.QueueCritical),
		asynq.MaxRetry(maxRetry),
		asynq.Retention(deliveredRetention),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil, errutil.Conflict("An e-mail for this payment is already queued", err)
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to enqueue payment e-mail", zap.String("payment_intent_id", req.PaymentIntentID), zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to queue e-mail", err)
	}

	out := &Accepted{TaskID: id, Queue: task.QueueCritical}
	if info != nil {
		out.TaskID, out.Queue = info.ID, info.Queue
	}
	return out, nil
}

// Deliverer renders queued payment e-mails and sends them.
type Deliverer struct {
	sender mailer.Sender
}

func NewDeliverer(sender mailer.Sender) *Deliverer {
	return &Deliverer{sender: sender}
}

func payment(req Request) emailtemplate.Payment {
	items := make([]emailtemplate.PaymentItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, emailtemplate.PaymentItem{Name: it.Name, Quantity: it.Quantity, UnitAmount: it.UnitAmount})
	}
	return emailtemplate.Payment{
		CustomerName:    req.Name,
		PaymentIntentID: req.PaymentIntentID,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Items:           items,
		FailureReason:   req.FailureReason,
		RetryURL:        req.RetryURL,
	}
}

func (d *Deliverer) handle(render func(emailtemplate.Payment) (*emailtemplate.Rendered, error)) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var req Request
		if err := task.Decode(t, &req); err != nil {
			return err
		}
		msg, err := render(payment(req))
		if err != nil {
			return errors.Join(err, asynq.SkipRetry)
		}
		if err := d.sender.Send(ctx, mailer.Message{To: []string{req.Email}, Subject: msg.Subject, HTML: msg.HTML}); err != nil {
			zap.L().Warn("payment e-mail failed", zap.String("task_type", t.Type()), zap.String("payment_intent_id", req.PaymentIntentID), zap.Error(err))
			return err
		}
		return nil
	}
}

func (d *Deliverer) HandleConfirmation(ctx context.Context, t *asynq.Task) error {
	return d.handle(emailtemplate.PaymentConfirmation)(ctx, t)
}

func (d *Deliverer) HandleFailure(ctx context.Context, t *asynq.Task) error {
	return d.handle(emailtemplate.PaymentFailure)(ctx, t)
}
