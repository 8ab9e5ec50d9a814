package paymentemail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"endurancy-platform/pkg/access"
	"endurancy-platform/pkg/config"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/mailer"
	"endurancy-platform/pkg/mailer/mailermock"
	"endurancy-platform/pkg/session"
	"endurancy-platform/pkg/task"
	"endurancy-platform/pkg/task/taskmock"
	"endurancy-platform/pkg/taskname"
	"endurancy-platform/services/testutil"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newService(enqueuer task.Enqueuer) *Service {
	cfg := &config.Config{}
	cfg.Stripe.PublishableKey = "pk_test_123"
	return NewService(ServiceParams{Config: cfg, Enqueuer: enqueuer})
}

func validRequest() Request {
	return Request{
		Email:           "Paciente@Mail.com",
		Name:            "Paula",
		PaymentIntentID: "pi_123",
		Amount:          15990,
		Items:           []Item{{Name: "Óleo 10%", Quantity: 1, UnitAmount: 15990}},
	}
}

func TestConfirmationIsQueued(t *testing.T) {
	ctrl := gomock.NewController(t)
	enq := taskmock.NewMockEnqueuer(ctrl)

	var queued *asynq.Task
	enq.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(func(t *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
		queued = t
		return &asynq.TaskInfo{ID: "payment-confirmation-pi_123", Queue: task.QueueCritical}, nil
	})

	res, err := newService(enq).Confirmation(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, "payment-confirmation-pi_123", res.TaskID)
	require.Equal(t, task.QueueCritical, res.Queue)

	require.Equal(t, taskname.PaymentConfirmation, queued.Type())
	var payload Request
	require.NoError(t, json.Unmarshal(queued.Payload(), &payload))
	require.Equal(t, "paciente@mail.com", payload.Email)
	require.Equal(t, "BRL", payload.Currency)
}

func TestValidationAndConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	enq := taskmock.NewMockEnqueuer(ctrl)
	s := newService(enq)
	ctx := context.Background()

	req := validRequest()
	req.Amount = 0
	_, err := s.Failure(ctx, req)
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))

	req = validRequest()
	req.Items = []Item{{Name: "", Quantity: 0}}
	_, err = s.Failure(ctx, req)
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))

	enq.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil, asynq.ErrTaskIDConflict)
	_, err = s.Failure(ctx, validRequest())
	require.True(t, errutil.Is(err, errutil.StatusConflict))

	enq.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil, errors.New("redis down"))
	_, err = s.Failure(ctx, validRequest())
	require.True(t, errutil.Is(err, errutil.StatusServiceUnavailable))
}

func TestDuplicateAfterDelivery(t *testing.T) {
	enq := &testutil.Enqueuer{}
	s := newService(enq)
	ctx := context.Background()

	first, err := s.Confirmation(ctx, validRequest())
	require.NoError(t, err)
	require.Equal(t, "payment-confirmation-pi_123", first.TaskID)
	require.Equal(t, task.QueueCritical, first.Queue)

	enq.Complete(first.TaskID)
	_, err = s.Confirmation(ctx, validRequest())
	require.True(t, errutil.Is(err, errutil.StatusConflict))
	require.Len(t, enq.OfType(taskname.PaymentConfirmation), 1)

	_, err = s.Failure(ctx, validRequest())
	require.NoError(t, err)
}

func TestDelivererRendersAndSends(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mailermock.NewMockSender(ctrl)
	d := NewDeliverer(sender)

	req := validRequest()
	req.Email = "paciente@mail.com"
	req.Currency = "BRL"
	req.FailureReason = "cartão recusado"
	tk, err := task.NewJSONTask(taskname.PaymentFailure, req)
	require.NoError(t, err)

	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg mailer.Message) error {
		require.Equal(t, []string{"paciente@mail.com"}, msg.To)
		require.Contains(t, msg.HTML, "pi_123")
		require.Contains(t, msg.HTML, "cartão recusado")
		return nil
	})
	require.NoError(t, d.HandleFailure(context.Background(), tk))

	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("smtp down"))
	require.Error(t, d.HandleConfirmation(context.Background(), tk))

	err = d.HandleConfirmation(context.Background(), asynq.NewTask(taskname.PaymentConfirmation, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestRoutes(t *testing.T) {
	ctrl := gomock.NewController(t)
	enq := taskmock.NewMockEnqueuer(ctrl)
	enq.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(&asynq.TaskInfo{ID: "payment-confirmation-pi_123", Queue: task.QueueCritical}, nil)

	h := testutil.NewHTTP(t)
	registerRoutes(h.Router, NewHandler(newService(enq)))
	finance := h.Login(t, session.Data{UserID: "f1", OrganizationID: "org-1", Role: access.RoleFinance})
	patient := h.Login(t, session.Data{UserID: "p1", OrganizationID: "org-1", Role: access.RolePatient})

	w := h.Do(t, http.MethodPost, "/api/payment-email/confirmation", validRequest(), patient)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = h.Do(t, http.MethodPost, "/api/payment-email/confirmation", validRequest(), finance)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Contains(t, w.Body.String(), `"taskId":"payment-confirmation-pi_123"`)

	w = h.Do(t, http.MethodGet, "/api/payment-email/config", nil, finance)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"publishableKey":"pk_test_123"}`, w.Body.String())
}
