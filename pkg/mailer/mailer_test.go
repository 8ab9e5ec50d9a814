package mailer_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"endurancy-platform/pkg/mailer"
	"endurancy-platform/pkg/mailer/mailermock"
	"endurancy-platform/pkg/taskname"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(t *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, t)
	return &asynq.TaskInfo{ID: "task-1", Type: t.Type()}, nil
}

func TestOutboxAndDeliveryHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mailermock.NewMockSender(ctrl)

	enq := &fakeEnqueuer{}
	outbox := mailer.NewOutbox(enq)

	msg := mailer.Message{To: []string{"ana@clinica.com.br"}, Subject: "Olá", HTML: "<p>oi</p>"}
	require.NoError(t, outbox.Deliver(context.Background(), msg))
	require.Len(t, enq.tasks, 1)
	require.Equal(t, taskname.EmailSend, enq.tasks[0].Type())

	sender.EXPECT().Send(gomock.Any(), msg).Return(nil)
	require.NoError(t, mailer.NewDeliveryHandler(sender)(context.Background(), enq.tasks[0]))

	sender.EXPECT().Send(gomock.Any(), msg).Return(errors.New("smtp down"))
	require.Error(t, mailer.NewDeliveryHandler(sender)(context.Background(), enq.tasks[0]))

	require.Error(t, outbox.Deliver(context.Background(), mailer.Message{Subject: "nobody"}))
}

func TestResendSender(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := &mailer.ResendSender{APIKey: "re_test", From: "no-reply@endurancy.com", Endpoint: srv.URL, Client: srv.Client()}
	require.NoError(t, s.Send(context.Background(), mailer.Message{To: []string{"a@b.com"}, Subject: "Hi", HTML: "<b>x</b>"}))
	require.Equal(t, "no-reply@endurancy.com", got["from"])
	require.Equal(t, "Hi", got["subject"])
}

func TestBuildMIME(t *testing.T) {
	raw := string(mailer.BuildMIME("no-reply@endurancy.com", mailer.Message{To: []string{"a@b.com", "c@d.com"}, Subject: "Pagamento confirmado", HTML: "<p>ok</p>"}))
	require.True(t, strings.HasPrefix(raw, "From: no-reply@endurancy.com\r\n"))
	require.Contains(t, raw, "To: a@b.com, c@d.com\r\n")
	require.Contains(t, raw, "Content-Type: text/html")
	require.True(t, strings.HasSuffix(raw, "\r\n\r\n<p>ok</p>"))
}
