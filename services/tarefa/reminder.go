package tarefa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/emailtemplate"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/mailer"
	"endurancy-platform/pkg/task"
	"endurancy-platform/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const ReminderWindow = 24 * time.Hour

// reminderTaskID is shared by every worker replica, so when the hourly sweep
// runs on several of them at once only the first enqueue of a due date wins.
func reminderTaskID(tarefaID string, due time.Time) string {
	return fmt.Sprintf("tarefa-reminder-%s-%d", tarefaID, due.Unix())
}

// SweepDueReminders queues one reminder per open task due within
// ReminderWindow of now. A task is reminded once per due date, also across
// worker replicas sweeping concurrently.
func (s *Service) SweepDueReminders(ctx context.Context, now time.Time) (int, error) {
	log := logger.FromContext(ctx)

	due, err := s.tarefa.Find(ctx, nil,
		option.Equal("arquivada", false),
		option.ApplyOperator(option.Condition{Field: "status", Operator: option.NEQ, Value: StatusDone}),
		option.ApplyOperator(option.Condition{Field: "responsavel_id", Operator: option.NEQ, Value: ""}),
		option.ApplyOperator(option.Condition{Field: "data_vencimento", Operator: option.LTE, Value: now.Add(ReminderWindow)}),
		func(db *gorm.DB) *gorm.DB { return db.Where("lembrete_enviado_em IS NULL") },
	)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, t := range due {
		job, err := task.NewJSONTask(taskname.TarefaDueReminder, dueReminderPayload{TarefaID: t.ID})
		if err != nil {
			return sent, err
		}
		_, err = s.enqueuer.Enqueue(job,
			asynq.TaskID(reminderTaskID(t.ID, *t.DataVencimento)),
			asynq.Retention(ReminderWindow),
			asynq.Queue(task.QueueLow),
			asynq.MaxRetry(3),
		)
		queued := err == nil
		switch {
		case errors.Is(err, asynq.ErrTaskIDConflict):
			log.Debug("due reminder already queued", zap.String("tarefa_id", t.ID))
		case err != nil:
			log.Warn("failed to enqueue due reminder", zap.String("tarefa_id", t.ID), zap.Error(err))
			continue
		}
		if err := s.tarefa.Update(ctx, t.ID, map[string]any{"lembrete_enviado_em": now}); err != nil {
			return sent, err
		}
		if queued {
			sent++
		}
	}

	if sent > 0 {
		log.Info("queued tarefa due reminders", zap.Int("count", sent))
	}
	return sent, nil
}

// HandleDueReminder emails the assignee of a task that is about to expire.
func (s *Service) HandleDueReminder(ctx context.Context, t *asynq.Task) error {
	var p dueReminderPayload
	if err := task.Decode(t, &p); err != nil {
		return err
	}

	tarefa, err := s.tarefa.FindByID(ctx, p.TarefaID)
	if err != nil {
		return err
	}
	if tarefa == nil || tarefa.Status == StatusDone || tarefa.Arquivada || tarefa.DataVencimento == nil {
		return nil
	}

	assignee, err := s.users.Get(ctx, tarefa.ResponsavelID)
	if err != nil {
		return fmt.Errorf("load assignee: %v: %w", err, asynq.SkipRetry)
	}

	msg, err := emailtemplate.TaskDueReminder(emailtemplate.DueReminder{
		Title:        tarefa.Titulo,
		AssigneeName: assignee.Name,
		DueAt:        *tarefa.DataVencimento,
		URL:          s.link(tarefa.ID),
	})
	if err != nil {
		return err
	}
	return s.outbox.Deliver(ctx, mailer.Message{To: []string{assignee.Email}, Subject: msg.Subject, HTML: msg.HTML})
}
