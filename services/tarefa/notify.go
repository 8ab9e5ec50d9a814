package tarefa

import (
	"context"

	"endurancy-platform/pkg/emailtemplate"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/mailer"
	"endurancy-platform/services/notification"

	"go.uber.org/zap"
)

func (s *Service) notifyAssignee(ctx context.Context, t *Tarefa) {
	err := s.notifier.Notify(ctx, notification.Notice{
		OrganizationID: t.OrganizacaoID,
		UserID:         t.ResponsavelID,
		Type:           notification.TypeInfo,
		Title:          "Nova tarefa atribuída",
		Message:        t.Titulo,
		Link:           "/tarefas/" + t.ID,
	})
	if err != nil {
		logger.FromContext(ctx).Warn("failed to notify assignee", zap.String("tarefa_id", t.ID), zap.Error(err))
	}
}

func (s *Service) displayName(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return ""
	}
	return u.Name
}

// mailTicket renders a ticket template for t and queues it to recipientID.
// Mail problems are logged, the task change itself already committed.
func (s *Service) mailTicket(ctx context.Context, render func(emailtemplate.Ticket) (*emailtemplate.Rendered, error), recipientID string, t *Tarefa, changes []emailtemplate.Change) {
	log := logger.FromContext(ctx).With(zap.String("tarefa_id", t.ID), zap.String("recipient_id", recipientID))

	recipient, err := s.users.Get(ctx, recipientID)
	if err != nil {
		log.Debug("skipping tarefa email, recipient not found", zap.Error(err))
		return
	}

	msg, err := render(emailtemplate.Ticket{
		ID:           t.ID,
		Title:        t.Titulo,
		Description:  t.Descricao,
		Status:       t.Status,
		Priority:     t.Prioridade,
		ReporterName: s.displayName(ctx, t.CriadorID),
		AssigneeName: s.displayName(ctx, t.ResponsavelID),
		URL:          s.link(t.ID),
		Changes:      changes,
	})
	if err != nil {
		log.Error("failed to render tarefa email", zap.Error(err))
		return
	}

	if err := s.outbox.Deliver(ctx, mailer.Message{
		To:      []string{recipient.Email},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	}); err != nil {
		log.Warn("failed to queue tarefa email", zap.Error(err))
	}
}
