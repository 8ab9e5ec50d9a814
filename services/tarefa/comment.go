package tarefa

import (
	"context"

	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/errutil"
)

func (s *Service) AddComentario(ctx context.Context, actor Actor, tarefaID string, req ComentarioRequest) (*ComentarioTarefa, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	if _, err := s.find(ctx, s.db, actor, tarefaID); err != nil {
		return nil, err
	}

	c := &ComentarioTarefa{
		ID:       s.ids.NewID(),
		TarefaID: tarefaID,
		AutorID:  actor.UserID,
		Conteudo: req.Conteudo,
	}
	if err := s.comentario.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ListComentarios(ctx context.Context, actor Actor, tarefaID string) ([]*ComentarioTarefa, error) {
	if _, err := s.find(ctx, s.db, actor, tarefaID); err != nil {
		return nil, err
	}
	return s.comentario.Find(ctx, &ComentarioTarefa{TarefaID: tarefaID}, option.WithSortBy(option.QuerySortBy{OrderBy: "asc"}))
}

// DeleteComentario removes a comment. Only its author may do so.
func (s *Service) DeleteComentario(ctx context.Context, actor Actor, tarefaID, comentarioID string) error {
	if _, err := s.find(ctx, s.db, actor, tarefaID); err != nil {
		return err
	}
	c, err := s.comentario.FindOne(ctx, &ComentarioTarefa{ID: comentarioID, TarefaID: tarefaID})
	if err != nil {
		return err
	}
	if c == nil {
		return errutil.NotFound("Comentário not found", nil)
	}
	if c.AutorID != actor.UserID {
		return errutil.Forbidden("Only the author can delete this comment", nil)
	}
	return s.comentario.Delete(ctx, comentarioID)
}
