package tarefa

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/logger"

	"go.uber.org/zap"
)

const (
	MaxAnexoSize = 25 << 20
	downloadTTL  = 15 * time.Minute
)

// Upload is a file received from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (s *Service) AddAnexo(ctx context.Context, actor Actor, tarefaID string, up Upload) (*AnexoTarefa, error) {
	if up.Size <= 0 {
		return nil, errutil.BadRequest("file is empty", nil)
	}
	if up.Size > MaxAnexoSize {
		return nil, errutil.BadRequest(fmt.Sprintf("file exceeds %d MB", MaxAnexoSize>>20), nil)
	}
	if _, err := s.find(ctx, s.db, actor, tarefaID); err != nil {
		return nil, err
	}
	if up.ContentType == "" {
		up.ContentType = "application/octet-stream"
	}

	a := &AnexoTarefa{
		ID:          s.ids.NewID(),
		TarefaID:    tarefaID,
		NomeArquivo: path.Base(up.Filename),
		ContentType: up.ContentType,
		Tamanho:     up.Size,
		EnviadoPor:  actor.UserID,
	}
	a.ObjectKey = fmt.Sprintf("tarefas/%s/%s/%s", tarefaID, a.ID, a.NomeArquivo)

	if err := s.storage.Put(ctx, a.ObjectKey, up.Body, up.Size, up.ContentType); err != nil {
		return nil, errutil.ServiceUnavailable("failed to store file", err)
	}
	if err := s.anexo.Create(ctx, a); err != nil {
		if rmErr := s.storage.Remove(ctx, a.ObjectKey); rmErr != nil {
			logger.FromContext(ctx).Warn("failed to remove orphaned anexo", zap.String("key", a.ObjectKey), zap.Error(rmErr))
		}
		return nil, err
	}
	return a, nil
}

func (s *Service) ListAnexos(ctx context.Context, actor Actor, tarefaID string) ([]*AnexoTarefa, error) {
	if _, err := s.find(ctx, s.db, actor, tarefaID); err != nil {
		return nil, err
	}
	return s.anexo.Find(ctx, &AnexoTarefa{TarefaID: tarefaID}, option.WithSortBy(option.QuerySortBy{}))
}

func (s *Service) getAnexo(ctx context.Context, actor Actor, tarefaID, anexoID string) (*AnexoTarefa, error) {
	if _, err := s.find(ctx, s.db, actor, tarefaID); err != nil {
		return nil, err
	}
	a, err := s.anexo.FindOne(ctx, &AnexoTarefa{ID: anexoID, TarefaID: tarefaID})
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errutil.NotFound("Anexo not found", nil)
	}
	return a, nil
}

func (s *Service) DownloadAnexo(ctx context.Context, actor Actor, tarefaID, anexoID string) (*DownloadLink, error) {
	a, err := s.getAnexo(ctx, actor, tarefaID, anexoID)
	if err != nil {
		return nil, err
	}
	url, err := s.storage.PresignGet(ctx, a.ObjectKey, a.NomeArquivo, downloadTTL)
	if err != nil {
		return nil, errutil.ServiceUnavailable("failed to sign download link", err)
	}
	return &DownloadLink{URL: url, ExpiresAt: time.Now().UTC().Add(downloadTTL)}, nil
}

// DeleteAnexo is allowed to the uploader only.
func (s *Service) DeleteAnexo(ctx context.Context, actor Actor, tarefaID, anexoID string) error {
	a, err := s.getAnexo(ctx, actor, tarefaID, anexoID)
	if err != nil {
		return err
	}
	if a.EnviadoPor != actor.UserID {
		return errutil.Forbidden("Only the uploader can delete this file", nil)
	}
	if err := s.anexo.Delete(ctx, a.ID); err != nil {
		return err
	}
	if err := s.storage.Remove(ctx, a.ObjectKey); err != nil {
		logger.FromContext(ctx).Warn("failed to remove anexo object", zap.String("key", a.ObjectKey), zap.Error(err))
	}
	return nil
}
