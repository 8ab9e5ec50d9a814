package tarefa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"endurancy-platform/pkg/config"
	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/db/pagination"
	"endurancy-platform/pkg/emailtemplate"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/gen"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/mailer"
	"endurancy-platform/pkg/minio"
	"endurancy-platform/pkg/repository"
	"endurancy-platform/pkg/task"
	"endurancy-platform/services/notification"
	"endurancy-platform/services/user"

	"github.com/go-playground/validator/v10"
	"github.com/serenize/snaker"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Actor is the authenticated user acting on tasks of their organization.
type Actor struct {
	UserID         string
	OrganizationID string
}

var sortable = map[string]bool{
	"created_at":      true,
	"updated_at":      true,
	"data_vencimento": true,
	"data_conclusao":  true,
	"prioridade":      true,
	"status":          true,
	"titulo":          true,
}

type Service struct {
	db        *gorm.DB
	ids       gen.IDGenerator
	validate  *validator.Validate
	publicURL string

	users    *user.Service
	notifier notification.Notifier
	outbox   mailer.Outbox
	storage  minio.ObjectStorage
	enqueuer task.Enqueuer

	tarefa     repository.Repository[Tarefa]
	comentario repository.Repository[ComentarioTarefa]
	etiqueta   repository.Repository[EtiquetaTarefa]
	vinculo    repository.Repository[TarefaEtiqueta]
	historico  repository.Repository[HistoricoTarefa]
	anexo      repository.Repository[AnexoTarefa]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	IDs      gen.IDGenerator
	Config   *config.Config
	Users    *user.Service
	Notifier notification.Notifier
	Outbox   mailer.Outbox
	Storage  minio.ObjectStorage
	Enqueuer task.Enqueuer
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		ids:       p.IDs,
		validate:  validator.New(),
		publicURL: p.Config.PublicURL,

		users:    p.Users,
		notifier: p.Notifier,
		outbox:   p.Outbox,
		storage:  p.Storage,
		enqueuer: p.Enqueuer,

		tarefa:     repository.ProvideStore[Tarefa](p.DB),
		comentario: repository.ProvideStore[ComentarioTarefa](p.DB),
		etiqueta:   repository.ProvideStore[EtiquetaTarefa](p.DB),
		vinculo:    repository.ProvideStore[TarefaEtiqueta](p.DB),
		historico:  repository.ProvideStore[HistoricoTarefa](p.DB),
		anexo:      repository.ProvideStore[AnexoTarefa](p.DB),
	}
}

func (s *Service) newHistorico(tarefaID, usuarioID, campo string, before, after any) *HistoricoTarefa {
	prev, _ := json.Marshal(before)
	next, _ := json.Marshal(after)
	return &HistoricoTarefa{
		ID:            s.ids.NewID(),
		TarefaID:      tarefaID,
		UsuarioID:     usuarioID,
		Campo:         campo,
		ValorAnterior: datatypes.JSON(prev),
		ValorNovo:     datatypes.JSON(next),
	}
}

func (s *Service) link(id string) string {
	if s.publicURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/tarefas/%s", s.publicURL, id)
}

func (s *Service) checkResponsavel(ctx context.Context, organizationID, userID string) error {
	if userID == "" {
		return nil
	}
	if _, err := s.users.GetInOrganization(ctx, organizationID, userID); err != nil {
		if errutil.Is(err, errutil.StatusNotFound) {
			return errutil.UnprocessableEntity("Responsável does not belong to the organization", nil)
		}
		return err
	}
	return nil
}

func (s *Service) Create(ctx context.Context, actor Actor, req CreateRequest) (*Tarefa, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	if err := s.checkResponsavel(ctx, actor.OrganizationID, req.ResponsavelID); err != nil {
		return nil, err
	}

	t := &Tarefa{
		ID:             s.ids.NewID(),
		Titulo:         req.Titulo,
		Descricao:      req.Descricao,
		Status:         req.Status,
		Prioridade:     req.Prioridade,
		DataVencimento: req.DataVencimento,
		ResponsavelID:  req.ResponsavelID,
		OrganizacaoID:  actor.OrganizationID,
		DepartamentoID: req.DepartamentoID,
		ProjetoID:      req.ProjetoID,
		CriadorID:      actor.UserID,
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Prioridade == "" {
		t.Prioridade = PrioridadeMedium
	}
	if t.Status == StatusDone {
		now := time.Now().UTC()
		t.DataConclusao = &now
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.tarefa.WithTrx(tx).Create(ctx, t); err != nil {
			return err
		}
		if len(req.EtiquetaIDs) > 0 {
			if _, err := s.replaceEtiquetas(ctx, tx, t, req.EtiquetaIDs); err != nil {
				return err
			}
		}
		return s.historico.WithTrx(tx).Create(ctx, s.newHistorico(t.ID, actor.UserID, "created", nil, t.Titulo))
	})
	if err != nil {
		var be errutil.BaseError
		if !errors.As(err, &be) {
			logger.FromContext(ctx).Error("failed to create tarefa", zap.Error(err))
		}
		return nil, err
	}

	if t.ResponsavelID != "" && t.ResponsavelID != actor.UserID {
		s.notifyAssignee(ctx, t)
		s.mailTicket(ctx, emailtemplate.TicketCreated, t.ResponsavelID, t, nil)
	}
	return s.Get(ctx, actor, t.ID)
}

func (s *Service) Get(ctx context.Context, actor Actor, id string) (*Tarefa, error) {
	t, err := s.find(ctx, s.db, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.loadEtiquetas(ctx, []*Tarefa{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) find(ctx context.Context, db *gorm.DB, actor Actor, id string, opts ...option.QueryOption) (*Tarefa, error) {
	opts = append([]option.QueryOption{option.Equal("organizacao_id", actor.OrganizationID)}, opts...)
	t, err := s.tarefa.WithTrx(db).FindOne(ctx, &Tarefa{ID: id}, opts...)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errutil.NotFound("Tarefa not found", nil)
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, actor Actor, req ListRequest, p pagination.Pagination) ([]*Tarefa, *pagination.PageInfo, error) {
	opts := []option.QueryOption{
		option.Equal("organizacao_id", actor.OrganizationID),
		option.Equal("arquivada", req.Arquivada),
		option.Contains("titulo", req.Query),
	}

	column := "created_at"
	if req.SortBy != "" && req.SortBy != "dataCriacao" {
		column = snaker.CamelToSnake(req.SortBy)
		if !sortable[column] {
			return nil, nil, errutil.BadRequest(fmt.Sprintf("cannot sort by %q", req.SortBy), nil)
		}
	}

	keyset := column == "created_at" && (req.Order == "" || req.Order == "desc")
	opts = append(opts, option.WithSortBy(option.QuerySortBy{SortBy: column, OrderBy: req.Order, Allow: sortable}))
	if keyset {
		opts = append(opts, option.ApplyPagination(p))
	} else {
		opts = append(opts, option.ApplyOffsetPagination(p))
	}

	rows, err := s.tarefa.Find(ctx, &Tarefa{
		Status:         req.Status,
		Prioridade:     req.Prioridade,
		ResponsavelID:  req.ResponsavelID,
		ProjetoID:      req.ProjetoID,
		DepartamentoID: req.DepartamentoID,
	}, opts...)
	if err != nil {
		return nil, nil, err
	}

	limit := p.Normalize().Limit
	next := p.Offset() + limit
	data, info := pagination.Page(rows, limit, func(t *Tarefa) string {
		if keyset {
			return pagination.CursorOf(t.ID, t.CreatedAt)
		}
		return pagination.OffsetCursor(next)
	})

	if err := s.loadEtiquetas(ctx, data); err != nil {
		return nil, nil, err
	}
	return data, info, nil
}

func (s *Service) Update(ctx context.Context, actor Actor, id string, req UpdateRequest) (*Tarefa, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	if req.ResponsavelID != nil {
		if err := s.checkResponsavel(ctx, actor.OrganizationID, *req.ResponsavelID); err != nil {
			return nil, err
		}
	}

	var before, after Tarefa
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.find(ctx, tx, actor, id, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		before, after = *t, *t

		updates := map[string]any{}
		var entries []*HistoricoTarefa
		track := func(campo, column string, prev, next any) {
			updates[column] = next
			entries = append(entries, s.newHistorico(id, actor.UserID, campo, prev, next))
		}

		if req.Titulo != nil && *req.Titulo != t.Titulo {
			track("titulo", "titulo", t.Titulo, *req.Titulo)
			after.Titulo = *req.Titulo
		}
		if req.Descricao != nil && *req.Descricao != t.Descricao {
			track("descricao", "descricao", t.Descricao, *req.Descricao)
			after.Descricao = *req.Descricao
		}
		if req.Prioridade != nil && *req.Prioridade != t.Prioridade {
			track("prioridade", "prioridade", t.Prioridade, *req.Prioridade)
			after.Prioridade = *req.Prioridade
		}
		if req.DataVencimento != nil && (t.DataVencimento == nil || !t.DataVencimento.Equal(*req.DataVencimento)) {
			track("dataVencimento", "data_vencimento", t.DataVencimento, *req.DataVencimento)
			updates["lembrete_enviado_em"] = nil
			after.DataVencimento = req.DataVencimento
		}
		if req.ResponsavelID != nil && *req.ResponsavelID != t.ResponsavelID {
			track("responsavelId", "responsavel_id", t.ResponsavelID, *req.ResponsavelID)
			after.ResponsavelID = *req.ResponsavelID
		}
		if req.DepartamentoID != nil && *req.DepartamentoID != t.DepartamentoID {
			track("departamentoId", "departamento_id", t.DepartamentoID, *req.DepartamentoID)
			after.DepartamentoID = *req.DepartamentoID
		}
		if req.ProjetoID != nil && *req.ProjetoID != t.ProjetoID {
			track("projetoId", "projeto_id", t.ProjetoID, *req.ProjetoID)
			after.ProjetoID = *req.ProjetoID
		}
		if req.Status != nil && *req.Status != t.Status {
			track("status", "status", t.Status, *req.Status)
			after.Status = *req.Status
			switch {
			case after.Status == StatusDone:
				now := time.Now().UTC()
				updates["data_conclusao"] = now
				after.DataConclusao = &now
			case t.Status == StatusDone:
				updates["data_conclusao"] = nil
				after.DataConclusao = nil
			}
		}

		if len(updates) == 0 {
			return nil
		}
		if err := s.tarefa.WithTrx(tx).Update(ctx, id, updates); err != nil {
			return err
		}
		return s.historico.WithTrx(tx).BatchCreate(ctx, entries)
	})
	if err != nil {
		return nil, err
	}

	s.afterUpdate(ctx, actor, &before, &after)
	return s.Get(ctx, actor, id)
}

func (s *Service) afterUpdate(ctx context.Context, actor Actor, before, after *Tarefa) {
	if after.ResponsavelID != before.ResponsavelID && after.ResponsavelID != "" && after.ResponsavelID != actor.UserID {
		s.notifyAssignee(ctx, after)
	}

	if after.Status == before.Status || after.CriadorID == "" {
		return
	}
	if after.Status == StatusDone {
		s.mailTicket(ctx, emailtemplate.TicketResolved, after.CriadorID, after, nil)
		return
	}
	if after.CriadorID != actor.UserID {
		s.mailTicket(ctx, emailtemplate.TicketUpdated, after.CriadorID, after, []emailtemplate.Change{{Field: "status", From: before.Status, To: after.Status}})
	}
}

// SetArquivada flips the archive flag. Archived tasks are hidden from the
// default listing but never deleted.
func (s *Service) SetArquivada(ctx context.Context, actor Actor, id string, arquivada bool) (*Tarefa, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.find(ctx, tx, actor, id, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if t.Arquivada == arquivada {
			return nil
		}
		if err := s.tarefa.WithTrx(tx).Update(ctx, id, map[string]any{"arquivada": arquivada}); err != nil {
			return err
		}
		return s.historico.WithTrx(tx).Create(ctx, s.newHistorico(id, actor.UserID, "arquivada", t.Arquivada, arquivada))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

func (s *Service) Historico(ctx context.Context, actor Actor, id string) ([]*HistoricoTarefa, error) {
	if _, err := s.find(ctx, s.db, actor, id); err != nil {
		return nil, err
	}
	return s.historico.Find(ctx, &HistoricoTarefa{TarefaID: id}, option.WithSortBy(option.QuerySortBy{OrderBy: "asc"}))
}
