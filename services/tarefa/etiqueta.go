package tarefa

import (
	"context"
	"sort"
	"strings"

	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/errutil"

	"k8s.io/apimachinery/pkg/util/sets"
	"gorm.io/gorm"
)

func (s *Service) CreateEtiqueta(ctx context.Context, actor Actor, req EtiquetaRequest) (*EtiquetaTarefa, error) {
	req.Nome = strings.TrimSpace(req.Nome)
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}

	existing, err := s.etiqueta.FindOne(ctx, &EtiquetaTarefa{OrganizacaoID: actor.OrganizationID, Nome: req.Nome})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errutil.Conflict("Etiqueta already exists", nil)
	}

	e := &EtiquetaTarefa{
		ID:            s.ids.NewID(),
		OrganizacaoID: actor.OrganizationID,
		Nome:          req.Nome,
		Cor:           req.Cor,
	}
	if err := s.etiqueta.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) ListEtiquetas(ctx context.Context, actor Actor) ([]*EtiquetaTarefa, error) {
	return s.etiqueta.Find(ctx, nil,
		option.Equal("organizacao_id", actor.OrganizationID),
		option.WithSortBy(option.QuerySortBy{SortBy: "nome", OrderBy: "asc", Allow: map[string]bool{"nome": true}}),
	)
}

// DeleteEtiqueta removes the label and detaches it from every task.
func (s *Service) DeleteEtiqueta(ctx context.Context, actor Actor, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := s.etiqueta.WithTrx(tx).FindOne(ctx, &EtiquetaTarefa{ID: id}, option.Equal("organizacao_id", actor.OrganizationID))
		if err != nil {
			return err
		}
		if e == nil {
			return errutil.NotFound("Etiqueta not found", nil)
		}
		if err := tx.Where("etiqueta_id = ?", id).Delete(&TarefaEtiqueta{}).Error; err != nil {
			return err
		}
		return s.etiqueta.WithTrx(tx).Delete(ctx, id)
	})
}

// SetEtiquetas replaces the label set of a task.
func (s *Service) SetEtiquetas(ctx context.Context, actor Actor, tarefaID string, req SetEtiquetasRequest) (*Tarefa, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.find(ctx, tx, actor, tarefaID, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		before, err := s.replaceEtiquetas(ctx, tx, t, req.EtiquetaIDs)
		if err != nil {
			return err
		}
		after := sets.List(sets.New(req.EtiquetaIDs...))
		if strings.Join(before, ",") == strings.Join(after, ",") {
			return nil
		}
		return s.historico.WithTrx(tx).Create(ctx, s.newHistorico(tarefaID, actor.UserID, "etiquetas", before, after))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, tarefaID)
}

// replaceEtiquetas swaps the links of t for ids and returns the sorted ids
// it replaced. Every id must belong to the task's organization.
func (s *Service) replaceEtiquetas(ctx context.Context, tx *gorm.DB, t *Tarefa, ids []string) ([]string, error) {
	ids = sets.List(sets.New(ids...))
	if len(ids) > 0 {
		n, err := s.etiqueta.WithTrx(tx).Count(ctx, nil,
			option.Equal("organizacao_id", t.OrganizacaoID),
			option.ApplyOperator(option.Condition{Field: "id", Operator: option.IN, Value: ids}),
		)
		if err != nil {
			return nil, err
		}
		if int(n) != len(ids) {
			return nil, errutil.UnprocessableEntity("Unknown etiqueta for this organization", nil)
		}
	}

	links := s.vinculo.WithTrx(tx)
	current, err := links.Find(ctx, &TarefaEtiqueta{TarefaID: t.ID})
	if err != nil {
		return nil, err
	}
	before := make([]string, 0, len(current))
	for _, l := range current {
		before = append(before, l.EtiquetaID)
	}
	sort.Strings(before)

	if err := tx.WithContext(ctx).Where("tarefa_id = ?", t.ID).Delete(&TarefaEtiqueta{}).Error; err != nil {
		return nil, err
	}
	rows := make([]*TarefaEtiqueta, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, &TarefaEtiqueta{TarefaID: t.ID, EtiquetaID: id})
	}
	return before, links.BatchCreate(ctx, rows)
}

func (s *Service) loadEtiquetas(ctx context.Context, tarefas []*Tarefa) error {
	if len(tarefas) == 0 {
		return nil
	}
	byTarefa := make(map[string]*Tarefa, len(tarefas))
	ids := make([]string, 0, len(tarefas))
	for _, t := range tarefas {
		t.Etiquetas = []EtiquetaTarefa{}
		byTarefa[t.ID] = t
		ids = append(ids, t.ID)
	}

	links, err := s.vinculo.Find(ctx, nil, option.ApplyOperator(option.Condition{Field: "tarefa_id", Operator: option.IN, Value: ids}))
	if err != nil {
		return err
	}
	if len(links) == 0 {
		return nil
	}

	etiquetaIDs := sets.New[string]()
	for _, l := range links {
		etiquetaIDs.Insert(l.EtiquetaID)
	}
	etiquetas, err := s.etiqueta.Find(ctx, nil, option.ApplyOperator(option.Condition{Field: "id", Operator: option.IN, Value: sets.List(etiquetaIDs)}))
	if err != nil {
		return err
	}
	byID := make(map[string]*EtiquetaTarefa, len(etiquetas))
	for _, e := range etiquetas {
		byID[e.ID] = e
	}
	for _, l := range links {
		if e, ok := byID[l.EtiquetaID]; ok {
			t := byTarefa[l.TarefaID]
			t.Etiquetas = append(t.Etiquetas, *e)
		}
	}
	return nil
}

