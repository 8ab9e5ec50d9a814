package module

import "context"

// DefaultCatalog is the module catalog a fresh installation starts with.
func DefaultCatalog() []CreateModuleRequest {
	return []CreateModuleRequest{
		{Key: "pacientes", Name: "Pacientes", Category: "clinico", SortOrder: 10},
		{Key: "prescricoes", Name: "Prescrições", Category: "clinico", SortOrder: 20},
		{Key: "carteirinha", Name: "Carteirinha digital", Category: "clinico", SortOrder: 30},
		{Key: "tarefas", Name: "Tarefas", Category: "gestao", SortOrder: 40},
		{Key: "expedicao", Name: "Expedição", Category: "operacao", SortOrder: 50},
		{Key: "financeiro", Name: "Financeiro", Category: "gestao", SortOrder: 60},
		{Key: "afiliados", Name: "Programa de afiliados", Category: "comercial", SortOrder: 70},
		{Key: "compras", Name: "Compras", Category: "operacao", SortOrder: 80},
	}
}

// Seed creates the catalog modules that do not exist yet and returns how
// many were added.
func (s *Service) Seed(ctx context.Context, catalog []CreateModuleRequest) (int, error) {
	added := 0
	for _, req := range catalog {
		exist, err := s.module.FindOne(ctx, &CatalogModule{Key: req.Key})
		if err != nil {
			return added, err
		}
		if exist != nil {
			continue
		}
		if _, err := s.CreateModule(ctx, req); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
