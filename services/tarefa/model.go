package tarefa

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusBacklog    = "BACKLOG"
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusReview     = "REVIEW"
	StatusDone       = "DONE"

	PrioridadeLow    = "LOW"
	PrioridadeMedium = "MEDIUM"
	PrioridadeHigh   = "HIGH"
	PrioridadeUrgent = "URGENT"
)

type Tarefa struct {
	ID                string           `gorm:"column:id;primaryKey" json:"id"`
	Titulo            string           `gorm:"column:titulo" json:"titulo"`
	Descricao         string           `gorm:"column:descricao" json:"descricao,omitempty"`
	Status            string           `gorm:"column:status;index" json:"status"`
	Prioridade        string           `gorm:"column:prioridade" json:"prioridade"`
	CreatedAt         time.Time        `gorm:"column:created_at" json:"dataCriacao"`
	UpdatedAt         time.Time        `gorm:"column:updated_at" json:"dataAtualizacao"`
	DataVencimento    *time.Time       `gorm:"column:data_vencimento" json:"dataVencimento"`
	DataConclusao     *time.Time       `gorm:"column:data_conclusao" json:"dataConclusao"`
	ResponsavelID     string           `gorm:"column:responsavel_id;index" json:"responsavelId,omitempty"`
	OrganizacaoID     string           `gorm:"column:organizacao_id;index" json:"organizacaoId"`
	DepartamentoID    string           `gorm:"column:departamento_id" json:"departamentoId,omitempty"`
	ProjetoID         string           `gorm:"column:projeto_id" json:"projetoId,omitempty"`
	CriadorID         string           `gorm:"column:criador_id" json:"criadorId"`
	Arquivada         bool             `gorm:"column:arquivada" json:"arquivada"`
	LembreteEnviadoEm *time.Time       `gorm:"column:lembrete_enviado_em" json:"-"`
	Etiquetas         []EtiquetaTarefa `gorm:"-" json:"etiquetas,omitempty"`
}

func (Tarefa) TableName() string { return "tarefas" }

type ComentarioTarefa struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	TarefaID  string    `gorm:"column:tarefa_id;index" json:"tarefaId"`
	AutorID   string    `gorm:"column:autor_id" json:"autorId"`
	Conteudo  string    `gorm:"column:conteudo" json:"conteudo"`
	CreatedAt time.Time `gorm:"column:created_at" json:"dataCriacao"`
}

func (ComentarioTarefa) TableName() string { return "comentarios_tarefa" }

type EtiquetaTarefa struct {
	ID            string    `gorm:"column:id;primaryKey" json:"id"`
	OrganizacaoID string    `gorm:"column:organizacao_id;uniqueIndex:idx_etiqueta_org_nome" json:"organizacaoId"`
	Nome          string    `gorm:"column:nome;uniqueIndex:idx_etiqueta_org_nome" json:"nome"`
	Cor           string    `gorm:"column:cor" json:"cor,omitempty"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"dataCriacao"`
}

func (EtiquetaTarefa) TableName() string { return "etiquetas_tarefa" }

type TarefaEtiqueta struct {
	TarefaID   string `gorm:"column:tarefa_id;primaryKey"`
	EtiquetaID string `gorm:"column:etiqueta_id;primaryKey"`
}

func (TarefaEtiqueta) TableName() string { return "tarefas_etiquetas" }

type HistoricoTarefa struct {
	ID            string         `gorm:"column:id;primaryKey" json:"id"`
	TarefaID      string         `gorm:"column:tarefa_id;index" json:"tarefaId"`
	UsuarioID     string         `gorm:"column:usuario_id" json:"usuarioId"`
	Campo         string         `gorm:"column:campo" json:"campo"`
	ValorAnterior datatypes.JSON `gorm:"column:valor_anterior" json:"valorAnterior"`
	ValorNovo     datatypes.JSON `gorm:"column:valor_novo" json:"valorNovo"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"dataCriacao"`
}

func (HistoricoTarefa) TableName() string { return "historico_tarefa" }

type AnexoTarefa struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	TarefaID    string    `gorm:"column:tarefa_id;index" json:"tarefaId"`
	NomeArquivo string    `gorm:"column:nome_arquivo" json:"nomeArquivo"`
	ContentType string    `gorm:"column:content_type" json:"contentType"`
	Tamanho     int64     `gorm:"column:tamanho" json:"tamanho"`
	ObjectKey   string    `gorm:"column:object_key" json:"-"`
	EnviadoPor  string    `gorm:"column:enviado_por" json:"enviadoPor"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"dataCriacao"`
}

func (AnexoTarefa) TableName() string { return "anexos_tarefa" }

// Models lists every table owned by this package, for migrations.
func Models() []any {
	return []any{&Tarefa{}, &ComentarioTarefa{}, &EtiquetaTarefa{}, &TarefaEtiqueta{}, &HistoricoTarefa{}, &AnexoTarefa{}}
}

type CreateRequest struct {
	Titulo         string     `json:"titulo" validate:"required,max=255"`
	Descricao      string     `json:"descricao" validate:"max=10000"`
	Status         string     `json:"status" validate:"omitempty,oneof=BACKLOG TODO IN_PROGRESS REVIEW DONE"`
	Prioridade     string     `json:"prioridade" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	DataVencimento *time.Time `json:"dataVencimento"`
	ResponsavelID  string     `json:"responsavelId"`
	DepartamentoID string     `json:"departamentoId"`
	ProjetoID      string     `json:"projetoId"`
	EtiquetaIDs    []string   `json:"etiquetaIds"`
}

// UpdateRequest carries only the fields the client sent. An empty string
// clears an optional reference.
type UpdateRequest struct {
	Titulo         *string    `json:"titulo" validate:"omitempty,min=1,max=255"`
	Descricao      *string    `json:"descricao" validate:"omitempty,max=10000"`
	Status         *string    `json:"status" validate:"omitempty,oneof=BACKLOG TODO IN_PROGRESS REVIEW DONE"`
	Prioridade     *string    `json:"prioridade" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	DataVencimento *time.Time `json:"dataVencimento"`
	ResponsavelID  *string    `json:"responsavelId"`
	DepartamentoID *string    `json:"departamentoId"`
	ProjetoID      *string    `json:"projetoId"`
}

type ListRequest struct {
	Status         string
	Prioridade     string
	ResponsavelID  string
	ProjetoID      string
	DepartamentoID string
	Arquivada      bool
	Query          string
	SortBy         string
	Order          string
}

type ComentarioRequest struct {
	Conteudo string `json:"conteudo" validate:"required,max=5000"`
}

type EtiquetaRequest struct {
	Nome string `json:"nome" validate:"required,max=64"`
	Cor  string `json:"cor" validate:"omitempty,hexcolor"`
}

type SetEtiquetasRequest struct {
	EtiquetaIDs []string `json:"etiquetaIds"`
}

type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type dueReminderPayload struct {
	TarefaID string `json:"tarefaId"`
}
