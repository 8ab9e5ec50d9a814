package tarefa

import (
	"endurancy-platform/internal/httpapi"
	"endurancy-platform/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("tarefa.service",
	fx.Provide(NewService, NewHandler),
)

var Gateway = fx.Module("tarefa.gateway",
	fx.Invoke(registerRoutes),
)

var Worker = fx.Module("tarefa.worker",
	fx.Invoke(func(mux *asynq.ServeMux, s *Service) {
		mux.HandleFunc(taskname.TarefaDueReminder, s.HandleDueReminder)
	}),
)

func registerRoutes(r *httpapi.Router, h *Handler) {
	g := r.Private.Group("/tarefas")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.POST("/:id/arquivar", h.archive(true))
	g.POST("/:id/desarquivar", h.archive(false))
	g.GET("/:id/historico", h.Historico)
	g.GET("/:id/comentarios", h.ListComentarios)
	g.POST("/:id/comentarios", h.AddComentario)
	g.DELETE("/:id/comentarios/:comentarioId", h.DeleteComentario)
	g.PUT("/:id/etiquetas", h.SetEtiquetas)
	g.GET("/:id/anexos", h.ListAnexos)
	g.POST("/:id/anexos", h.UploadAnexo)
	g.GET("/:id/anexos/:anexoId/download", h.DownloadAnexo)
	g.DELETE("/:id/anexos/:anexoId", h.DeleteAnexo)

	e := r.Private.Group("/etiquetas")
	e.GET("", h.ListEtiquetas)
	e.POST("", h.CreateEtiqueta)
	e.DELETE("/:id", h.DeleteEtiqueta)
}
