package tarefa

import (
	"net/http"

	"endurancy-platform/internal/httpapi"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/middleware"
	"endurancy-platform/pkg/session"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func actorOf(c *gin.Context) Actor {
	return Actor{UserID: session.Current(c).UserID, OrganizationID: middleware.OrganizationID(c)}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	t, err := h.service.Create(c.Request.Context(), actorOf(c), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) List(c *gin.Context) {
	p, err := httpapi.BindPagination(c)
	if err != nil {
		c.Error(err)
		return
	}

	arquivada, _ := httpapi.Query(c)["arquivada"].(bool)
	req := ListRequest{
		Status:         c.Query("status"),
		Prioridade:     c.Query("prioridade"),
		ResponsavelID:  c.Query("responsavelId"),
		ProjetoID:      c.Query("projetoId"),
		DepartamentoID: c.Query("departamentoId"),
		Arquivada:      arquivada,
		Query:          c.Query("q"),
		SortBy:         c.Query("sortBy"),
		Order:          c.Query("order"),
	}

	data, info, err := h.service.List(c.Request.Context(), actorOf(c), req, p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpapi.NewListResponse(c, data, info))
}

func (h *Handler) Get(c *gin.Context) {
	t, err := h.service.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	t, err := h.service.Update(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) archive(arquivada bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := h.service.SetArquivada(c.Request.Context(), actorOf(c), c.Param("id"), arquivada)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

func (h *Handler) Historico(c *gin.Context) {
	rows, err := h.service.Historico(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (h *Handler) AddComentario(c *gin.Context) {
	var req ComentarioRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	cm, err := h.service.AddComentario(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, cm)
}

func (h *Handler) ListComentarios(c *gin.Context) {
	rows, err := h.service.ListComentarios(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (h *Handler) DeleteComentario(c *gin.Context) {
	if err := h.service.DeleteComentario(c.Request.Context(), actorOf(c), c.Param("id"), c.Param("comentarioId")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SetEtiquetas(c *gin.Context) {
	var req SetEtiquetasRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	t, err := h.service.SetEtiquetas(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) CreateEtiqueta(c *gin.Context) {
	var req EtiquetaRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	e, err := h.service.CreateEtiqueta(c.Request.Context(), actorOf(c), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) ListEtiquetas(c *gin.Context) {
	rows, err := h.service.ListEtiquetas(c.Request.Context(), actorOf(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (h *Handler) DeleteEtiqueta(c *gin.Context) {
	if err := h.service.DeleteEtiqueta(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UploadAnexo(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxAnexoSize+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		c.Error(errutil.BadRequest("multipart field \"file\" is required", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.Error(errutil.BadRequest("cannot read upload", err))
		return
	}
	defer f.Close()

	a, err := h.service.AddAnexo(c.Request.Context(), actorOf(c), c.Param("id"), Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListAnexos(c *gin.Context) {
	rows, err := h.service.ListAnexos(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (h *Handler) DownloadAnexo(c *gin.Context) {
	link, err := h.service.DownloadAnexo(c.Request.Context(), actorOf(c), c.Param("id"), c.Param("anexoId"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h *Handler) DeleteAnexo(c *gin.Context) {
	if err := h.service.DeleteAnexo(c.Request.Context(), actorOf(c), c.Param("id"), c.Param("anexoId")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
