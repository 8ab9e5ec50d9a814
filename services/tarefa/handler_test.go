package tarefa

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"endurancy-platform/pkg/access"
	"endurancy-platform/pkg/session"
	"endurancy-platform/services/testutil"

	"github.com/stretchr/testify/require"
)

func TestHandlerRoutes(t *testing.T) {
	f := newFixture(t)
	h := testutil.NewHTTP(t)
	registerRoutes(h.Router, NewHandler(f.svc))

	staff := h.Login(t, session.Data{UserID: f.creator.ID, OrganizationID: "org-1", Role: access.RoleHR})
	patient := h.Login(t, session.Data{UserID: "p1", OrganizationID: "org-1", Role: access.RolePatient})

	w := h.Do(t, http.MethodGet, "/api/tarefas", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.Do(t, http.MethodGet, "/api/tarefas", nil, patient)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = h.Do(t, http.MethodPost, "/api/tarefas", map[string]any{"descricao": "sem título"}, staff)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var errBody struct {
		Message string `json:"message"`
		Error   struct {
			Code    string `json:"code"`
			Details []struct {
				Field string `json:"field"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errBody))
	require.Equal(t, "validation_failed", errBody.Error.Code)
	require.Equal(t, "Titulo", errBody.Error.Details[0].Field)

	w = h.Do(t, http.MethodPost, "/api/tarefas", map[string]any{"titulo": "Comprar insumos", "prioridade": "HIGH"}, staff)
	require.Equal(t, http.StatusCreated, w.Code)
	var created Tarefa
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, PrioridadeHigh, created.Prioridade)

	w = h.Do(t, http.MethodPatch, "/api/tarefas/"+created.ID, map[string]any{"status": "REVIEW"}, staff)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.Do(t, http.MethodGet, "/api/tarefas?status=REVIEW&limit=1", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data     []Tarefa `json:"data"`
		PageInfo struct {
			HasMore bool `json:"has_more"`
		} `json:"pageInfo"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	require.False(t, list.PageInfo.HasMore)

	w = h.Do(t, http.MethodPost, "/api/tarefas/"+created.ID+"/arquivar", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	w = h.Do(t, http.MethodGet, "/api/tarefas", nil, staff)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Empty(t, list.Data)
	w = h.Do(t, http.MethodGet, "/api/tarefas?arquivada=true", nil, staff)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)

	w = h.Do(t, http.MethodGet, "/api/tarefas/"+created.ID+"/historico", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"campo":"arquivada"`)
}

func TestHandlerUpload(t *testing.T) {
	f := newFixture(t)
	h := testutil.NewHTTP(t)
	registerRoutes(h.Router, NewHandler(f.svc))
	staff := h.Login(t, session.Data{UserID: f.creator.ID, OrganizationID: "org-1", Role: access.RoleOrgAdmin})

	created, err := f.svc.Create(t.Context(), f.actor, CreateRequest{Titulo: "Receitas"})
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "receita.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("dose: 10mg"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tarefas/"+created.ID+"/anexos", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for _, c := range staff {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.Engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var a AnexoTarefa
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	require.Equal(t, "receita.txt", a.NomeArquivo)
	require.EqualValues(t, len("dose: 10mg"), a.Tamanho)

	w = h.Do(t, http.MethodGet, "/api/tarefas/"+created.ID+"/anexos/"+a.ID+"/download", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "files.test")
}
