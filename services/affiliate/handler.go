package affiliate

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
	s := session.Current(c)
	return Actor{UserID: s.UserID, OrganizationID: middleware.OrganizationID(c), Role: s.Role}
}

func (h *Handler) Enroll(c *gin.Context) {
	var req EnrollRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	a, err := h.service.Enroll(c.Request.Context(), actorOf(c), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) Me(c *gin.Context) {
	a, err := h.service.Me(c.Request.Context(), actorOf(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c *gin.Context) {
	p, err := httpapi.BindPagination(c)
	if err != nil {
		c.Error(err)
		return
	}

	req := ListRequest{Level: c.Query("level"), Type: c.Query("type"), Query: c.Query("q")}
	if v, ok := httpapi.Query(c)["isActive"].(bool); ok {
		req.IsActive = &v
	}
	data, info, err := h.service.List(c.Request.Context(), actorOf(c), req, p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpapi.NewListResponse(c, data, info))
}

func (h *Handler) Get(c *gin.Context) {
	a, err := h.service.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) SetLevel(c *gin.Context) {
	var req SetLevelRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	a, err := h.service.SetLevel(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) SetStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	a, err := h.service.SetStatus(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) AddPoints(c *gin.Context) {
	var req AddPointsRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	e, err := h.service.AddPoints(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) ListPoints(c *gin.Context) {
	p, err := httpapi.BindPagination(c)
	if err != nil {
		c.Error(err)
		return
	}
	data, info, err := h.service.ListPoints(c.Request.Context(), actorOf(c), c.Param("id"), p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpapi.NewListResponse(c, data, info))
}

func (h *Handler) VerifyPoints(c *gin.Context) {
	report, err := h.service.VerifyChain(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) Stats(c *gin.Context) {
	st, err := h.service.Stats(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) CreateReferral(c *gin.Context) {
	var req ReferralRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	ref, err := h.service.CreateReferral(c.Request.Context(), actorOf(c), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, ref)
}

func (h *Handler) ListReferrals(c *gin.Context) {
	p, err := httpapi.BindPagination(c)
	if err != nil {
		c.Error(err)
		return
	}
	data, info, err := h.service.ListReferrals(c.Request.Context(), actorOf(c), c.Param("id"), p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpapi.NewListResponse(c, data, info))
}

func (h *Handler) CreateReward(c *gin.Context) {
	var req RewardRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	r, err := h.service.CreateReward(c.Request.Context(), actorOf(c), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *Handler) ListRewards(c *gin.Context) {
	rows, err := h.service.ListRewards(c.Request.Context(), actorOf(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (h *Handler) UpdateReward(c *gin.Context) {
	var req UpdateRewardRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	r, err := h.service.UpdateReward(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) Redeem(c *gin.Context) {
	var req RedeemRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	r, err := h.service.Redeem(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *Handler) ListRedemptions(c *gin.Context) {
	p, err := httpapi.BindPagination(c)
	if err != nil {
		c.Error(err)
		return
	}
	data, info, err := h.service.ListRedemptions(c.Request.Context(), actorOf(c), c.Param("id"), p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpapi.NewListResponse(c, data, info))
}

func (h *Handler) processRedemption(status string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProcessRedemptionRequest
		if c.Request.ContentLength > 0 {
			if err := httpapi.BindJSON(c, &req); err != nil {
				c.Error(err)
				return
			}
		}
		r, err := h.service.ProcessRedemption(c.Request.Context(), actorOf(c), c.Param("id"), status, req)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

func (h *Handler) UploadMaterial(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxMaterialSize+1<<20)
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

	m, err := h.service.UploadMaterial(c.Request.Context(), actorOf(c),
		MaterialRequest{Title: c.PostForm("title"), Description: c.PostForm("description")},
		Upload{Filename: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Size: fh.Size, Body: f},
	)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListMaterials(c *gin.Context) {
	rows, err := h.service.ListMaterials(c.Request.Context(), actorOf(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (h *Handler) DownloadMaterial(c *gin.Context) {
	link, err := h.service.DownloadMaterial(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, link)
}
