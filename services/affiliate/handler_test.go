package affiliate

import (
	"encoding/json"
	"net/http"
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

	u, _ := f.member(t, "Joana")
	member := h.Login(t, session.Data{UserID: u.ID, OrganizationID: "org-1", Role: access.RoleAffiliate})
	manager := h.Login(t, session.Data{UserID: f.admin.UserID, OrganizationID: "org-1", Role: access.RoleOrgAdmin})

	w := h.Do(t, http.MethodGet, "/api/affiliates/me", nil, member)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = h.Do(t, http.MethodPost, "/api/affiliates", map[string]any{"type": "patient"}, member)
	require.Equal(t, http.StatusCreated, w.Code)
	var a Affiliate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))

	w = h.Do(t, http.MethodGet, "/api/affiliates", nil, member)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = h.Do(t, http.MethodPost, "/api/affiliates/"+a.ID+"/points", map[string]any{"activityType": "purchase", "points": 40}, member)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = h.Do(t, http.MethodPost, "/api/affiliates/"+a.ID+"/points", map[string]any{"activityType": "purchase", "points": 40}, manager)
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.Do(t, http.MethodGet, "/api/affiliates/"+a.ID+"/points", nil, member)
	require.Equal(t, http.StatusOK, w.Code)
	var points struct {
		Data []AffiliatePoint `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &points))
	require.Len(t, points.Data, 1)

	w = h.Do(t, http.MethodGet, "/api/affiliates/"+a.ID+"/points/verify", nil, manager)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"valid":true`)

	w = h.Do(t, http.MethodPost, "/api/affiliates/rewards", map[string]any{"name": "Boné", "pointsCost": 30}, manager)
	require.Equal(t, http.StatusCreated, w.Code)
	var reward AffiliateReward
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reward))

	w = h.Do(t, http.MethodPost, "/api/affiliates/"+a.ID+"/redemptions", map[string]any{"rewardId": reward.ID}, member)
	require.Equal(t, http.StatusCreated, w.Code)
	var redemption AffiliateRedemption
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &redemption))

	w = h.Do(t, http.MethodPost, "/api/affiliates/redemptions/"+redemption.ID+"/cancel", nil, member)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = h.Do(t, http.MethodPost, "/api/affiliates/redemptions/"+redemption.ID+"/cancel", nil, manager)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.Do(t, http.MethodGet, "/api/affiliates/"+a.ID+"/stats", nil, member)
	require.Equal(t, http.StatusOK, w.Code)
	var st Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	require.EqualValues(t, 40, st.Points)
	require.EqualValues(t, 3, st.LedgerEntries)
}
