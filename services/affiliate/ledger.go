package affiliate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/errutil"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func (p *AffiliatePoint) HashFields() map[string]string {
	return map[string]string{
		"id":              p.ID,
		"affiliate_id":    p.AffiliateID,
		"organization_id": p.OrganizationID,
		"activity_type":   p.ActivityType,
		"points":          fmt.Sprintf("%d", p.Points),
		"balance_after":   fmt.Sprintf("%d", p.BalanceAfter),
		"reference_id":    p.ReferenceID,
		"description":     p.Description,
		"created_at":      p.CreatedAt.UTC().Format(time.RFC3339Nano),
		"previous_hash":   p.PreviousHash,
	}
}

func (p *AffiliatePoint) GenerateHash() string {
	fields := p.HashFields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}

type entry struct {
	activity    string
	points      int64
	redeemed    int64
	description string
	referenceID string
	metadata    any
}

// post appends e to the ledger of the locked affiliate a and moves its
// balances. Credits raise totalEarned, redemptions raise totalRedeemed and
// refunds lower it, so points always equals totalEarned - totalRedeemed.
func (s *Service) post(ctx context.Context, tx *gorm.DB, a *Affiliate, e entry) (*AffiliatePoint, error) {
	ledger := s.point.WithTrx(tx)

	last, err := ledger.FindOne(ctx, &AffiliatePoint{AffiliateID: a.ID}, option.WithSortBy(option.QuerySortBy{}))
	if err != nil {
		return nil, err
	}
	previousHash := genesisHash
	if last != nil {
		previousHash = last.Hash
	}

	earned := a.TotalEarned
	if e.redeemed == 0 {
		earned += e.points
	}
	redeemed := a.TotalRedeemed + e.redeemed
	points := a.Points + e.points
	if points != earned-redeemed {
		return nil, errutil.Internal("points ledger out of balance", fmt.Errorf("affiliate %s: %d != %d - %d", a.ID, points, earned, redeemed))
	}
	if points < 0 {
		return nil, errutil.UnprocessableEntity("Insufficient points", nil)
	}

	var meta datatypes.JSON
	if e.metadata != nil {
		b, err := json.Marshal(e.metadata)
		if err != nil {
			return nil, errutil.BadRequest("invalid metadata", err)
		}
		meta = datatypes.JSON(b)
	}

	p := &AffiliatePoint{
		ID:             s.ids.NewID(),
		AffiliateID:    a.ID,
		OrganizationID: a.OrganizationID,
		ActivityType:   e.activity,
		Points:         e.points,
		BalanceAfter:   points,
		Description:    e.description,
		ReferenceID:    e.referenceID,
		PreviousHash:   previousHash,
		Metadata:       meta,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
	p.Hash = p.GenerateHash()
	if err := ledger.Create(ctx, p); err != nil {
		return nil, err
	}

	if err := s.affiliate.WithTrx(tx).Update(ctx, a.ID, map[string]any{
		"points":         points,
		"total_earned":   earned,
		"total_redeemed": redeemed,
	}); err != nil {
		return nil, err
	}
	a.Points, a.TotalEarned, a.TotalRedeemed = points, earned, redeemed
	return p, nil
}

// VerifyChain recomputes every hash of the affiliate's ledger and checks the
// running balance against the stored totals.
func (s *Service) VerifyChain(ctx context.Context, actor Actor, affiliateID string) (*ChainReport, error) {
	a, err := s.get(ctx, actor, affiliateID)
	if err != nil {
		return nil, err
	}
	entries, err := s.point.Find(ctx, &AffiliatePoint{AffiliateID: a.ID}, option.WithSortBy(option.QuerySortBy{OrderBy: "asc"}))
	if err != nil {
		return nil, err
	}

	report := &ChainReport{Valid: true, Entries: len(entries)}
	previous := genesisHash
	var balance int64
	for _, e := range entries {
		balance += e.Points
		switch {
		case e.PreviousHash != previous:
			report.Valid, report.BrokenAt, report.Reason = false, e.ID, "previous hash mismatch"
		case e.GenerateHash() != e.Hash:
			report.Valid, report.BrokenAt, report.Reason = false, e.ID, "hash mismatch"
		case e.BalanceAfter != balance:
			report.Valid, report.BrokenAt, report.Reason = false, e.ID, "balance mismatch"
		}
		if !report.Valid {
			return report, nil
		}
		previous = e.Hash
	}
	if balance != a.Points {
		report.Valid, report.Reason = false, "affiliate points differ from ledger"
	}
	return report, nil
}
