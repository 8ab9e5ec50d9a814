package carteirinha

import (
	"context"
	"errors"
	"strings"
	"time"

	"endurancy-platform/pkg/access"
	"endurancy-platform/pkg/config"
	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/db/pagination"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/gen"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/repository"
	"endurancy-platform/pkg/sequence"
	"endurancy-platform/services/organization"
	"endurancy-platform/services/user"

	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultValidity = 365 * 24 * time.Hour

type Actor struct {
	UserID         string
	OrganizationID string
}

type Service struct {
	db       *gorm.DB
	ids      gen.IDGenerator
	validate *validator.Validate
	seq      sequence.Generator
	signer   *Signer
	users    *user.Service
	orgs     *organization.Service
	validity time.Duration
	now      func() time.Time

	card repository.Repository[Card]
}

type ServiceParams struct {
	fx.In
	DB            *gorm.DB
	IDs           gen.IDGenerator
	Config        *config.Config
	Sequence      sequence.Generator
	Signer        *Signer
	Users         *user.Service
	Organizations *organization.Service
}

func NewService(p ServiceParams) *Service {
	validity := p.Config.Carteirinha.Validity
	if validity <= 0 {
		validity = defaultValidity
	}
	return &Service{
		db:       p.DB,
		ids:      p.IDs,
		validate: validator.New(),
		seq:      p.Sequence,
		signer:   p.Signer,
		users:    p.Users,
		orgs:     p.Organizations,
		validity: validity,
		now:      func() time.Time { return time.Now().UTC() },

		card: repository.ProvideStore[Card](p.DB),
	}
}

// Issue creates a card for a patient of the actor's organization and revokes
// the card the patient held before, if any.
func (s *Service) Issue(ctx context.Context, actor Actor, req IssueRequest) (*Card, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	patient, err := s.users.GetInOrganization(ctx, actor.OrganizationID, req.PatientID)
	if err != nil {
		return nil, err
	}
	if patient.Role != access.RolePatient || !patient.IsActive {
		return nil, errutil.ValidationFailed("validation failed", nil, errutil.WithDetails(errutil.Detail{
			Field:   "PatientID",
			Message: "must be an active patient",
		}))
	}

	now := s.now()
	validUntil := now.Add(s.validity)
	if req.ValidUntil != nil {
		if !req.ValidUntil.After(now) {
			return nil, errutil.ValidationFailed("validation failed", nil, errutil.WithDetails(errutil.Detail{
				Field:   "ValidUntil",
				Message: "must be in the future",
			}))
		}
		validUntil = req.ValidUntil.UTC()
	}

	org, err := s.orgs.Get(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	number, err := s.seq.NextCarteirinhaNumber(ctx, actor.OrganizationID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to generate card number", zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to generate card number", err)
	}

	document := strings.TrimSpace(req.Document)
	if document == "" {
		document = patient.Document
	}
	card := &Card{
		ID:               s.ids.NewID(),
		OrganizationID:   actor.OrganizationID,
		OrganizationName: org.Name,
		PatientID:        patient.ID,
		Number:           number,
		HolderName:       patient.Name,
		Document:         document,
		Status:           StatusActive,
		ValidUntil:       validUntil,
		IssuedBy:         actor.UserID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	card.Token, err = s.signer.Sign(card)
	if err != nil {
		return nil, errutil.Internal("failed to sign card", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prev, err := s.card.WithTrx(tx).Find(ctx, &Card{PatientID: patient.ID, OrganizationID: actor.OrganizationID, Status: StatusActive}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		for _, p := range prev {
			if err := s.card.WithTrx(tx).Update(ctx, p.ID, map[string]any{
				"status":        StatusRevoked,
				"revoked_at":    now,
				"revoked_by":    actor.UserID,
				"revoke_reason": "reissued",
			}); err != nil {
				return err
			}
		}
		return s.card.WithTrx(tx).Create(ctx, card)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("carteirinha issued",
		zap.String("card_id", card.ID),
		zap.String("patient_id", patient.ID),
		zap.String("alg", s.signer.Algorithm()),
	)
	return card, nil
}

func (s *Service) Get(ctx context.Context, actor Actor, id string) (*Card, error) {
	card, err := s.card.FindOne(ctx, &Card{ID: id}, option.Equal("organization_id", actor.OrganizationID))
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, errutil.NotFound("Card not found", nil)
	}
	return card, nil
}

func (s *Service) List(ctx context.Context, actor Actor, req ListRequest, p pagination.Pagination) ([]*Card, *pagination.PageInfo, error) {
	rows, err := s.card.Find(ctx, &Card{PatientID: req.PatientID, Status: req.Status},
		option.Equal("organization_id", actor.OrganizationID),
		option.WithSortBy(option.QuerySortBy{}),
		option.ApplyPagination(p),
	)
	if err != nil {
		return nil, nil, err
	}
	data, info := pagination.Page(rows, p.Normalize().Limit, func(c *Card) string {
		return pagination.CursorOf(c.ID, c.CreatedAt)
	})
	return data, info, nil
}

// Mine returns the active card of the signed in patient.
func (s *Service) Mine(ctx context.Context, actor Actor) (*Card, error) {
	card, err := s.card.FindOne(ctx, &Card{PatientID: actor.UserID, OrganizationID: actor.OrganizationID, Status: StatusActive})
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, errutil.NotFound("Card not found", nil)
	}
	return card, nil
}

func (s *Service) Revoke(ctx context.Context, actor Actor, id string, req RevokeRequest) (*Card, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}

	var out *Card
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		card, err := s.card.WithTrx(tx).FindOne(ctx, &Card{ID: id}, option.Equal("organization_id", actor.OrganizationID), option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if card == nil {
			return errutil.NotFound("Card not found", nil)
		}
		if card.Status == StatusRevoked {
			return errutil.Conflict("Card is already revoked", nil)
		}
		now := s.now()
		if err := s.card.WithTrx(tx).Update(ctx, card.ID, map[string]any{
			"status":        StatusRevoked,
			"revoked_at":    now,
			"revoked_by":    actor.UserID,
			"revoke_reason": req.Reason,
		}); err != nil {
			return err
		}
		card.Status, card.RevokedAt, card.RevokedBy, card.RevokeReason = StatusRevoked, &now, actor.UserID, req.Reason
		out = card
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("carteirinha revoked", zap.String("card_id", out.ID))
	return out, nil
}

// Verify answers a public scan. ref is either a card id or the signed token
// printed in the QR code. Problems with the card are reported in the result,
// only storage failures are returned as errors.
func (s *Service) Verify(ctx context.Context, ref string) (*Verification, error) {
	ref = strings.TrimSpace(ref)
	now := s.now()
	cardID := ref
	expired := false

	if strings.Count(ref, ".") == 2 {
		claims, err := s.signer.Verify(ref, now)
		switch {
		case errors.Is(err, ErrTokenExpired):
			expired = true
		case err != nil:
			logger.FromContext(ctx).Debug("card token rejected", zap.Error(err))
			return &Verification{Valid: false, Reason: ReasonInvalidSignature}, nil
		}
		cardID = claims.ID
	}

	card, err := s.card.FindByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return &Verification{Valid: false, Reason: ReasonNotFound}, nil
	}

	validUntil := card.ValidUntil
	out := &Verification{
		Valid:            true,
		Status:           card.Status,
		Number:           card.Number,
		HolderName:       card.HolderName,
		OrganizationName: card.OrganizationName,
		ValidUntil:       &validUntil,
	}
	switch {
	case card.Status == StatusRevoked:
		out.Valid, out.Reason = false, ReasonRevoked
	case expired || !now.Before(card.ValidUntil):
		out.Valid, out.Status, out.Reason = false, StatusExpired, ReasonExpired
	}
	return out, nil
}
