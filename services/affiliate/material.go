package affiliate

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/errutil"

	"gorm.io/gorm"
)

const (
	MaxMaterialSize = 50 << 20
	downloadTTL     = 15 * time.Minute
)

type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (s *Service) UploadMaterial(ctx context.Context, actor Actor, req MaterialRequest, up Upload) (*PromotionalMaterial, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	if up.Size <= 0 || up.Size > MaxMaterialSize {
		return nil, errutil.BadRequest(fmt.Sprintf("file must be between 1 byte and %d MB", MaxMaterialSize>>20), nil)
	}
	if up.ContentType == "" {
		up.ContentType = "application/octet-stream"
	}

	m := &PromotionalMaterial{
		ID:             s.ids.NewID(),
		OrganizationID: actor.OrganizationID,
		Title:          req.Title,
		Description:    req.Description,
		FileName:       path.Base(up.Filename),
		ContentType:    up.ContentType,
		Size:           up.Size,
		IsActive:       true,
	}
	m.ObjectKey = fmt.Sprintf("affiliates/materials/%s/%s/%s", actor.OrganizationID, m.ID, m.FileName)

	if err := s.storage.Put(ctx, m.ObjectKey, up.Body, up.Size, up.ContentType); err != nil {
		return nil, errutil.ServiceUnavailable("failed to store file", err)
	}
	if err := s.material.Create(ctx, m); err != nil {
		_ = s.storage.Remove(ctx, m.ObjectKey)
		return nil, err
	}
	return m, nil
}

func (s *Service) ListMaterials(ctx context.Context, actor Actor) ([]*PromotionalMaterial, error) {
	return s.material.Find(ctx, nil,
		option.Equal("organization_id", actor.OrganizationID),
		option.Equal("is_active", true),
		option.WithSortBy(option.QuerySortBy{}),
	)
}

// DownloadMaterial signs a short lived link and counts the download.
func (s *Service) DownloadMaterial(ctx context.Context, actor Actor, id string) (*DownloadLink, error) {
	m, err := s.material.FindOne(ctx, &PromotionalMaterial{ID: id},
		option.Equal("organization_id", actor.OrganizationID),
		option.Equal("is_active", true),
	)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errutil.NotFound("Material not found", nil)
	}

	url, err := s.storage.PresignGet(ctx, m.ObjectKey, m.FileName, downloadTTL)
	if err != nil {
		return nil, errutil.ServiceUnavailable("failed to sign download link", err)
	}
	if err := s.material.Update(ctx, m.ID, map[string]any{"download_count": gorm.Expr("download_count + ?", 1)}); err != nil {
		return nil, err
	}
	return &DownloadLink{URL: url, ExpiresAt: time.Now().UTC().Add(downloadTTL)}, nil
}
