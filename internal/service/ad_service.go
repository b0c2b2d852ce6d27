package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/vbonduro/adbuilder/internal/adcontent"
	"github.com/vbonduro/adbuilder/internal/blobstore"
	"github.com/vbonduro/adbuilder/internal/domain"
)

// ErrPartialSave means the ad space was written but the design write that
// should have followed it failed. The orphaned space is left in place.
var ErrPartialSave = errors.New("ad space saved but ad design was not")

// ErrNotFound is returned when a viewer asks for an ad space that does not exist.
var ErrNotFound = errors.New("ad not found")

const (
	anonymousPrefix = "anonymous"
	spaceTextColor  = "#FFFFFF"
)

// spaceRepository is the subset of store.AdSpaceStore that AdService requires.
type spaceRepository interface {
	Create(ctx context.Context, ownerID *string, f domain.SpaceFields) (*domain.AdSpace, error)
	GetByID(ctx context.Context, id string) (*domain.AdSpace, error)
	Update(ctx context.Context, id string, f domain.SpaceFields) (*domain.AdSpace, error)
}

// designRepository is the subset of store.AdDesignStore that AdService requires.
type designRepository interface {
	Create(ctx context.Context, ownerID *string, adSpaceID string, f domain.DesignFields) (*domain.DesignWithSpace, error)
	GetByID(ctx context.Context, id string) (*domain.DesignWithSpace, error)
	GetBySpaceID(ctx context.Context, adSpaceID string) (*domain.DesignWithSpace, error)
	ListByOwner(ctx context.Context, ownerID *string) ([]*domain.DesignWithSpace, error)
	Update(ctx context.Context, id string, f domain.DesignFields) (*domain.DesignWithSpace, error)
	Delete(ctx context.Context, id string, ownerID *string) error
}

type AdService struct {
	spaceStore  spaceRepository
	designStore designRepository
	blobs       blobstore.Store
	logger      *slog.Logger
	now         func() time.Time
}

func NewAdService(
	spaceStore spaceRepository,
	designStore designRepository,
	blobs blobstore.Store,
	logger *slog.Logger,
) *AdService {
	return &AdService{
		spaceStore:  spaceStore,
		designStore: designStore,
		blobs:       blobs,
		logger:      logger,
		now:         time.Now,
	}
}

// SaveInput is what the builder form produces once validated.
type SaveInput struct {
	Name       string
	Background string
	Content    domain.AdContent
}

func (in SaveInput) spaceFields() domain.SpaceFields {
	desc := "Ad space for " + in.Name
	if in.Content.Mode == domain.ModeCustom {
		desc = "Custom media ad"
	}
	return domain.SpaceFields{
		Title:       in.Name,
		Description: desc,
		Content:     in.Content.ForSpace(),
		Theme:       domain.Theme{BackgroundColor: in.Background, TextColor: spaceTextColor},
	}
}

func (in SaveInput) designFields() domain.DesignFields {
	return domain.DesignFields{
		Name:       in.Name,
		Background: in.Background,
		Content:    in.Content.ForDesign(),
	}
}

// ListDesigns returns the owner's designs newest first, each with its linked
// ad space. A nil owner lists anonymous designs.
func (s *AdService) ListDesigns(ctx context.Context, ownerID *string) ([]*domain.DesignWithSpace, error) {
	designs, err := s.designStore.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list designs: %w", err)
	}
	return designs, nil
}

func (s *AdService) GetDesign(ctx context.Context, id string) (*domain.DesignWithSpace, error) {
	return s.designStore.GetByID(ctx, id)
}

// CreateDesign writes the ad space and then the design that links to it.
// The two writes are not atomic: when the design write fails the returned
// error wraps ErrPartialSave and the space stays behind.
func (s *AdService) CreateDesign(ctx context.Context, ownerID *string, in SaveInput) (*domain.DesignWithSpace, error) {
	space, err := s.spaceStore.Create(ctx, ownerID, in.spaceFields())
	if err != nil {
		return nil, fmt.Errorf("failed to create ad space: %w", err)
	}
	s.logger.Debug("ad space created", "ad_space_id", space.ID)

	design, err := s.designStore.Create(ctx, ownerID, space.ID, in.designFields())
	if err != nil {
		s.logger.Error("ad design create failed after ad space was written", "ad_space_id", space.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPartialSave, err)
	}

	s.logger.Info("ad design created", "design_id", design.ID, "ad_space_id", space.ID, "mode", string(in.Content.Mode))
	return design, nil
}

// UpdateDesign rewrites the linked ad space and then the design, in that
// order, with the same partial-write behavior as CreateDesign.
func (s *AdService) UpdateDesign(ctx context.Context, existing *domain.DesignWithSpace, in SaveInput) (*domain.DesignWithSpace, error) {
	if existing == nil || existing.AdDesign == nil {
		return nil, fmt.Errorf("no design to update")
	}

	if _, err := s.spaceStore.Update(ctx, existing.AdSpaceID, in.spaceFields()); err != nil {
		return nil, fmt.Errorf("failed to update ad space: %w", err)
	}

	design, err := s.designStore.Update(ctx, existing.ID, in.designFields())
	if err != nil {
		s.logger.Error("ad design update failed after ad space was written", "design_id", existing.ID, "ad_space_id", existing.AdSpaceID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPartialSave, err)
	}

	s.logger.Info("ad design updated", "design_id", design.ID, "ad_space_id", design.AdSpaceID, "mode", string(in.Content.Mode))
	return design, nil
}

// DeleteDesign removes the owner's design record only. Designs of other
// owners are reported as not found.
func (s *AdService) DeleteDesign(ctx context.Context, ownerID *string, id string) error {
	if err := s.designStore.Delete(ctx, id, ownerID); err != nil {
		return fmt.Errorf("failed to delete design: %w", err)
	}
	s.logger.Info("ad design deleted", "design_id", id)
	return nil
}

// UploadMedia stores r under <owner>/<unix-millis><ext> and returns a ref whose
// URL is the public address of the object.
func (s *AdService) UploadMedia(ctx context.Context, ownerID *string, filename, mimeType string, r io.Reader) (blobstore.Ref, error) {
	prefix := anonymousPrefix
	if ownerID != nil && *ownerID != "" {
		prefix = *ownerID
	}
	objectPath := prefix + "/" + strconv.FormatInt(s.now().UnixMilli(), 10) + blobstore.Extension(filename, mimeType)

	ref, err := s.blobs.Upload(ctx, objectPath, mimeType, r)
	if err != nil {
		return blobstore.Ref{}, fmt.Errorf("failed to upload media: %w", err)
	}
	ref.URL = s.blobs.PublicURL(ref)

	s.logger.Info("media uploaded", "storage_key", ref.Key, "mime_type", mimeType)
	return ref, nil
}

// DiscardMedia removes an upload that no record ended up referencing.
func (s *AdService) DiscardMedia(ctx context.Context, ref blobstore.Ref) {
	if err := s.blobs.Delete(ctx, ref.Key); err != nil {
		s.logger.Error("failed to delete unreferenced media", "storage_key", ref.Key, "error", err)
	}
}

// View is what a scanned code resolves to.
type View struct {
	Space      *domain.AdSpace
	Design     *domain.DesignWithSpace
	Content    adcontent.Effective
	Background string
}

// ResolveView looks up the ad space a code points at together with its design.
// A space whose design is gone still resolves from its own content.
func (s *AdService) ResolveView(ctx context.Context, adSpaceID string) (*View, error) {
	space, err := s.spaceStore.GetByID(ctx, adSpaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ad space: %w", err)
	}
	if space == nil {
		return nil, ErrNotFound
	}

	design, err := s.designStore.GetBySpaceID(ctx, adSpaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ad design: %w", err)
	}

	v := &View{Space: space, Background: space.Theme.BackgroundColor}
	if design == nil {
		v.Content = adcontent.Resolve(nil, &space.Content)
		return v, nil
	}
	v.Design = design
	v.Content = adcontent.ForDesign(design)
	if design.Background != "" {
		v.Background = design.Background
	}
	return v, nil
}
