package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vbonduro/adbuilder/internal/domain"
)

type AdDesignStore struct {
	db *sqlx.DB
}

func NewAdDesignStore(db *sql.DB) *AdDesignStore {
	return &AdDesignStore{db: newDB(db)}
}

// selectDesigns joins each design with the id, title and content of its
// linked ad space.
const selectDesigns = `
	SELECT d.id, d.owner_id, d.name, d.background, d.content, d.image_url, d.ad_space_id, d.created_at,
	       s.id AS space_id, s.title AS space_title, s.content AS space_content
	FROM ad_designs d
	LEFT JOIN ad_spaces s ON s.id = d.ad_space_id
`

type designRow struct {
	ID         string               `db:"id"`
	OwnerID    *string              `db:"owner_id"`
	Name       string               `db:"name"`
	Background string               `db:"background"`
	Content    domain.StoredContent `db:"content"`
	ImageURL   *string              `db:"image_url"`
	AdSpaceID  string               `db:"ad_space_id"`
	CreatedAt  int64                `db:"created_at"`

	SpaceID      *string              `db:"space_id"`
	SpaceTitle   *string              `db:"space_title"`
	SpaceContent domain.StoredContent `db:"space_content"`
}

func (r *designRow) toDomain() *domain.DesignWithSpace {
	d := &domain.DesignWithSpace{
		AdDesign: &domain.AdDesign{
			ID:         r.ID,
			OwnerID:    r.OwnerID,
			Name:       r.Name,
			Background: r.Background,
			Content:    r.Content,
			ImageURL:   r.ImageURL,
			AdSpaceID:  r.AdSpaceID,
			CreatedAt:  fromStamp(r.CreatedAt),
		},
	}
	if r.SpaceID != nil {
		space := &domain.LinkedSpace{ID: *r.SpaceID, Content: r.SpaceContent}
		if r.SpaceTitle != nil {
			space.Title = *r.SpaceTitle
		}
		d.Space = space
	}
	return d
}

func (s *AdDesignStore) Create(ctx context.Context, ownerID *string, adSpaceID string, f domain.DesignFields) (*domain.DesignWithSpace, error) {
	id := newID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ad_designs (id, owner_id, name, background, content, ad_space_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, ownerID, f.Name, f.Background, f.Content, adSpaceID, now())
	if err != nil {
		return nil, fmt.Errorf("failed to create ad design: %w", err)
	}

	return s.mustGet(ctx, id)
}

func (s *AdDesignStore) GetByID(ctx context.Context, id string) (*domain.DesignWithSpace, error) {
	return s.getOne(ctx, selectDesigns+` WHERE d.id = ?`, id)
}

// GetBySpaceID returns the design linked to the given ad space.
func (s *AdDesignStore) GetBySpaceID(ctx context.Context, adSpaceID string) (*domain.DesignWithSpace, error) {
	return s.getOne(ctx, selectDesigns+` WHERE d.ad_space_id = ? ORDER BY d.created_at DESC LIMIT 1`, adSpaceID)
}

// ListByOwner returns the designs of one owner, newest first. A nil owner
// lists the designs created without an identity.
func (s *AdDesignStore) ListByOwner(ctx context.Context, ownerID *string) ([]*domain.DesignWithSpace, error) {
	var rows []designRow
	err := s.db.SelectContext(ctx, &rows, selectDesigns+`
		WHERE d.owner_id IS ?
		ORDER BY d.created_at DESC, d.rowid DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ad designs: %w", err)
	}

	designs := make([]*domain.DesignWithSpace, 0, len(rows))
	for i := range rows {
		designs = append(designs, rows[i].toDomain())
	}
	return designs, nil
}

func (s *AdDesignStore) Update(ctx context.Context, id string, f domain.DesignFields) (*domain.DesignWithSpace, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE ad_designs SET name = ?, background = ?, content = ? WHERE id = ?
	`, f.Name, f.Background, f.Content, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update ad design: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return nil, fmt.Errorf("failed to update ad design %s: %w", id, err)
	}

	return s.mustGet(ctx, id)
}

// Delete removes the design only when it belongs to ownerID. A nil owner
// matches anonymous designs only.
func (s *AdDesignStore) Delete(ctx context.Context, id string, ownerID *string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM ad_designs WHERE id = ? AND owner_id IS ?
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete ad design: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("failed to delete ad design %s: %w", id, err)
	}

	return nil
}

func (s *AdDesignStore) getOne(ctx context.Context, query string, arg any) (*domain.DesignWithSpace, error) {
	var row designRow
	err := s.db.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ad design: %w", err)
	}
	return row.toDomain(), nil
}

func (s *AdDesignStore) mustGet(ctx context.Context, id string) (*domain.DesignWithSpace, error) {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("ad design %s: %w", id, ErrNotFound)
	}
	return d, nil
}
