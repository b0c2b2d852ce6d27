package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vbonduro/adbuilder/internal/domain"
)

type AdSpaceStore struct {
	db *sqlx.DB
}

func NewAdSpaceStore(db *sql.DB) *AdSpaceStore {
	return &AdSpaceStore{db: newDB(db)}
}

type spaceRow struct {
	ID          string               `db:"id"`
	OwnerID     *string              `db:"owner_id"`
	Title       string               `db:"title"`
	Description string               `db:"description"`
	Content     domain.StoredContent `db:"content"`
	Theme       domain.Theme         `db:"theme"`
	CreatedAt   int64                `db:"created_at"`
}

func (r *spaceRow) toDomain() *domain.AdSpace {
	return &domain.AdSpace{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		Description: r.Description,
		Content:     r.Content,
		Theme:       r.Theme,
		CreatedAt:   fromStamp(r.CreatedAt),
	}
}

func (s *AdSpaceStore) Create(ctx context.Context, ownerID *string, f domain.SpaceFields) (*domain.AdSpace, error) {
	id := newID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ad_spaces (id, owner_id, title, description, content, theme, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, ownerID, f.Title, f.Description, f.Content, f.Theme, now())
	if err != nil {
		return nil, fmt.Errorf("failed to create ad space: %w", err)
	}

	return s.mustGet(ctx, id)
}

func (s *AdSpaceStore) GetByID(ctx context.Context, id string) (*domain.AdSpace, error) {
	var row spaceRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, owner_id, title, description, content, theme, created_at
		FROM ad_spaces WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ad space: %w", err)
	}

	return row.toDomain(), nil
}

func (s *AdSpaceStore) Update(ctx context.Context, id string, f domain.SpaceFields) (*domain.AdSpace, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE ad_spaces SET title = ?, description = ?, content = ?, theme = ? WHERE id = ?
	`, f.Title, f.Description, f.Content, f.Theme, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update ad space: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return nil, fmt.Errorf("failed to update ad space %s: %w", id, err)
	}

	return s.mustGet(ctx, id)
}

func (s *AdSpaceStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM ad_spaces WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ad space: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("failed to delete ad space %s: %w", id, err)
	}

	return nil
}

func (s *AdSpaceStore) mustGet(ctx context.Context, id string) (*domain.AdSpace, error) {
	space, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if space == nil {
		return nil, fmt.Errorf("ad space %s: %w", id, ErrNotFound)
	}
	return space, nil
}
