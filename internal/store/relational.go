package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kevinmichaelchen/libfinder/internal/database"
	"github.com/kevinmichaelchen/libfinder/internal/models"
	"gorm.io/gorm"
)

// Relational is the gorm-backed Store (SQLite or PostgreSQL).
type Relational struct {
	db database.Database
}

func NewRelational(db database.Database) *Relational {
	return &Relational{db: db}
}

func (s *Relational) InitSchema(ctx context.Context) error {
	if err := s.db.Session(ctx).AutoMigrate(
		&LibraryModel{},
		&SearchModel{},
		&SearchResultModel{},
		&BookmarkModel{},
	); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *Relational) RecordSearch(ctx context.Context, req models.SearchRequest, repos []models.Repo) ([]int64, error) {
	ids := make([]int64, len(repos))

	err := s.db.Session(ctx).Transaction(func(tx *gorm.DB) error {
		search := SearchModel{
			UserID:      req.UserID,
			Language:    req.Language,
			Description: req.Description,
			Example:     req.Example,
			Points:      SearchPoints,
		}
		if err := tx.Create(&search).Error; err != nil {
			return fmt.Errorf("creating search: %w", err)
		}

		for i, r := range repos {
			id, err := upsertLibrary(tx, models.LibraryFromRepo(r))
			if err != nil {
				return err
			}
			ids[i] = id

			result := SearchResultModel{SearchID: search.ID, LibraryID: id, Rank: i + 1}
			if err := tx.Create(&result).Error; err != nil {
				return fmt.Errorf("creating search result for %s: %w", r.FullName, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recording search: %w", err)
	}
	return ids, nil
}

func upsertLibrary(tx *gorm.DB, lib models.Library) (int64, error) {
	var existing LibraryModel
	err := tx.Where("url = ?", lib.URL).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		m := LibraryModel{
			Name:        lib.Name,
			Owner:       lib.Owner,
			Description: lib.Description,
			URL:         lib.URL,
			Stars:       lib.Stars,
			Forks:       lib.Forks,
			Topics:      lib.Topics,
			UpdatedAt:   lib.UpdatedAt,
		}
		if err := tx.Create(&m).Error; err != nil {
			return 0, fmt.Errorf("creating library %s: %w", lib.URL, err)
		}
		return m.ID, nil
	case err != nil:
		return 0, fmt.Errorf("finding library %s: %w", lib.URL, err)
	}

	existing.Name = lib.Name
	existing.Owner = lib.Owner
	existing.Description = lib.Description
	existing.Stars = lib.Stars
	existing.Forks = lib.Forks
	existing.Topics = lib.Topics
	existing.UpdatedAt = lib.UpdatedAt
	if err := tx.Save(&existing).Error; err != nil {
		return 0, fmt.Errorf("updating library %s: %w", lib.URL, err)
	}
	return existing.ID, nil
}

func (s *Relational) RecentSearches(ctx context.Context, limit int) ([]models.Search, error) {
	var rows []SearchModel
	err := s.db.Session(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing searches: %w", err)
	}

	out := make([]models.Search, len(rows))
	for i, r := range rows {
		out[i] = searchToDomain(r)
	}
	return out, nil
}

func (s *Relational) CreateBookmark(ctx context.Context, b models.Bookmark) (models.Bookmark, error) {
	tags := b.Tags
	if tags == nil {
		tags = []string{}
	}
	m := BookmarkModel{
		UserID:    b.UserID,
		LibraryID: b.LibraryID,
		Notes:     b.Notes,
		Tags:      tags,
	}
	if err := s.db.Session(ctx).Omit("Library").Create(&m).Error; err != nil {
		return models.Bookmark{}, fmt.Errorf("creating bookmark: %w", err)
	}
	return bookmarkToDomain(m), nil
}

func (s *Relational) ListBookmarks(ctx context.Context, userID int64) ([]models.Bookmark, error) {
	var rows []BookmarkModel
	err := s.db.Session(ctx).
		Preload("Library").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing bookmarks for user %d: %w", userID, err)
	}

	out := make([]models.Bookmark, len(rows))
	for i, r := range rows {
		out[i] = bookmarkToDomain(r)
	}
	return out, nil
}

func (s *Relational) DeleteBookmark(ctx context.Context, id, userID int64) error {
	res := s.db.Session(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&BookmarkModel{})
	if res.Error != nil {
		return fmt.Errorf("deleting bookmark %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("bookmark %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Relational) Close() error {
	return s.db.Close()
}
