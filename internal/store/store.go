// Package store persists libraries, searches and bookmarks.
package store

import (
	"context"
	"errors"

	"github.com/kevinmichaelchen/libfinder/internal/models"
)

// ErrNotFound is returned when a row does not exist or is not owned by the
// caller.
var ErrNotFound = errors.New("not found")

// Store is the persistence contract used by the HTTP API. Implementations:
// the gorm-backed Relational store and the SurrealDB store.
type Store interface {
	// InitSchema creates or migrates tables.
	InitSchema(ctx context.Context) error

	// RecordSearch saves the search, upserts each repo as a library keyed by
	// URL and records its rank. It returns library IDs aligned with repos.
	RecordSearch(ctx context.Context, req models.SearchRequest, repos []models.Repo) ([]int64, error)
	RecentSearches(ctx context.Context, limit int) ([]models.Search, error)

	CreateBookmark(ctx context.Context, b models.Bookmark) (models.Bookmark, error)
	// ListBookmarks returns a user's bookmarks with their library joined.
	ListBookmarks(ctx context.Context, userID int64) ([]models.Bookmark, error)
	// DeleteBookmark removes bookmark id if it belongs to userID.
	DeleteBookmark(ctx context.Context, id, userID int64) error

	Close() error
}

// SearchPoints is the score attached to every recorded search.
const SearchPoints = 5
