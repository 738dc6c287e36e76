package store

import (
	"time"

	"github.com/kevinmichaelchen/libfinder/internal/models"
)

type LibraryModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"not null"`
	Owner       string `gorm:"not null"`
	Description string
	URL         string    `gorm:"not null;uniqueIndex"`
	Stars       int       `gorm:"not null"`
	Forks       int       `gorm:"not null"`
	Topics      []string  `gorm:"serializer:json"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime:false"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (LibraryModel) TableName() string { return "libraries" }

type SearchModel struct {
	ID          int64 `gorm:"primaryKey;autoIncrement"`
	UserID      *int64
	Language    string `gorm:"not null"`
	Description string `gorm:"not null"`
	Example     *string
	Points      int       `gorm:"not null;default:5"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index"`
}

func (SearchModel) TableName() string { return "searches" }

type SearchResultModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	SearchID  int64     `gorm:"not null;index"`
	LibraryID int64     `gorm:"not null"`
	Rank      int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (SearchResultModel) TableName() string { return "search_results" }

type BookmarkModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	UserID    int64 `gorm:"not null;index"`
	LibraryID int64 `gorm:"not null"`
	Notes     *string
	Tags      []string      `gorm:"serializer:json"`
	CreatedAt time.Time     `gorm:"autoCreateTime"`
	Library   *LibraryModel `gorm:"foreignKey:LibraryID"`
}

func (BookmarkModel) TableName() string { return "bookmarks" }

func libraryToDomain(m LibraryModel) models.Library {
	topics := m.Topics
	if topics == nil {
		topics = []string{}
	}
	return models.Library{
		ID:          m.ID,
		Name:        m.Name,
		Owner:       m.Owner,
		Description: m.Description,
		URL:         m.URL,
		Stars:       m.Stars,
		Forks:       m.Forks,
		Topics:      topics,
		UpdatedAt:   m.UpdatedAt,
		CreatedAt:   m.CreatedAt,
	}
}

func searchToDomain(m SearchModel) models.Search {
	return models.Search{
		ID:          m.ID,
		UserID:      m.UserID,
		Language:    m.Language,
		Description: m.Description,
		Example:     m.Example,
		Points:      m.Points,
		CreatedAt:   m.CreatedAt,
	}
}

func bookmarkToDomain(m BookmarkModel) models.Bookmark {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	b := models.Bookmark{
		ID:        m.ID,
		UserID:    m.UserID,
		LibraryID: m.LibraryID,
		Notes:     m.Notes,
		Tags:      tags,
		CreatedAt: m.CreatedAt,
	}
	if m.Library != nil {
		lib := libraryToDomain(*m.Library)
		b.Library = &lib
	}
	return b
}
