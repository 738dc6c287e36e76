package models

import "time"

// SearchRequest is one user query against the pipeline.
type SearchRequest struct {
	Language    string  `json:"language"`
	Description string  `json:"description"`
	Example     *string `json:"example,omitempty"`
	UserID      *int64  `json:"userId,omitempty"`
}

// ExampleText returns the example library or "".
func (r SearchRequest) ExampleText() string {
	if r.Example == nil {
		return ""
	}
	return *r.Example
}

// Library is a persisted repository, keyed by URL.
type Library struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Owner       string    `json:"owner"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	Topics      []string  `json:"topics"`
	UpdatedAt   time.Time `json:"updatedAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LibraryFromRepo copies the persisted fields of r.
func LibraryFromRepo(r Repo) Library {
	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}
	return Library{
		Name:        r.Name,
		Owner:       r.Owner,
		Description: r.Description,
		URL:         r.URL,
		Stars:       r.Stars,
		Forks:       r.Forks,
		Topics:      topics,
		UpdatedAt:   r.UpdatedAt,
	}
}

type Bookmark struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	LibraryID int64     `json:"libraryId"`
	Notes     *string   `json:"notes"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	Library   *Library  `json:"library"`
}

// Search is a recorded query.
type Search struct {
	ID          int64     `json:"id"`
	UserID      *int64    `json:"userId"`
	Language    string    `json:"language"`
	Description string    `json:"description"`
	Example     *string   `json:"example"`
	Points      int       `json:"points"`
	CreatedAt   time.Time `json:"createdAt"`
}
