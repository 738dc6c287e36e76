package models

import (
	"strings"
	"time"
)

// Repo is a repository record as returned by the search provider.
type Repo struct {
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	FullName    string    `json:"fullName"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	Topics      []string  `json:"topics"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Key is the dedup identity of a repo: its URL, lower-cased, without a
// trailing slash.
func (r Repo) Key() string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(r.URL)), "/")
}

type PricingType string

const (
	PricingFree     PricingType = "free"
	PricingPaid     PricingType = "paid"
	PricingFreemium PricingType = "freemium"
)

func (p PricingType) Valid() bool {
	switch p {
	case PricingFree, PricingPaid, PricingFreemium:
		return true
	}
	return false
}

type Pricing struct {
	Type          PricingType `json:"type"`
	StartingPrice *string     `json:"startingPrice,omitempty"`
}

// Analysis is the LLM verdict on a repository.
type Analysis struct {
	IsOpenSource          bool     `json:"isOpenSource"`
	Pricing               *Pricing `json:"pricing,omitempty"`
	IntegrationComplexity int      `json:"integrationComplexity"`
	ComplexityReason      string   `json:"complexityReason"`
}

// AnalyzedRepo is a ranked search result. Analysis is nil when enrichment
// failed for this repo.
type AnalyzedRepo struct {
	Repo
	Analysis  *Analysis `json:"analysis,omitempty"`
	LibraryID *int64    `json:"libraryId,omitempty"`
}
