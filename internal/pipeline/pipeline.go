package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kevinmichaelchen/libfinder/internal/github"
	"github.com/kevinmichaelchen/libfinder/internal/models"
	"go.uber.org/zap"
)

const (
	// Per-term page size when the description is expanded into several terms.
	expandedPerPage = 5
	// Page size for single-query mode.
	singlePerPage = 10
)

// ErrValidation marks a request rejected before any upstream call.
var ErrValidation = errors.New("invalid search request")

type RepoSearcher interface {
	SearchRepositories(ctx context.Context, query string, perPage int) ([]models.Repo, error)
}

type ReadmeFetcher interface {
	Readme(ctx context.Context, owner, name string) (string, error)
}

// TermGenerator never fails; it degrades to the description on its own.
type TermGenerator interface {
	GenerateSearchTerms(ctx context.Context, language, description string) []string
}

type Analyzer interface {
	Analyze(ctx context.Context, name, description, readme string) (*models.Analysis, error)
}

type Deps struct {
	Searcher RepoSearcher
	Readmes  ReadmeFetcher
	Terms    TermGenerator
	Analyzer Analyzer
	Logger   *zap.Logger
}

type Options struct {
	// ExpandTerms enables LLM term generation. When false the raw
	// description is the only term.
	ExpandTerms bool
	// Timeout bounds each upstream call. Zero means no timeout.
	Timeout time.Duration
	// Limit bounds concurrent calls per stage. Zero means unbounded.
	Limit int
}

type Pipeline struct {
	deps Deps
	opts Options
	log  *zap.Logger
}

func New(deps Deps, opts Options) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{deps: deps, opts: opts, log: log}
}

// Search runs terms -> fan-out -> dedup/rank -> enrichment.
func (p *Pipeline) Search(ctx context.Context, req models.SearchRequest) ([]models.AnalyzedRepo, error) {
	if req.Language == "" || req.Description == "" {
		return nil, fmt.Errorf("%w: language and description are required", ErrValidation)
	}

	terms := []string{req.Description}
	perPage := singlePerPage
	if p.opts.ExpandTerms {
		terms = p.generateTerms(ctx, req)
		perPage = expandedPerPage
	}
	p.log.Info("search terms generated", zap.Strings("terms", terms))

	lists, err := p.fanOut(ctx, terms, req.Language, req.ExampleText(), perPage)
	if err != nil && !p.opts.ExpandTerms {
		return nil, err
	}

	ranked := DedupeAndRank(lists)
	if len(ranked) == 0 {
		return []models.AnalyzedRepo{}, nil
	}

	return p.Enrich(ctx, ranked), nil
}

func (p *Pipeline) generateTerms(ctx context.Context, req models.SearchRequest) []string {
	callCtx := ctx
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}
	terms := p.deps.Terms.GenerateSearchTerms(callCtx, req.Language, req.Description)
	if len(terms) == 0 {
		return []string{req.Description}
	}
	return terms
}

// fanOut searches every term in parallel. Failed terms contribute nothing.
// The first failure is also returned when no term succeeded; only
// single-query mode surfaces it.
func (p *Pipeline) fanOut(ctx context.Context, terms []string, language, example string, perPage int) ([][]models.Repo, error) {
	outcomes := Settle(ctx, len(terms), p.opts.Limit, p.opts.Timeout,
		func(ctx context.Context, i int) ([]models.Repo, error) {
			query := github.BuildSearchQuery(language, terms[i], example)
			p.log.Debug("searching repositories", zap.String("query", query))
			return p.deps.Searcher.SearchRepositories(ctx, query, perPage)
		})

	lists := make([][]models.Repo, len(outcomes))
	var firstErr error
	succeeded := 0
	for i, o := range outcomes {
		if !o.OK() {
			p.log.Warn("repository search failed",
				zap.String("term", terms[i]), zap.Error(o.Err))
			if firstErr == nil {
				firstErr = o.Err
			}
			continue
		}
		succeeded++
		lists[i] = o.Value
	}

	if succeeded == 0 && firstErr != nil {
		return nil, fmt.Errorf("searching repositories: %w", firstErr)
	}
	return lists, nil
}

// Enrich analyzes every repo in parallel. A repo whose README fetch or
// analysis fails is kept without an analysis.
func (p *Pipeline) Enrich(ctx context.Context, repos []models.Repo) []models.AnalyzedRepo {
	outcomes := Settle(ctx, len(repos), p.opts.Limit, p.opts.Timeout,
		func(ctx context.Context, i int) (*models.Analysis, error) {
			r := repos[i]
			readme, err := p.deps.Readmes.Readme(ctx, r.Owner, r.Name)
			if err != nil {
				return nil, fmt.Errorf("fetching readme: %w", err)
			}
			return p.deps.Analyzer.Analyze(ctx, r.Name, r.Description, readme)
		})

	out := make([]models.AnalyzedRepo, len(repos))
	for i, o := range outcomes {
		out[i] = models.AnalyzedRepo{Repo: repos[i]}
		if !o.OK() {
			p.log.Warn("repository analysis failed",
				zap.String("repo", repos[i].FullName), zap.Error(o.Err))
			continue
		}
		out[i].Analysis = o.Value
	}
	return out
}
