package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kevinmichaelchen/libfinder/internal/github"
	"github.com/kevinmichaelchen/libfinder/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	perPage []int
	// byTerm maps a substring of the query to its result.
	byTerm map[string][]models.Repo
	errs   map[string]error
}

func (f *fakeSearcher) SearchRepositories(_ context.Context, query string, perPage int) ([]models.Repo, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.perPage = append(f.perPage, perPage)
	f.mu.Unlock()

	for term, err := range f.errs {
		if strings.Contains(query, term) {
			return nil, err
		}
	}
	for term, repos := range f.byTerm {
		if strings.Contains(query, term) {
			return repos, nil
		}
	}
	return nil, nil
}

type fakeReadmes struct {
	fail map[string]bool
}

func (f fakeReadmes) Readme(_ context.Context, owner, name string) (string, error) {
	if f.fail[owner+"/"+name] {
		return "", errors.New("readme not found")
	}
	return "# " + name, nil
}

type fakeTerms struct {
	terms []string
	calls int
}

func (f *fakeTerms) GenerateSearchTerms(_ context.Context, _, description string) []string {
	f.calls++
	if f.terms == nil {
		return []string{description}
	}
	return f.terms
}

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls int
	fail  map[string]bool
}

func (f *fakeAnalyzer) Analyze(_ context.Context, name, _, readme string) (*models.Analysis, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail[name] {
		return nil, errors.New("malformed JSON")
	}
	return &models.Analysis{IsOpenSource: true, IntegrationComplexity: 2, ComplexityReason: readme}, nil
}

func newTestPipeline(s RepoSearcher, r ReadmeFetcher, terms TermGenerator, a Analyzer, expand bool) *Pipeline {
	return New(Deps{Searcher: s, Readmes: r, Terms: terms, Analyzer: a}, Options{ExpandTerms: expand, Limit: 4})
}

func req(language, description string) models.SearchRequest {
	return models.SearchRequest{Language: language, Description: description}
}

func TestSearch_MergesRanksAndEnriches(t *testing.T) {
	defer goleak.VerifyNone(t)

	a, b, c := repo("o", "a", 30), repo("o", "b", 20), repo("o", "c", 10)
	s := &fakeSearcher{byTerm: map[string][]models.Repo{
		"first":  {a, b},
		"second": {b, c},
	}}
	terms := &fakeTerms{terms: []string{"first", "second"}}
	an := &fakeAnalyzer{}

	got, err := newTestPipeline(s, fakeReadmes{}, terms, an, true).Search(context.Background(), req("go", "first"))
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, []string{a.URL, b.URL, c.URL}, []string{got[0].URL, got[1].URL, got[2].URL})
	for _, r := range got {
		require.NotNil(t, r.Analysis)
		assert.Equal(t, "# "+r.Name, r.Analysis.ComplexityReason)
	}
	assert.Equal(t, 3, an.calls)
	assert.Equal(t, []int{5, 5}, s.perPage)
	for _, q := range s.queries {
		assert.Contains(t, q, "language:go")
		assert.Contains(t, q, "stars:>50")
	}
}

func TestSearch_EmptyResultsSkipEnrichment(t *testing.T) {
	s := &fakeSearcher{}
	an := &fakeAnalyzer{}

	got, err := newTestPipeline(s, fakeReadmes{}, &fakeTerms{}, an, true).Search(context.Background(), req("go", "nothing"))
	require.NoError(t, err)

	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 0, an.calls)
}

func TestSearch_EnrichmentFailureKeepsRepo(t *testing.T) {
	a, b, c := repo("o", "a", 30), repo("o", "b", 20), repo("o", "c", 10)
	s := &fakeSearcher{byTerm: map[string][]models.Repo{"libs": {a, b, c}}}
	readmes := fakeReadmes{fail: map[string]bool{"o/a": true}}
	an := &fakeAnalyzer{fail: map[string]bool{"c": true}}

	got, err := newTestPipeline(s, readmes, &fakeTerms{}, an, true).Search(context.Background(), req("go", "libs"))
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Nil(t, got[0].Analysis, "readme failure omits analysis")
	assert.NotNil(t, got[1].Analysis, "sibling unaffected")
	assert.Nil(t, got[2].Analysis, "analysis failure omits analysis")
}

func TestSearch_PartialFanOutFailureDegrades(t *testing.T) {
	a := repo("o", "a", 30)
	s := &fakeSearcher{
		byTerm: map[string][]models.Repo{"good": {a}},
		errs:   map[string]error{"bad": &github.APIError{StatusCode: 403, Message: "rate limited"}},
	}
	terms := &fakeTerms{terms: []string{"bad", "good"}}

	got, err := newTestPipeline(s, fakeReadmes{}, terms, &fakeAnalyzer{}, true).Search(context.Background(), req("go", "good"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.URL, got[0].URL)
	assert.Len(t, s.queries, 2, "all terms are attempted")
}

func TestSearch_AllTermsFailingDegradeToEmpty(t *testing.T) {
	defer goleak.VerifyNone(t)

	for name, searchErr := range map[string]error{
		"transient":    errors.New("dial tcp: connection refused"),
		"rate limited": &github.APIError{StatusCode: 403, Message: "API rate limit exceeded", RateLimitRemaining: "0"},
	} {
		t.Run(name, func(t *testing.T) {
			s := &fakeSearcher{errs: map[string]error{"": searchErr}}
			terms := &fakeTerms{terms: []string{"one", "two"}}
			an := &fakeAnalyzer{}

			got, err := newTestPipeline(s, fakeReadmes{}, terms, an, true).Search(context.Background(), req("go", "one"))
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
			assert.Len(t, s.queries, 2)
			assert.Equal(t, 0, an.calls)
		})
	}
}

func TestSearch_SingleQueryFailureSurfaces(t *testing.T) {
	rateLimited := &github.APIError{StatusCode: 403, Message: "API rate limit exceeded", RateLimitRemaining: "0"}
	s := &fakeSearcher{errs: map[string]error{"": rateLimited}}
	an := &fakeAnalyzer{}

	_, err := newTestPipeline(s, fakeReadmes{}, &fakeTerms{}, an, false).Search(context.Background(), req("go", "router"))
	require.Error(t, err)
	assert.True(t, github.IsRateLimited(err))
	assert.Len(t, s.queries, 1)
	assert.Equal(t, 0, an.calls)
}

func TestSearch_SingleQueryMode(t *testing.T) {
	s := &fakeSearcher{}
	terms := &fakeTerms{terms: []string{"ignored"}}

	_, err := newTestPipeline(s, fakeReadmes{}, terms, &fakeAnalyzer{}, false).Search(context.Background(), req("python", "parse yaml"))
	require.NoError(t, err)

	assert.Equal(t, 0, terms.calls)
	require.Len(t, s.queries, 1)
	assert.Equal(t, "language:python parse yaml stars:>50", s.queries[0])
	assert.Equal(t, []int{10}, s.perPage)
}

func TestSearch_ExamplePassedToEveryQuery(t *testing.T) {
	s := &fakeSearcher{}
	terms := &fakeTerms{terms: []string{"yaml parser", "parse yaml files"}}
	example := "pyyaml"

	r := models.SearchRequest{Language: "python", Description: "parse yaml files", Example: &example}
	_, err := newTestPipeline(s, fakeReadmes{}, terms, &fakeAnalyzer{}, true).Search(context.Background(), r)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"language:python yaml parser pyyaml in:name,description,readme stars:>50",
		"language:python parse yaml files pyyaml in:name,description,readme stars:>50",
	}, s.queries)
}

func TestSearch_Validation(t *testing.T) {
	s := &fakeSearcher{}
	terms := &fakeTerms{}
	p := newTestPipeline(s, fakeReadmes{}, terms, &fakeAnalyzer{}, true)

	_, err := p.Search(context.Background(), req("", "x"))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = p.Search(context.Background(), req("go", ""))
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, s.queries)
	assert.Equal(t, 0, terms.calls)
}
