package github

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{
  "total_count": 2,
  "items": [
    {
      "name": "pyyaml",
      "full_name": "yaml/pyyaml",
      "owner": {"login": "yaml"},
      "description": "Canonical source repository for PyYAML",
      "html_url": "https://github.com/yaml/pyyaml",
      "stargazers_count": 2500,
      "forks_count": 500,
      "topics": ["yaml", "python"],
      "updated_at": "2024-05-01T10:00:00Z"
    },
    {
      "name": "ruamel",
      "full_name": "",
      "owner": {"login": "someone"},
      "description": null,
      "html_url": "https://github.com/someone/ruamel",
      "stargazers_count": 80,
      "forks_count": 3,
      "updated_at": "2023-01-01T00:00:00Z"
    }
  ]
}`

func TestSearchRepositories(t *testing.T) {
	var gotQuery, gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/repositories", r.URL.Path)
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(searchBody))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "tok")
	repos, err := c.SearchRepositories(context.Background(), "language:python yaml stars:>50", 5)
	require.NoError(t, err)
	require.Len(t, repos, 2)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Contains(t, gotQuery, "per_page=5")
	assert.Contains(t, gotQuery, "sort=stars")
	assert.Contains(t, gotQuery, "order=desc")

	assert.Equal(t, "yaml", repos[0].Owner)
	assert.Equal(t, "yaml/pyyaml", repos[0].FullName)
	assert.Equal(t, 2500, repos[0].Stars)
	assert.Equal(t, 500, repos[0].Forks)
	assert.Equal(t, []string{"yaml", "python"}, repos[0].Topics)
	assert.Equal(t, 2024, repos[0].UpdatedAt.Year())

	assert.Equal(t, "someone/ruamel", repos[1].FullName)
	assert.Equal(t, "", repos[1].Description)
	assert.Equal(t, []string{}, repos[1].Topics)
}

func TestSearchRepositories_NoTokenNoAuthHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"total_count":0,"items":[]}`))
	}))
	defer ts.Close()

	repos, err := NewClient(ts.URL, "").SearchRepositories(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Empty(t, repos)
}

func TestSearchRepositories_RateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded","documentation_url":"https://docs.github.com"}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, "").SearchRepositories(context.Background(), "q", 5)
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.False(t, IsInvalidQuery(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "0", apiErr.RateLimitRemaining)
	assert.Equal(t, "API rate limit exceeded", apiErr.Message)
	assert.Equal(t, "https://docs.github.com", apiErr.Body["documentation_url"])
}

func TestSearchRepositories_InvalidQuery(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Validation Failed","errors":[{"code":"invalid"}]}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, "").SearchRepositories(context.Background(), "q", 5)
	require.Error(t, err)
	assert.True(t, IsInvalidQuery(err))
	assert.False(t, IsRateLimited(err))
	assert.Equal(t, "GitHub API returned 422: Validation Failed", err.Error())
}

func TestSearchRepositories_NonJSONError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, "").SearchRepositories(context.Background(), "q", 5)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Nil(t, apiErr.Body)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestWithHTTPClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer ts.Close()
	defer close(release)

	c := NewClient(ts.URL, "").WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := c.SearchRepositories(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestReadme(t *testing.T) {
	text := "# PyYAML\n\nA YAML parser and emitter for Python.\n"
	enc := base64.StdEncoding.EncodeToString([]byte(text))
	// Wrap the way GitHub does.
	wrapped := enc[:10] + "\n" + enc[10:]

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/yaml/pyyaml/readme", r.URL.Path)
		_, _ = w.Write([]byte(`{"encoding":"base64","content":"` + jsonEscapeNewlines(wrapped) + `"}`))
	}))
	defer ts.Close()

	got, err := NewClient(ts.URL, "").Readme(context.Background(), "yaml", "pyyaml")
	require.NoError(t, err)
	assert.Equal(t, text, got)
}

func TestReadme_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, "").Readme(context.Background(), "a", "b")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestReadme_BadEncoding(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"encoding":"base64","content":"%%%not-base64"}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, "").Readme(context.Background(), "a", "b")
	assert.Error(t, err)
}

func jsonEscapeNewlines(s string) string {
	out := make([]byte, 0, len(s)+2)
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, '\\', 'n')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}
