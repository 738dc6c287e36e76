package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kevinmichaelchen/libfinder/internal/models"
)

const DefaultBaseURL = "https://api.github.com"

// Client is a thin wrapper around the GitHub REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: http.DefaultClient,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// SearchRepositories runs a repository search sorted by stars descending and
// returns at most perPage results.
func (c *Client) SearchRepositories(ctx context.Context, query string, perPage int) ([]models.Repo, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", "stars")
	params.Set("order", "desc")
	params.Set("per_page", strconv.Itoa(perPage))

	body, err := c.get(ctx, "/search/repositories?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var data searchResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	repos := make([]models.Repo, 0, len(data.Items))
	for _, item := range data.Items {
		repos = append(repos, itemToRepo(item))
	}
	return repos, nil
}

// Readme returns the decoded README of owner/name.
func (c *Client) Readme(ctx context.Context, owner, name string) (string, error) {
	path := fmt.Sprintf("/repos/%s/%s/readme", url.PathEscape(owner), url.PathEscape(name))
	body, err := c.get(ctx, path)
	if err != nil {
		return "", err
	}

	var data readmeResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("parsing readme response for %s/%s: %w", owner, name, err)
	}
	if data.Encoding != "" && data.Encoding != "base64" {
		return "", fmt.Errorf("unsupported readme encoding %q for %s/%s", data.Encoding, owner, name)
	}

	// GitHub wraps base64 content at 60 columns.
	raw := strings.NewReplacer("\n", "", "\r", "").Replace(data.Content)
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("decoding readme for %s/%s: %w", owner, name, err)
	}
	return string(decoded), nil
}

// --- internal ---

type searchResponse struct {
	TotalCount int        `json:"total_count"`
	Items      []repoItem `json:"items"`
}

type repoItem struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
	Description     *string   `json:"description"`
	HTMLURL         string    `json:"html_url"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	Topics          []string  `json:"topics"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type readmeResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp, respBody)
	}
	return respBody, nil
}

func itemToRepo(it repoItem) models.Repo {
	r := models.Repo{
		Owner:     it.Owner.Login,
		Name:      it.Name,
		FullName:  it.FullName,
		URL:       it.HTMLURL,
		Stars:     it.StargazersCount,
		Forks:     it.ForksCount,
		UpdatedAt: it.UpdatedAt,
	}
	if r.FullName == "" {
		r.FullName = it.Owner.Login + "/" + it.Name
	}
	if it.Description != nil {
		r.Description = *it.Description
	}

	topics := it.Topics
	if topics == nil {
		topics = []string{}
	}
	r.Topics = topics
	return r
}
