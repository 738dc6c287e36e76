package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kevinmichaelchen/libfinder/internal/config"
	"github.com/kevinmichaelchen/libfinder/internal/models"
	"github.com/kevinmichaelchen/libfinder/internal/store"
	sdk "github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Client implements store.Store on SurrealDB. Records use integer ids drawn
// from per-table counters so the HTTP API keeps numeric identifiers.
type Client struct {
	db *sdk.DB
}

var _ store.Store = (*Client)(nil)

func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	db, err := sdk.FromEndpointURLString(ctx, cfg.SurrealURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, sdk.Auth{
		Namespace: cfg.SurrealNS,
		Database:  cfg.SurrealDB,
		Username:  cfg.SurrealUser,
		Password:  cfg.SurrealPass,
	}); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("signing in: %w", err)
	}

	if err := db.Use(ctx, cfg.SurrealNS, cfg.SurrealDB); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("selecting ns/db: %w", err)
	}

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close(context.Background())
}

func (c *Client) InitSchema(ctx context.Context) error {
	schema := `
DEFINE TABLE IF NOT EXISTS library SCHEMAFULL;
DEFINE FIELD IF NOT EXISTS lid         ON TABLE library TYPE int;
DEFINE FIELD IF NOT EXISTS name        ON TABLE library TYPE string;
DEFINE FIELD IF NOT EXISTS owner       ON TABLE library TYPE string;
DEFINE FIELD IF NOT EXISTS description ON TABLE library TYPE string;
DEFINE FIELD IF NOT EXISTS url         ON TABLE library TYPE string;
DEFINE FIELD IF NOT EXISTS stars       ON TABLE library TYPE int;
DEFINE FIELD IF NOT EXISTS forks       ON TABLE library TYPE int;
DEFINE FIELD IF NOT EXISTS topics      ON TABLE library TYPE array<string>;
DEFINE FIELD IF NOT EXISTS updated_at  ON TABLE library TYPE datetime;
DEFINE FIELD IF NOT EXISTS created_at  ON TABLE library TYPE datetime;
DEFINE INDEX IF NOT EXISTS idx_library_url ON TABLE library FIELDS url UNIQUE;
DEFINE INDEX IF NOT EXISTS idx_library_lid ON TABLE library FIELDS lid UNIQUE;

DEFINE TABLE IF NOT EXISTS search SCHEMAFULL;
DEFINE FIELD IF NOT EXISTS sid         ON TABLE search TYPE int;
DEFINE FIELD IF NOT EXISTS user_id     ON TABLE search TYPE option<int>;
DEFINE FIELD IF NOT EXISTS language    ON TABLE search TYPE string;
DEFINE FIELD IF NOT EXISTS description ON TABLE search TYPE string;
DEFINE FIELD IF NOT EXISTS example     ON TABLE search TYPE option<string>;
DEFINE FIELD IF NOT EXISTS points      ON TABLE search TYPE int;
DEFINE FIELD IF NOT EXISTS created_at  ON TABLE search TYPE datetime;

DEFINE TABLE IF NOT EXISTS search_result SCHEMAFULL;
DEFINE FIELD IF NOT EXISTS search_id   ON TABLE search_result TYPE int;
DEFINE FIELD IF NOT EXISTS library_id  ON TABLE search_result TYPE int;
DEFINE FIELD IF NOT EXISTS rank        ON TABLE search_result TYPE int;
DEFINE FIELD IF NOT EXISTS created_at  ON TABLE search_result TYPE datetime;

DEFINE TABLE IF NOT EXISTS bookmark SCHEMAFULL;
DEFINE FIELD IF NOT EXISTS bid         ON TABLE bookmark TYPE int;
DEFINE FIELD IF NOT EXISTS user_id     ON TABLE bookmark TYPE int;
DEFINE FIELD IF NOT EXISTS library_id  ON TABLE bookmark TYPE int;
DEFINE FIELD IF NOT EXISTS notes       ON TABLE bookmark TYPE option<string>;
DEFINE FIELD IF NOT EXISTS tags        ON TABLE bookmark TYPE array<string>;
DEFINE FIELD IF NOT EXISTS created_at  ON TABLE bookmark TYPE datetime;
DEFINE INDEX IF NOT EXISTS idx_bookmark_user ON TABLE bookmark FIELDS user_id;

DEFINE TABLE IF NOT EXISTS counter SCHEMALESS;
`
	_, err := sdk.Query[any](ctx, c.db, schema, nil)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

type counterRow struct {
	Value int64 `json:"value"`
}

// nextID increments and returns the counter for table.
func (c *Client) nextID(ctx context.Context, table string) (int64, error) {
	results, err := sdk.Query[[]counterRow](ctx, c.db,
		`UPSERT type::thing("counter", $table) SET value = (value OR 0) + 1 RETURN AFTER`,
		map[string]any{"table": table})
	if err != nil {
		return 0, fmt.Errorf("allocating %s id: %w", table, err)
	}
	if len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, fmt.Errorf("allocating %s id: empty result", table)
	}
	return (*results)[0].Result[0].Value, nil
}

type libraryRow struct {
	LID         int64                        `json:"lid"`
	Name        string                       `json:"name"`
	Owner       string                       `json:"owner"`
	Description string                       `json:"description"`
	URL         string                       `json:"url"`
	Stars       int                          `json:"stars"`
	Forks       int                          `json:"forks"`
	Topics      []string                     `json:"topics"`
	UpdatedAt   surrealmodels.CustomDateTime `json:"updated_at"`
	CreatedAt   surrealmodels.CustomDateTime `json:"created_at"`
}

func (r libraryRow) toDomain() models.Library {
	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}
	return models.Library{
		ID:          r.LID,
		Name:        r.Name,
		Owner:       r.Owner,
		Description: r.Description,
		URL:         r.URL,
		Stars:       r.Stars,
		Forks:       r.Forks,
		Topics:      topics,
		UpdatedAt:   r.UpdatedAt.Time,
		CreatedAt:   r.CreatedAt.Time,
	}
}

// RecordSearch allocates ids first, then writes the search, its libraries
// and its ranks in one transaction. A failed transaction can leave unused
// counter values behind but no partial rows.
func (c *Client) RecordSearch(ctx context.Context, req models.SearchRequest, repos []models.Repo) ([]int64, error) {
	sid, err := c.nextID(ctx, "search")
	if err != nil {
		return nil, err
	}

	// Build data map with only non-nil optional fields to avoid
	// CBOR NULL vs SurrealDB NONE mismatch.
	search := map[string]any{
		"sid":         sid,
		"language":    req.Language,
		"description": req.Description,
		"points":      store.SearchPoints,
		"created_at":  now(),
	}
	if req.UserID != nil {
		search["user_id"] = *req.UserID
	}
	if req.Example != nil {
		search["example"] = *req.Example
	}
	vars := map[string]any{"sid": sid, "search": search}

	ids := make([]int64, len(repos))
	for i, r := range repos {
		lib := models.LibraryFromRepo(r)
		data := map[string]any{
			"name":        lib.Name,
			"owner":       lib.Owner,
			"description": lib.Description,
			"url":         lib.URL,
			"stars":       lib.Stars,
			"forks":       lib.Forks,
			"topics":      lib.Topics,
			"updated_at":  surrealmodels.CustomDateTime{Time: lib.UpdatedAt.UTC()},
		}

		lid, found, err := c.libraryID(ctx, lib.URL)
		if err != nil {
			return nil, err
		}
		if !found {
			if lid, err = c.nextID(ctx, "library"); err != nil {
				return nil, err
			}
			data["lid"] = lid
			data["created_at"] = now()
		}
		ids[i] = lid

		vars[fmt.Sprintf("lid_%d", i)] = lid
		vars[fmt.Sprintf("lib_%d", i)] = data
		vars[fmt.Sprintf("res_%d", i)] = map[string]any{
			"search_id":  sid,
			"library_id": lid,
			"rank":       i + 1,
			"created_at": now(),
		}
	}

	results, err := sdk.Query[any](ctx, c.db, recordSearchQuery(len(repos)), vars)
	if err != nil {
		return nil, fmt.Errorf("recording search: %w", err)
	}
	for _, r := range *results {
		if r.Status != "OK" {
			return nil, fmt.Errorf("recording search: %s: %v", r.Status, r.Result)
		}
	}
	return ids, nil
}

// recordSearchQuery is the transaction written by RecordSearch for n
// libraries. Statement i uses $lid_i, $lib_i and $res_i.
func recordSearchQuery(n int) string {
	var b strings.Builder
	b.WriteString("BEGIN TRANSACTION;\n")
	b.WriteString(`CREATE type::thing("search", $sid) CONTENT $search;` + "\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `UPSERT type::thing("library", $lid_%d) MERGE $lib_%d;`+"\n", i, i)
		fmt.Fprintf(&b, `CREATE search_result CONTENT $res_%d;`+"\n", i)
	}
	b.WriteString("COMMIT TRANSACTION;")
	return b.String()
}

// libraryID looks up the lid of the library stored under url.
func (c *Client) libraryID(ctx context.Context, url string) (int64, bool, error) {
	existing, err := sdk.Query[[]libraryRow](ctx, c.db,
		`SELECT * FROM library WHERE url = $url LIMIT 1`,
		map[string]any{"url": url})
	if err != nil {
		return 0, false, fmt.Errorf("finding library %s: %w", url, err)
	}
	if len(*existing) == 0 || len((*existing)[0].Result) == 0 {
		return 0, false, nil
	}
	return (*existing)[0].Result[0].LID, true, nil
}

type searchRow struct {
	SID         int64                        `json:"sid"`
	UserID      *int64                       `json:"user_id"`
	Language    string                       `json:"language"`
	Description string                       `json:"description"`
	Example     *string                      `json:"example"`
	Points      int                          `json:"points"`
	CreatedAt   surrealmodels.CustomDateTime `json:"created_at"`
}

func (c *Client) RecentSearches(ctx context.Context, limit int) ([]models.Search, error) {
	results, err := sdk.Query[[]searchRow](ctx, c.db,
		fmt.Sprintf(`SELECT * FROM search ORDER BY created_at DESC, sid DESC LIMIT %d`, limit), nil)
	if err != nil {
		return nil, fmt.Errorf("listing searches: %w", err)
	}
	out := []models.Search{}
	if len(*results) == 0 {
		return out, nil
	}
	for _, r := range (*results)[0].Result {
		out = append(out, models.Search{
			ID:          r.SID,
			UserID:      r.UserID,
			Language:    r.Language,
			Description: r.Description,
			Example:     r.Example,
			Points:      r.Points,
			CreatedAt:   r.CreatedAt.Time,
		})
	}
	return out, nil
}

type bookmarkRow struct {
	BID       int64                        `json:"bid"`
	UserID    int64                        `json:"user_id"`
	LibraryID int64                        `json:"library_id"`
	Notes     *string                      `json:"notes"`
	Tags      []string                     `json:"tags"`
	CreatedAt surrealmodels.CustomDateTime `json:"created_at"`
}

func (r bookmarkRow) toDomain() models.Bookmark {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return models.Bookmark{
		ID:        r.BID,
		UserID:    r.UserID,
		LibraryID: r.LibraryID,
		Notes:     r.Notes,
		Tags:      tags,
		CreatedAt: r.CreatedAt.Time,
	}
}

func (c *Client) CreateBookmark(ctx context.Context, b models.Bookmark) (models.Bookmark, error) {
	bid, err := c.nextID(ctx, "bookmark")
	if err != nil {
		return models.Bookmark{}, err
	}

	tags := b.Tags
	if tags == nil {
		tags = []string{}
	}
	row := bookmarkRow{
		BID:       bid,
		UserID:    b.UserID,
		LibraryID: b.LibraryID,
		Notes:     b.Notes,
		Tags:      tags,
		CreatedAt: now(),
	}
	data := map[string]any{
		"bid":        row.BID,
		"user_id":    row.UserID,
		"library_id": row.LibraryID,
		"tags":       row.Tags,
		"created_at": row.CreatedAt,
	}
	if row.Notes != nil {
		data["notes"] = *row.Notes
	}

	if _, err := sdk.Query[any](ctx, c.db,
		`CREATE type::thing("bookmark", $id) CONTENT $data`,
		map[string]any{"id": bid, "data": data}); err != nil {
		return models.Bookmark{}, fmt.Errorf("creating bookmark: %w", err)
	}
	return row.toDomain(), nil
}

func (c *Client) ListBookmarks(ctx context.Context, userID int64) ([]models.Bookmark, error) {
	results, err := sdk.Query[[]bookmarkRow](ctx, c.db,
		`SELECT * FROM bookmark WHERE user_id = $user_id ORDER BY bid ASC`,
		map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("listing bookmarks for user %d: %w", userID, err)
	}
	out := []models.Bookmark{}
	if len(*results) == 0 || len((*results)[0].Result) == 0 {
		return out, nil
	}

	rows := (*results)[0].Result
	libIDs := make([]int64, 0, len(rows))
	for _, r := range rows {
		libIDs = append(libIDs, r.LibraryID)
	}
	libs, err := sdk.Query[[]libraryRow](ctx, c.db,
		`SELECT * FROM library WHERE lid IN $ids`,
		map[string]any{"ids": libIDs})
	if err != nil {
		return nil, fmt.Errorf("joining libraries for user %d: %w", userID, err)
	}
	byID := map[int64]models.Library{}
	if len(*libs) > 0 {
		for _, l := range (*libs)[0].Result {
			byID[l.LID] = l.toDomain()
		}
	}

	for _, r := range rows {
		b := r.toDomain()
		if lib, ok := byID[r.LibraryID]; ok {
			b.Library = &lib
		}
		out = append(out, b)
	}
	return out, nil
}

func (c *Client) DeleteBookmark(ctx context.Context, id, userID int64) error {
	results, err := sdk.Query[[]bookmarkRow](ctx, c.db,
		`DELETE bookmark WHERE bid = $id AND user_id = $user_id RETURN BEFORE`,
		map[string]any{"id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("deleting bookmark %d: %w", id, err)
	}
	if len(*results) == 0 || len((*results)[0].Result) == 0 {
		return fmt.Errorf("bookmark %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func now() surrealmodels.CustomDateTime {
	return surrealmodels.CustomDateTime{Time: time.Now().UTC()}
}
