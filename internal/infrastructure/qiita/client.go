// Package qiita implements the article source against the Qiita v2 REST
// API.
package qiita

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"techpost/internal/domain"
	"techpost/internal/ports"
)

const (
	defaultBaseURL  = "https://qiita.com/api/v2"
	articlesPerPage = 20
	fetchConcurrent = 4
)

// Client fetches articles per author. Failing authors contribute zero
// articles instead of failing the whole fetch.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.ArticleSource = (*Client)(nil)

// NewClient builds a client. An empty baseURL selects the public API.
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

type apiTag struct {
	Name     string   `json:"name"`
	Versions []string `json:"versions"`
}

type apiUser struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ItemsCount     int    `json:"items_count"`
	FollowersCount int    `json:"followers_count"`
}

type apiArticle struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	Body          string    `json:"body"`
	LikesCount    int       `json:"likes_count"`
	StocksCount   int       `json:"stocks_count"`
	CommentsCount int       `json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Tags          []apiTag  `json:"tags"`
	User          apiUser   `json:"user"`
}

func (a apiArticle) toDomain() domain.Article {
	tags := make([]domain.Tag, len(a.Tags))
	for i, t := range a.Tags {
		tags[i] = domain.Tag{Name: t.Name, Versions: t.Versions}
	}
	return domain.Article{
		ID:        a.ID,
		Title:     a.Title,
		URL:       a.URL,
		Body:      a.Body,
		Likes:     a.LikesCount,
		Stocks:    a.StocksCount,
		Comments:  a.CommentsCount,
		Tags:      tags,
		Author: domain.Author{
			ID:             a.User.ID,
			Name:           a.User.Name,
			ItemsCount:     a.User.ItemsCount,
			FollowersCount: a.User.FollowersCount,
		},
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// FetchByAuthors pulls the recent articles of every author, in parallel
// across authors. Per-author failures are logged and swallowed.
func (c *Client) FetchByAuthors(ctx context.Context, authorIDs []string) ([]domain.Article, error) {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(fetchConcurrent)

	var mu sync.Mutex
	var all []domain.Article

	for _, authorID := range authorIDs {
		group.Go(func() error {
			articles, err := c.fetchAuthorArticles(ctx, authorID)
			if err != nil {
				c.logger.Warn("author fetch failed", "author", authorID, "error", err)
				return nil
			}
			mu.Lock()
			all = append(all, articles...)
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

func (c *Client) fetchAuthorArticles(ctx context.Context, authorID string) ([]domain.Article, error) {
	url := fmt.Sprintf("%s/users/%s/items?page=1&per_page=%d", c.baseURL, authorID, articlesPerPage)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("qiita error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var raw []apiArticle
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}

	articles := make([]domain.Article, len(raw))
	for i, a := range raw {
		articles[i] = a.toDomain()
	}
	return articles, nil
}
