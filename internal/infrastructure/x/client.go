// Package x implements the publish target against the X API v2 with
// OAuth 1.0a request signing.
package x

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"techpost/internal/domain"
	"techpost/internal/ports"
)

const defaultBaseURL = "https://api.twitter.com"

// Client posts tweets and reads back public metrics. Signing is handled
// by the oauth1 transport.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ ports.Publisher = (*Client)(nil)

// NewClient builds a signing client from consumer and access credentials.
func NewClient(baseURL, apiKey, apiSecret, accessToken, accessSecret string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	config := oauth1.NewConfig(apiKey, apiSecret)
	token := oauth1.NewToken(accessToken, accessSecret)
	httpClient := config.Client(oauth1.NoContext, token)
	httpClient.Timeout = 15 * time.Second

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// PostTweet publishes the text and returns the authoritative tweet id.
func (c *Client) PostTweet(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(tweetRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("marshal tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post tweet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("x api error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed tweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode tweet response: %w", err)
	}
	return parsed.Data.ID, nil
}

type metricsResponse struct {
	Data []struct {
		ID            string `json:"id"`
		PublicMetrics struct {
			ImpressionCount int `json:"impression_count"`
			LikeCount       int `json:"like_count"`
			RetweetCount    int `json:"retweet_count"`
			ReplyCount      int `json:"reply_count"`
			QuoteCount      int `json:"quote_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

// TweetMetrics fetches public metrics for up to 100 tweet ids.
func (c *Client) TweetMetrics(ctx context.Context, tweetIDs []string) ([]domain.TweetMetrics, error) {
	url := fmt.Sprintf("%s/2/tweets?ids=%s&tweet.fields=public_metrics", c.baseURL, strings.Join(tweetIDs, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("x api error %s", resp.Status)
	}

	var parsed metricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode metrics response: %w", err)
	}

	metrics := make([]domain.TweetMetrics, 0, len(parsed.Data))
	for _, tweet := range parsed.Data {
		pm := tweet.PublicMetrics
		engagements := pm.LikeCount + pm.RetweetCount + pm.ReplyCount + pm.QuoteCount

		rate := 0.0
		if pm.ImpressionCount > 0 {
			rate = float64(engagements) / float64(pm.ImpressionCount) * 100
		}

		metrics = append(metrics, domain.TweetMetrics{
			TweetID:        tweet.ID,
			Impressions:    pm.ImpressionCount,
			Engagements:    engagements,
			EngagementRate: rate,
		})
	}
	return metrics, nil
}
