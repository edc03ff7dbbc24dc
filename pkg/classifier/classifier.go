// Package classifier is an HTTP client for an external binary-polarity
// text classification service.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client calls a polarity classification endpoint. The service accepts a
// text sample and answers with a POSITIVE or NEGATIVE label plus a
// confidence score.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a classifier client. httpClient may be nil.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, client: httpClient}
}

type classifyReq struct {
	Text string `json:"text"`
}

type classifyResp struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify labels one text sample.
func (c *Client) Classify(ctx context.Context, text string) (string, float64, error) {
	body, _ := json.Marshal(classifyReq{Text: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("classify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("classify: status %d", resp.StatusCode)
	}

	var result classifyResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", 0, fmt.Errorf("classify decode: %w", err)
	}
	return result.Label, result.Score, nil
}
