package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/verisafe/docvault/internal/common"
)

// HTTPClient anchors hashes through the anchoring gateway's JSON API
// (POST {base}/anchors).
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, client *http.Client) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{baseURL: baseURL, client: client}
}

type anchorRequest struct {
	Hash string `json:"hash"`
}

type anchorResponse struct {
	TxRef string `json:"txRef"`
}

func (c *HTTPClient) Anchor(ctx context.Context, contentHash string) (string, error) {
	body, err := json.Marshal(anchorRequest{Hash: contentHash})
	if err != nil {
		return "", fmt.Errorf("marshal anchor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/anchors", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build anchor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrAnchorSubmission, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: unexpected status %d", common.ErrAnchorSubmission, resp.StatusCode)
	}

	var out anchorResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", common.ErrAnchorSubmission, err)
	}
	if out.TxRef == "" {
		return "", fmt.Errorf("%w: empty txRef", common.ErrAnchorSubmission)
	}
	return out.TxRef, nil
}
