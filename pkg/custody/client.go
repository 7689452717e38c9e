// Package custody is the client for the NFT custody collaborator: prize
// ownership/approval lookups before a game opens and the prize transfer at
// settlement.
package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Ownership is the owner-of response for one token.
type Ownership struct {
	Owner     string   `json:"owner"`
	Approvals []string `json:"approvals"`
}

// CanTransfer reports whether operator may move the token: it is either the
// owner or among the approved spenders.
func (o Ownership) CanTransfer(operator string) bool {
	if o.Owner == operator {
		return true
	}
	for _, approval := range o.Approvals {
		if approval == operator {
			return true
		}
	}
	return false
}

// Client talks to the NFT custody gateway.
type Client struct {
	BaseURL string
	MockAPI bool
	client  *http.Client

	mu         sync.Mutex
	mockOwners map[string]Ownership
}

// NewClient creates a new custody client
func NewClient(baseURL string, mockAPI bool) *Client {
	return &Client{
		BaseURL:    baseURL,
		MockAPI:    mockAPI,
		client:     &http.Client{Timeout: 10 * time.Second},
		mockOwners: make(map[string]Ownership),
	}
}

// SetMockOwnership seeds mock ownership for a token; only used with MockAPI.
func (c *Client) SetMockOwnership(contractAddr, tokenID string, ownership Ownership) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mockOwners[contractAddr+"/"+tokenID] = ownership
}

// OwnerOf returns the owner and approvals for a token.
func (c *Client) OwnerOf(ctx context.Context, contractAddr, tokenID string) (Ownership, error) {
	if c.MockAPI {
		c.mu.Lock()
		defer c.mu.Unlock()
		if own, ok := c.mockOwners[contractAddr+"/"+tokenID]; ok {
			return own, nil
		}
		return Ownership{}, fmt.Errorf("mock custody: token %s/%s not found", contractAddr, tokenID)
	}

	url := fmt.Sprintf("%s/nft/%s/tokens/%s/owner", c.BaseURL, contractAddr, tokenID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Ownership{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Ownership{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Ownership{}, fmt.Errorf("custody gateway returned %d", resp.StatusCode)
	}

	var out Ownership
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Ownership{}, err
	}
	return out, nil
}

type transferRequest struct {
	Recipient string `json:"recipient"`
	TokenID   string `json:"tokenId"`
}

type transferResponse struct {
	TxHash string `json:"txHash"`
}

// TransferNFT moves the token to the recipient and returns the tx hash.
func (c *Client) TransferNFT(ctx context.Context, contractAddr, tokenID, recipient string) (string, error) {
	if c.MockAPI {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.mockOwners[contractAddr+"/"+tokenID] = Ownership{Owner: recipient}
		return fmt.Sprintf("MOCKNFT-%d-%s", time.Now().UnixNano(), recipient), nil
	}

	body, err := json.Marshal(transferRequest{Recipient: recipient, TokenID: tokenID})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/nft/%s/transfer", c.BaseURL, contractAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("custody gateway returned %d", resp.StatusCode)
	}

	var out transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.TxHash, nil
}
