// Package chain is the client for the value-transfer collaborator: bank
// sends, balance queries, and the per-block metadata (height, block time)
// the raffle uses for time-over checks and the winner draw.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Block is the chain metadata visible to a transaction. Both fields are
// public before the settling transaction lands, which is why the winner
// derivation built on them is observable in advance.
type Block struct {
	Height uint64    `json:"height"`
	Time   time.Time `json:"time"`
}

// TimeMillis returns the block time at the second granularity the contract
// compares end times against (seconds * 1000, not UnixMilli).
func (b Block) TimeMillis() uint64 {
	return uint64(b.Time.Unix()) * 1000
}

// TimeNanos returns the block time in nanoseconds since epoch.
func (b Block) TimeNanos() uint64 {
	return uint64(b.Time.UnixNano())
}

// Client talks to the chain RPC gateway.
type Client struct {
	BaseURL string
	MockAPI bool
	client  *http.Client

	mockHeight atomic.Uint64
}

// NewClient creates a new chain client
func NewClient(baseURL string, mockAPI bool) *Client {
	return &Client{
		BaseURL: baseURL,
		MockAPI: mockAPI,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// LatestBlock returns the current block height and time.
func (c *Client) LatestBlock(ctx context.Context) (Block, error) {
	if c.MockAPI {
		return Block{Height: c.mockHeight.Add(1), Time: time.Now().UTC()}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/block/latest", nil)
	if err != nil {
		return Block{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Block{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Block{}, fmt.Errorf("chain gateway returned %d", resp.StatusCode)
	}

	var block Block
	if err := json.NewDecoder(resp.Body).Decode(&block); err != nil {
		return Block{}, err
	}
	return block, nil
}

type sendRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
	Denom  string `json:"denom"`
}

type sendResponse struct {
	TxHash string `json:"txHash"`
}

// Send transfers amount of denom to the recipient and returns the tx hash.
// The gateway, not this client, rejects insufficient-balance sends.
func (c *Client) Send(ctx context.Context, to string, amount uint64, denom string) (string, error) {
	if c.MockAPI {
		return fmt.Sprintf("MOCKTX-%d-%s", time.Now().UnixNano(), to), nil
	}

	body, err := json.Marshal(sendRequest{To: to, Amount: amount, Denom: denom})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/bank/send", bytes.NewReader(body))
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
		return "", fmt.Errorf("chain gateway returned %d", resp.StatusCode)
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.TxHash, nil
}

type balanceResponse struct {
	Amount uint64 `json:"amount"`
	Denom  string `json:"denom"`
}

// Balance returns the address balance in the given denom.
func (c *Client) Balance(ctx context.Context, address, denom string) (uint64, error) {
	if c.MockAPI {
		return 0, nil
	}

	url := fmt.Sprintf("%s/bank/balances/%s?denom=%s", c.BaseURL, address, denom)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("chain gateway returned %d", resp.StatusCode)
	}

	var out balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Amount, nil
}
