package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Node is the read-side boundary to a ledger full node: view-function
// calls and transaction status lookups.
type Node interface {
	// View invokes a read-only function and returns its raw return values.
	// A missing entity is ErrNotFound; transport failures are ErrNetwork.
	View(ctx context.Context, function string, args []any) ([]json.RawMessage, error)
	// TransactionStatus reports whether the transaction is known to the
	// node yet and, if so, whether it executed successfully.
	TransactionStatus(ctx context.Context, h TxHandle) (found, success bool, err error)
}

// NodeClient talks to a ledger full node over its REST API.
type NodeClient struct {
	baseURL    string
	moduleAddr Address
	http       *http.Client
	log        *slog.Logger
}

// NodeOption configures a NodeClient.
type NodeOption func(*NodeClient)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) NodeOption {
	return func(nc *NodeClient) { nc.http = c }
}

// WithNodeLogger sets the client logger.
func WithNodeLogger(l *slog.Logger) NodeOption {
	return func(nc *NodeClient) { nc.log = l }
}

// NewNodeClient creates a client for the node at baseURL, calling into the
// module deployed at moduleAddr.
func NewNodeClient(baseURL string, moduleAddr Address, opts ...NodeOption) *NodeClient {
	nc := &NodeClient{
		baseURL:    baseURL,
		moduleAddr: moduleAddr,
		http:       &http.Client{Timeout: 15 * time.Second},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(nc)
	}
	return nc
}

type viewRequest struct {
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

// View implements Node.
func (nc *NodeClient) View(ctx context.Context, function string, args []any) ([]json.RawMessage, error) {
	if args == nil {
		args = []any{}
	}
	body, err := json.Marshal(viewRequest{
		Function:      EntryCall{Function: function}.QualifiedName(nc.moduleAddr),
		TypeArguments: []string{},
		Arguments:     args,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: encoding view request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, nc.baseURL+"/view", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ledger: building view request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := nc.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: view %s: %v", ErrNetwork, function, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading view response: %v", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: view %s: node returned %d", ErrNetwork, function, resp.StatusCode)
	case resp.StatusCode >= 400:
		// View aborts on missing state surface as client errors.
		nc.log.Debug("view rejected", "function", function, "status", resp.StatusCode)
		return nil, ErrNotFound
	}

	var result []json.RawMessage
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("ledger: decoding view response for %s: %w", function, err)
	}
	return result, nil
}

type txResponse struct {
	Success *bool  `json:"success"`
	Type    string `json:"type"`
}

// TransactionStatus implements Node.
func (nc *NodeClient) TransactionStatus(ctx context.Context, h TxHandle) (bool, bool, error) {
	url := fmt.Sprintf("%s/transactions/by_hash/%s", nc.baseURL, h)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, false, fmt.Errorf("ledger: building status request: %w", err)
	}

	resp, err := nc.http.Do(req)
	if err != nil {
		return false, false, fmt.Errorf("%w: transaction status: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, false, nil
	}
	if resp.StatusCode >= 400 {
		return false, false, fmt.Errorf("%w: transaction status: node returned %d", ErrNetwork, resp.StatusCode)
	}

	var tx txResponse
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return false, false, fmt.Errorf("ledger: decoding transaction status: %w", err)
	}
	if tx.Success == nil {
		// Still pending in the mempool.
		return false, false, nil
	}
	return true, *tx.Success, nil
}
