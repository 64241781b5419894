package wallet

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nazeerbasha7/Med-Vault/pkg/ledger"
)

type submitWire struct {
	Sender    ledger.Address `json:"sender"`
	Function  string         `json:"function"`
	Arguments []any          `json:"arguments"`
	PublicKey string         `json:"public_key"`
	Signature string         `json:"signature"`
}

type submitResponse struct {
	Hash string `json:"hash"`
}

// NodeSubmit builds a SubmitFunc that posts signed payloads to a node's
// transaction endpoint and returns the handle the node assigned.
func NodeSubmit(baseURL string, client *http.Client) SubmitFunc {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return func(ctx context.Context, p SignedPayload) (ledger.TxHandle, error) {
		body, err := json.Marshal(submitWire{
			Sender:    p.Sender,
			Function:  p.Call.Function,
			Arguments: p.Call.Args,
			PublicKey: "0x" + hex.EncodeToString(p.PublicKey),
			Signature: "0x" + hex.EncodeToString(p.Signature),
		})
		if err != nil {
			return "", fmt.Errorf("wallet: encoding transaction: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/transactions", bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("wallet: building transaction request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("%w: submitting transaction: %v", ledger.ErrNetwork, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return "", fmt.Errorf("%w: node returned %d", ledger.ErrNetwork, resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("%w: node rejected transaction with %d", ledger.ErrInvalidInput, resp.StatusCode)
		}

		var sr submitResponse
		if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
			return "", fmt.Errorf("wallet: decoding transaction response: %w", err)
		}
		return ledger.TxHandle(sr.Hash), nil
	}
}
