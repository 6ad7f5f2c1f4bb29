package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// client is a thin HTTP client over kairosd's route surface,
// reimplementing what the original CLI's src/client.rs does against
// kairos-server with net/http instead of reqwest.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

type signedEnvelope struct {
	PublicKey string `json:"public_key"`
	Payload   string `json:"payload"`
}

func (c *client) postSigned(ctx context.Context, route string, pubKey []byte, der []byte) error {
	body, err := json.Marshal(signedEnvelope{
		PublicKey: hex.EncodeToString(pubKey),
		Payload:   hex.EncodeToString(der),
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+route, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", route, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: server returned %s: %s", route, resp.Status, string(msg))
	}
	return nil
}

// nonce fetches the server's current view of an account's next
// expected nonce, via /nonce.
func (c *client) nonce(ctx context.Context, pubKey []byte) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/nonce?public_key="+hex.EncodeToString(pubKey), nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request /nonce: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("/nonce: server returned %s: %s", resp.Status, string(msg))
	}
	var out struct {
		Nonce uint64 `json:"nonce"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode /nonce response: %w", err)
	}
	return out.Nonce, nil
}
