// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controlplane

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vac-sidecar/sidecar/lib/vactoken"
)

// HeartbeatDeadline bounds a single heartbeat round trip. Exceeding it
// counts as a failure, per spec.md §5.
const HeartbeatDeadline = 10 * time.Second

// heartbeatRequest is the body of POST /heartbeat.
type heartbeatRequest struct {
	SidecarID     string `json:"sidecar_id"`
	SessionKeyPub string `json:"session_key_pub"`
	Timestamp     int64  `json:"timestamp"`
}

// heartbeatResponse is the body the control plane returns.
// revoked_token_ids is an array of 32-byte token ids, each serialized
// as a JSON array of 32 numbers (Rust's serde_json rendering of
// `[u8; 32]`) — never a hex string.
type heartbeatResponse struct {
	Healthy         bool          `json:"healthy"`
	RevokedTokenIDs []vactoken.ID `json:"revoked_token_ids"`
}

// Result is the outcome of one heartbeat round trip.
type Result struct {
	Healthy         bool
	RevokedTokenIDs []vactoken.ID
}

// Client polls a control plane's /heartbeat endpoint.
type Client struct {
	BaseURL    string
	SidecarID  string
	HTTPClient *http.Client
}

// NewClient constructs a Client against baseURL for the given sidecar
// id, using httpClient (nil selects http.DefaultClient).
func NewClient(baseURL, sidecarID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: baseURL, SidecarID: sidecarID, HTTPClient: httpClient}
}

// Heartbeat reports sessionPublicKey and now to the control plane and
// returns its verdict. A non-200 response or a transport failure
// returns an error — the caller (Monitor) treats any error as a
// heartbeat failure.
func (c *Client) Heartbeat(ctx context.Context, sessionPublicKey ed25519.PublicKey, now time.Time) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, HeartbeatDeadline)
	defer cancel()

	body, err := json.Marshal(heartbeatRequest{
		SidecarID:     c.SidecarID,
		SessionKeyPub: base64.StdEncoding.EncodeToString(sessionPublicKey),
		Timestamp:     now.Unix(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("controlplane: encoding heartbeat body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/heartbeat", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("controlplane: building heartbeat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("controlplane: heartbeat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("controlplane: heartbeat returned status %d", resp.StatusCode)
	}

	var parsed heartbeatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("controlplane: decoding heartbeat response: %w", err)
	}

	return Result{Healthy: parsed.Healthy, RevokedTokenIDs: parsed.RevokedTokenIDs}, nil
}
