// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/vac-sidecar/sidecar/lib/clock"
	"github.com/vac-sidecar/sidecar/lib/delegation"
	"github.com/vac-sidecar/sidecar/lib/logic"
	"github.com/vac-sidecar/sidecar/lib/ratelimit"
	"github.com/vac-sidecar/sidecar/lib/receipt"
	"github.com/vac-sidecar/sidecar/lib/vacerr"
	"github.com/vac-sidecar/sidecar/state"
)

// maxBodyBytes bounds how much of a request body the pipeline will
// buffer in memory, for both adapter extraction and upstream
// replaying. Chosen generously for JSON tool-call payloads without
// letting an unbounded body exhaust memory.
const maxBodyBytes = 8 << 20 // 8 MiB

// readOnlyMethods are the methods permitted through lockdown.
var readOnlyMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// Handler is the sidecar's inbound HTTP entry point: one ServeHTTP
// call runs the full pipeline and either forwards the request
// upstream or writes a vacerr-mapped rejection.
type Handler struct {
	state    *state.State
	limiter  *ratelimit.Limiter
	clock    clock.Clock
	client   *http.Client
	upstream *url.URL
	logger   *slog.Logger
}

// NewHandler builds a Handler forwarding accepted requests to
// upstreamURL. The HTTP client mirrors the teacher's proxy transport:
// generous idle-connection reuse, no overall timeout since upstream
// responses may stream.
func NewHandler(st *state.State, limiter *ratelimit.Limiter, clk clock.Clock, upstreamURL string, logger *slog.Logger) (*Handler, error) {
	upstream, err := url.Parse(upstreamURL)
	if err != nil {
		return nil, vacerr.Newf(vacerr.ConfigError, "invalid upstream_url: %v", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		state:    st,
		limiter:  limiter,
		clock:    clk,
		upstream: upstream,
		logger:   logger,
		client: &http.Client{
			Timeout: 0,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := h.clock.Now()
	correlationID := r.Header.Get("X-Correlation-ID")
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	if !h.limiter.Allow(r.URL.Path) {
		h.reject(w, r, correlationID, vacerr.PolicyViolationf("rate limit exceeded"))
		return
	}

	if h.state.InLockdown() && !readOnlyMethods[r.Method] {
		h.reject(w, r, correlationID, vacerr.PolicyViolationf("lockdown"))
		return
	}

	body, err := readBody(r)
	if err != nil {
		h.reject(w, r, correlationID, err)
		return
	}

	decision, err := authorize(r.Context(), h.state, h.clock, r, body, correlationID)
	if err != nil {
		h.reject(w, r, correlationID, err)
		return
	}

	upstreamReq, err := buildUpstreamRequest(r, h.upstream, body, h.state.APIKey)
	if err != nil {
		h.reject(w, r, correlationID, err)
		return
	}

	resp, err := h.client.Do(upstreamReq)
	if err != nil {
		h.reject(w, r, correlationID, vacerr.Newf(vacerr.ProxyError, "upstream request failed: %v", err))
		return
	}
	defer resp.Body.Close()

	copyResponseHeaders(w, resp)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		h.attachReceipt(w, decision)
	}
	w.WriteHeader(resp.StatusCode)
	bytesCopied, _ := io.Copy(w, resp.Body)

	h.logger.Info("proxy request forwarded",
		"method", r.Method,
		"path", r.URL.Path,
		"correlation_id", correlationID,
		"upstream_status", resp.StatusCode,
		"bytes", bytesCopied,
		"duration", h.clock.Now().Sub(start),
	)
}

// attachReceipt mints a fresh receipt for the just-forwarded request
// and attaches it as X-VAC-Receipt. Minting failure is logged but does
// not fail the response — the upstream call already succeeded.
func (h *Handler) attachReceipt(w http.ResponseWriter, d decision) {
	session := h.state.Sessions.Current()
	wire, err := receipt.Mint(h.clock, session.Private, d.operation, d.correlationID, chainFacts(d.chain)...)
	if err != nil {
		h.logger.Error("receipt minting failed", "error", err, "correlation_id", d.correlationID)
		return
	}
	w.Header().Set("X-VAC-Receipt", base64.StdEncoding.EncodeToString(wire))
}

// chainFacts renders a delegation chain's depth and id facts for
// embedding in the next receipt. An empty chain yields no facts. The
// pipeline reads only the prior_event fact back out of a presented
// receipt, so a later request still carries its own X-VAC-Delegation
// headers for delegation facts to be seeded.
func chainFacts(chain delegation.Chain) []logic.Fact {
	if len(chain.IDs) == 0 {
		return nil
	}
	facts := make([]logic.Fact, 0, 1+len(chain.IDs))
	facts = append(facts, logic.NewFact("depth", logic.Int(int64(chain.Depth))))
	for _, id := range chain.IDs {
		facts = append(facts, logic.FactString("delegation_chain", id))
	}
	return facts
}

// reject logs and writes a rejection. Every error reaching here must
// already be a *vacerr.Error or be funneled to Deny by AsError — this
// is the pipeline's single point of contact with the response writer
// for the failure path.
func (h *Handler) reject(w http.ResponseWriter, r *http.Request, correlationID string, err error) {
	ve := vacerr.AsError(err)
	h.logger.Warn("proxy request rejected",
		"error_kind", ve.Kind.String(),
		"method", r.Method,
		"path", r.URL.Path,
		"correlation_id", correlationID,
	)
	http.Error(w, ve.Error(), ve.StatusCode())
}

// readBody buffers the request body up to maxBodyBytes. A body over
// the limit is reported as InvalidTokenFormat: oversized bodies
// are almost always a malformed client, not a legitimate large
// payload, in this request shape.
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	limited := io.LimitReader(r.Body, maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, vacerr.Newf(vacerr.ProxyError, "reading request body: %v", err)
	}
	if len(body) > maxBodyBytes {
		return nil, vacerr.Newf(vacerr.InvalidTokenFormat, "request body exceeds %d bytes", maxBodyBytes)
	}
	return body, nil
}
