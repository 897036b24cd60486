// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vac-sidecar/sidecar/lib/adapter"
	"github.com/vac-sidecar/sidecar/lib/clock"
	"github.com/vac-sidecar/sidecar/lib/ratelimit"
	"github.com/vac-sidecar/sidecar/lib/revocation"
	"github.com/vac-sidecar/sidecar/lib/secret"
	"github.com/vac-sidecar/sidecar/lib/sessionkey"
	"github.com/vac-sidecar/sidecar/lib/vactoken"
	"github.com/vac-sidecar/sidecar/state"
)

func buildHandler(t *testing.T, upstreamURL string, rps float64) (*Handler, *state.State, clock.Clock) {
	t.Helper()
	clk := clock.Fake(time.Unix(1700000000, 0))
	pub, _ := ed25519KeyPair(t)

	session, err := sessionkey.Generate(clk)
	if err != nil {
		t.Fatalf("sessionkey.Generate: %v", err)
	}
	apiKey, err := secret.NewFromBytes([]byte("sk-real-upstream-key"))
	if err != nil {
		t.Fatalf("secret.NewFromBytes: %v", err)
	}
	registry, err := adapter.LoadDir(context.Background(), "")
	if err != nil {
		t.Fatalf("adapter.LoadDir: %v", err)
	}

	st := &state.State{
		SidecarID:     "sidecar-1",
		RootPublicKey: pub,
		APIKey:        apiKey,
		UpstreamURL:   upstreamURL,
		Sessions:      sessionkey.NewStore(session),
		Revocations:   revocation.New(),
		Adapters:      registry,
	}

	limiter := ratelimit.New(rps, 0)
	handler, err := NewHandler(st, limiter, clk, upstreamURL, nil)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return handler, st, clk
}

func TestServeHTTPForwardsAcceptedRequest(t *testing.T) {
	var gotAuth, gotVACHeader string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVACHeader = r.Header.Get("X-Correlation-ID")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	handler, st, _ := buildHandler(t, upstream.URL, 0)

	pub, priv := ed25519KeyPair(t)
	st.RootPublicKey = pub

	credWire, err := vactoken.Mint(priv, &vactoken.Token{Blocks: []string{`allow if operation($m, $p);`}})
	if err != nil {
		t.Fatalf("vactoken.Mint: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("Authorization", "Bearer "+base64.StdEncoding.EncodeToString(credWire))
	req.Header.Set("X-Correlation-ID", "corr-123")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	if gotAuth != "Bearer sk-real-upstream-key" {
		t.Errorf("upstream Authorization = %q, want the injected API key", gotAuth)
	}
	if gotVACHeader != "" {
		t.Errorf("expected X-Correlation-ID to be stripped from the upstream request, got %q", gotVACHeader)
	}
	if rec.Header().Get("X-VAC-Receipt") == "" {
		t.Error("expected a fresh receipt on a 2xx response")
	}
}

func TestServeHTTPRejectsMissingCredential(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be contacted for a rejected request")
	}))
	defer upstream.Close()

	handler, _, _ := buildHandler(t, upstream.URL, 0)

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestServeHTTPEnforcesRateLimit(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	handler, _, _ := buildHandler(t, upstream.URL, 0.0000001)

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("first request status = %d, want 403 (rate limited before credential check)", rec.Code)
	}
}

func TestServeHTTPEnforcesLockdownForWriteMethods(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be contacted while locked down")
	}))
	defer upstream.Close()

	handler, st, _ := buildHandler(t, upstream.URL, 0)
	st.EnterLockdown()

	req := httptest.NewRequest(http.MethodPost, "/charge", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestServeHTTPAllowsReadOnlyMethodsDuringLockdown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	handler, st, _ := buildHandler(t, upstream.URL, 0)
	st.EnterLockdown()

	pub, priv := ed25519KeyPair(t)
	st.RootPublicKey = pub
	credWire, err := vactoken.Mint(priv, &vactoken.Token{Blocks: []string{`allow if operation($m, $p);`}})
	if err != nil {
		t.Fatalf("vactoken.Mint: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("Authorization", "Bearer "+base64.StdEncoding.EncodeToString(credWire))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for a read-only request during lockdown", rec.Code)
	}
}
