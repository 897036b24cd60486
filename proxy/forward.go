// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/vac-sidecar/sidecar/lib/secret"
	"github.com/vac-sidecar/sidecar/lib/vacerr"
)

// hopByHopHeaders are never forwarded in either direction, the same
// set the teacher's proxy filters on.
var hopByHopHeaders = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailer":             true,
	"transfer-encoding":   true,
	"upgrade":             true,
}

func isHopByHopHeader(name string) bool {
	return hopByHopHeaders[strings.ToLower(name)]
}

// isVACHeader reports whether name is one of the sidecar's own
// inbound control headers, which must never reach upstream.
func isVACHeader(name string) bool {
	lower := strings.ToLower(name)
	return lower == "x-correlation-id" || strings.HasPrefix(lower, "x-vac-")
}

// singleJoiningSlash joins an upstream base path and a request path
// with exactly one slash between them.
func singleJoiningSlash(a, b string) string {
	aSlash := strings.HasSuffix(a, "/")
	bSlash := strings.HasPrefix(b, "/")
	switch {
	case aSlash && bSlash:
		return a + b[1:]
	case !aSlash && !bSlash:
		return a + "/" + b
	}
	return a + b
}

// buildUpstreamRequest constructs the request forwarded to upstream:
// same method, path, query, and body as the inbound request, with the
// Authorization header overwritten with the injected API key and
// every X-VAC-* / X-Correlation-ID header stripped, per spec.md §6.
func buildUpstreamRequest(r *http.Request, upstream *url.URL, body []byte, apiKey *secret.Buffer) (*http.Request, error) {
	target := *upstream
	target.Path = singleJoiningSlash(upstream.Path, r.URL.Path)
	target.RawQuery = r.URL.RawQuery

	upstreamReq, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), newBodyReader(body))
	if err != nil {
		return nil, vacerr.Newf(vacerr.ProxyError, "building upstream request: %v", err)
	}

	for key, values := range r.Header {
		if isHopByHopHeader(key) || isVACHeader(key) || strings.EqualFold(key, "Authorization") {
			continue
		}
		for _, v := range values {
			upstreamReq.Header.Add(key, v)
		}
	}

	upstreamReq.Header.Set("Authorization", "Bearer "+apiKey.String())
	return upstreamReq, nil
}

// newBodyReader returns a fresh reader over the already-buffered
// request body. The pipeline reads the body once (to make it
// available to the adapter runtime) so forwarding replays it from
// memory rather than re-reading a consumed stream.
func newBodyReader(body []byte) io.Reader {
	if len(body) == 0 {
		return nil
	}
	return strings.NewReader(string(body))
}

// copyResponseHeaders copies resp's headers to w, skipping hop-by-hop
// headers, matching the teacher's response-side filtering.
func copyResponseHeaders(w http.ResponseWriter, resp *http.Response) {
	for key, values := range resp.Header {
		if isHopByHopHeader(key) {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
}
