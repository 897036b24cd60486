// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/vac-sidecar/sidecar/lib/clock"
	"github.com/vac-sidecar/sidecar/lib/delegation"
	"github.com/vac-sidecar/sidecar/lib/logic"
	"github.com/vac-sidecar/sidecar/lib/receipt"
	"github.com/vac-sidecar/sidecar/lib/vacerr"
	"github.com/vac-sidecar/sidecar/lib/vactoken"
	"github.com/vac-sidecar/sidecar/state"
)

// globalDenyDepthExceeded is the engine's own policy, applied to every
// authorizer regardless of what the credential's blocks say: no
// credential may grant authority past delegation depth 5. Parsed once
// at package init since it never varies by request.
var globalDenyDepthExceeded = mustParseGlobalDeny()

func mustParseGlobalDeny() logic.Block {
	block, err := logic.Parse("deny if depth($d), $d > 5;")
	if err != nil {
		panic("proxy: global deny clause failed to parse: " + err.Error())
	}
	return block
}

// decision is everything the forwarding and receipt-minting stages
// need once the pipeline has accepted a request.
type decision struct {
	correlationID string
	operation     string
	chain         delegation.Chain
}

// authorize runs the full verification and policy pipeline against an
// already-read request body. It does not touch the response writer;
// callers translate a non-nil error through vacerr.AsError.
func authorize(ctx context.Context, st *state.State, clk clock.Clock, r *http.Request, body []byte, correlationID string) (decision, error) {
	credWire, err := bearerToken(r)
	if err != nil {
		return decision{}, err
	}

	credID, err := vactoken.Decode(credWire)
	if err != nil {
		return decision{}, err
	}
	if st.Revocations.Contains(credID) {
		return decision{}, vacerr.New(vacerr.InvalidSignature)
	}

	credential, _, err := vactoken.Verify(st.RootPublicKey, credWire)
	if err != nil {
		return decision{}, err
	}

	delegationWires, err := decodeHeaderList(r.Header.Values("X-VAC-Delegation"))
	if err != nil {
		return decision{}, err
	}
	chain, err := delegation.Verify(st.RootPublicKey, delegationWires)
	if err != nil {
		return decision{}, err
	}
	if len(chain.IDs) > 0 && chain.IDs[len(chain.IDs)-1] != credID.Hex() {
		return decision{}, vacerr.PolicyViolationf("delegation chain does not end in request credential")
	}

	receiptWires, err := decodeHeaderList(r.Header.Values("X-VAC-Receipt"))
	if err != nil {
		return decision{}, err
	}
	sessionPublic := st.Sessions.Current().Public
	events := make([]receipt.Event, 0, len(receiptWires))
	for _, wire := range receiptWires {
		event, err := receipt.Verify(sessionPublic, wire, correlationID, clk.Now())
		if err != nil {
			return decision{}, err
		}
		events = append(events, event)
	}

	operation := r.Method + " " + r.URL.Path

	authorizer := logic.New()
	authorizer.AddBlock(globalDenyDepthExceeded)
	authorizer.AddFact(logic.FactString("operation", r.Method, r.URL.Path))
	authorizer.AddFact(logic.FactString("correlation_id", correlationID))

	for _, event := range events {
		authorizer.AddFact(logic.NewFact("prior_event",
			logic.Str(event.Operation), logic.Str(event.CorrelationID), logic.Int(event.Timestamp.Unix())))
	}

	if len(chain.IDs) > 0 {
		authorizer.AddFact(logic.NewFact("depth", logic.Int(int64(chain.Depth))))
		for _, id := range chain.IDs {
			authorizer.AddFact(logic.FactString("delegation_chain", id))
		}
	}

	if hash, ok, err := extractAdapterHash(credential); err != nil {
		return decision{}, err
	} else if ok {
		facts, err := st.Adapters.Extract(ctx, hash, body)
		if err != nil {
			return decision{}, err
		}
		for _, f := range facts {
			authorizer.AddFact(f)
		}
	}

	if err := credential.BuildAuthorizer(authorizer); err != nil {
		return decision{}, vacerr.Newf(vacerr.InvalidTokenFormat, "%v", err)
	}

	if err := authorizer.Evaluate(); err != nil {
		return decision{}, err
	}

	return decision{correlationID: correlationID, operation: operation, chain: chain}, nil
}

// bearerToken extracts and base64-decodes the root credential from the
// Authorization header.
func bearerToken(r *http.Request) ([]byte, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, vacerr.New(vacerr.MissingToken)
	}
	encoded := strings.TrimPrefix(header, "Bearer ")
	if encoded == "" {
		return nil, vacerr.New(vacerr.MissingToken)
	}
	wire, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, vacerr.New(vacerr.InvalidTokenFormat)
	}
	return wire, nil
}

// decodeHeaderList base64-decodes an ordered list of header values,
// preserving order (delegation chains and receipt sets are both
// order-sensitive: delegation root-to-leaf, receipts by presentation).
func decodeHeaderList(values []string) ([][]byte, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([][]byte, len(values))
	for i, v := range values {
		wire, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, vacerr.New(vacerr.InvalidTokenFormat)
		}
		out[i] = wire
	}
	return out, nil
}

// extractAdapterHash scans the root credential's blocks for a single
// adapter_hash("<hex>") fact. Absence is legal — most requests carry
// no adapter. More than one is malformed.
func extractAdapterHash(token *vactoken.Token) (string, bool, error) {
	hash := ""
	found := false

	for i, source := range token.Blocks {
		block, err := logic.Parse(source)
		if err != nil {
			return "", false, vacerr.Newf(vacerr.InvalidTokenFormat, "credential: block %d: %v", i, err)
		}
		for _, fact := range block.Facts {
			if fact.Name != "adapter_hash" {
				continue
			}
			if found {
				return "", false, vacerr.PolicyViolationf("credential carries more than one adapter_hash fact")
			}
			if len(fact.Args) != 1 || !fact.Args[0].IsString() {
				return "", false, vacerr.PolicyViolationf("credential's adapter_hash fact is malformed")
			}
			hash = fact.Args[0].StringValue()
			found = true
		}
	}

	return hash, found, nil
}
