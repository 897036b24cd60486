// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package receipt

import (
	"crypto/ed25519"
	"strings"
	"time"

	"github.com/vac-sidecar/sidecar/lib/clock"
	"github.com/vac-sidecar/sidecar/lib/logic"
	"github.com/vac-sidecar/sidecar/lib/vacerr"
	"github.com/vac-sidecar/sidecar/lib/vactoken"
)

// ExpiryWindow is how long a receipt remains valid after the proxied
// request it attests to completed.
const ExpiryWindow = 330 * time.Second

// SkewGrace is how far into the future a receipt's timestamp may fall
// before it is rejected — accounts for modest clock drift between the
// sidecar and whatever clock produced the timestamp.
const SkewGrace = 30 * time.Second

// Event is the single prior_event fact a receipt carries: a record
// that a specific proxied request, identified by operation and
// correlation id, completed at a specific time.
type Event struct {
	Operation     string
	CorrelationID string
	Timestamp     time.Time
}

// Verify checks wire's signature under the sidecar's session public
// key, extracts its prior_event fact, and enforces the expiry window,
// clock-skew cap, and correlation id match against wantCorrelationID.
func Verify(publicKey ed25519.PublicKey, wire []byte, wantCorrelationID string, now time.Time) (Event, error) {
	token, _, err := vactoken.Verify(publicKey, wire)
	if err != nil {
		return Event{}, err
	}

	event, err := extractEvent(token)
	if err != nil {
		return Event{}, err
	}

	if now.Sub(event.Timestamp) > ExpiryWindow {
		return Event{}, vacerr.New(vacerr.ReceiptExpired)
	}
	if event.Timestamp.Sub(now) > SkewGrace {
		return Event{}, vacerr.New(vacerr.ReceiptExpired)
	}
	if event.CorrelationID != wantCorrelationID {
		return Event{}, vacerr.New(vacerr.CorrelationIdMismatch)
	}

	return event, nil
}

// Mint signs a fresh receipt attesting that operation completed under
// correlationID at the clock's current time. extra carries additional
// ground facts to embed alongside prior_event — per spec.md §4.5, a
// receipt minted under delegation copies the chain's depth(N) and
// delegation_chain(id_hex) facts. [Verify] returns only the
// prior_event fact; the extra facts are not read back from a
// presented receipt.
func Mint(clk clock.Clock, privateKey ed25519.PrivateKey, operation, correlationID string, extra ...logic.Fact) ([]byte, error) {
	now := clk.Now()
	fact := logic.NewFact("prior_event", logic.Str(operation), logic.Str(correlationID), logic.Int(now.Unix()))

	statements := make([]string, 0, 1+len(extra))
	statements = append(statements, fact.String()+";")
	for _, f := range extra {
		statements = append(statements, f.String()+";")
	}

	return vactoken.Mint(privateKey, &vactoken.Token{
		Blocks:   []string{strings.Join(statements, " ")},
		IssuedAt: now.Unix(),
	})
}

// extractEvent scans every block of token for the single prior_event
// fact it must carry. Zero or more than one is malformed.
func extractEvent(token *vactoken.Token) (Event, error) {
	var event Event
	found := false

	for i, source := range token.Blocks {
		block, err := logic.Parse(source)
		if err != nil {
			return Event{}, vacerr.Newf(vacerr.InvalidTokenFormat, "receipt: block %d: %v", i, err)
		}
		for _, fact := range block.Facts {
			if fact.Name != "prior_event" {
				continue
			}
			if found {
				return Event{}, vacerr.PolicyViolationf("receipt carries more than one prior_event fact")
			}
			parsed, err := parseEvent(fact)
			if err != nil {
				return Event{}, err
			}
			event = parsed
			found = true
		}
	}

	if !found {
		return Event{}, vacerr.PolicyViolationf("receipt is missing its prior_event fact")
	}
	return event, nil
}

func parseEvent(fact logic.Fact) (Event, error) {
	if len(fact.Args) != 3 || !fact.Args[0].IsString() || !fact.Args[1].IsString() || !fact.Args[2].IsInt() {
		return Event{}, vacerr.PolicyViolationf("receipt's prior_event fact is malformed")
	}
	return Event{
		Operation:     fact.Args[0].StringValue(),
		CorrelationID: fact.Args[1].StringValue(),
		Timestamp:     time.Unix(fact.Args[2].IntValue(), 0).UTC(),
	}, nil
}
