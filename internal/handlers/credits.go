package handlers

import (
	"context"
	"errors"

	"github.com/clearsky/gradeflow/internal/bus"
	"github.com/clearsky/gradeflow/internal/envelope"
	"github.com/clearsky/gradeflow/internal/jsoncodec"
	"github.com/clearsky/gradeflow/internal/ledger"
)

type topUpRequest struct {
	Name   string `json:"name"`
	Amount int    `json:"amount"`
}

// CreditTopUp adds credits to an existing institution account. Accounts
// are never created here: a top-up for an unknown institution is
// answered with an error and acknowledged, because redelivery cannot
// make the account exist.
func (h *Handlers) CreditTopUp(ctx context.Context, d bus.Delivery) (*envelope.Reply, error) {
	var req topUpRequest
	if err := jsoncodec.Unmarshal(d.Payload, &req); err != nil {
		return envelope.Errorf("malformed request body: %v", err), err
	}

	if req.Name == "" {
		return envelope.Errorf("missing required fields: name"), nil
	}

	if err := h.ledger.TopUp(ctx, req.Name, req.Amount); err != nil {
		if errors.Is(err, ledger.ErrNoAccount) {
			return envelope.Errorf("no account for institution %q", req.Name), nil
		}
		return envelope.Errorf("failed to top up credits: %v", err), err
	}

	return envelope.OK("Added %d credits to %s", req.Amount, req.Name), nil
}
