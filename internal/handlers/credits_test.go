package handlers

import (
	"context"
	"strings"
	"testing"

	"github.com/clearsky/gradeflow/internal/bus"
	"github.com/clearsky/gradeflow/internal/envelope"
	"github.com/clearsky/gradeflow/internal/ledger"
)

func TestCreditTopUpAddsCredits(t *testing.T) {
	lg := &fakeLedger{}
	h := newTestHandlers(&fakeStore{}, lg)

	reply, err := h.CreditTopUp(context.Background(), bus.Delivery{
		Payload: []byte(`{"name":"NTUA","amount":25}`),
	})
	if err != nil {
		t.Fatalf("CreditTopUp() error = %v", err)
	}
	if reply.Status != envelope.StatusOK {
		t.Fatalf("reply = %+v", reply)
	}
	if lg.topUps["NTUA"] != 25 {
		t.Errorf("topUps = %v", lg.topUps)
	}
}

func TestCreditTopUpUnknownAccountAcknowledged(t *testing.T) {
	lg := &fakeLedger{topUpErr: ledger.ErrNoAccount}
	h := newTestHandlers(&fakeStore{}, lg)

	reply, err := h.CreditTopUp(context.Background(), bus.Delivery{
		Payload: []byte(`{"name":"UNKNOWN","amount":10}`),
	})
	if err != nil {
		t.Fatalf("unknown account must not reject the delivery, got %v", err)
	}
	if reply.Status != envelope.StatusError || !strings.Contains(reply.Message, "UNKNOWN") {
		t.Errorf("reply = %+v", reply)
	}
}

func TestCreditTopUpMissingNameAcknowledged(t *testing.T) {
	h := newTestHandlers(&fakeStore{}, &fakeLedger{})

	reply, err := h.CreditTopUp(context.Background(), bus.Delivery{
		Payload: []byte(`{"amount":10}`),
	})
	if err != nil {
		t.Fatalf("missing name must not reject the delivery, got %v", err)
	}
	if reply.Status != envelope.StatusError || !strings.Contains(reply.Message, "name") {
		t.Errorf("reply = %+v", reply)
	}
}

func TestCreditTopUpInfrastructureFailureRejected(t *testing.T) {
	lg := &fakeLedger{topUpErr: errBoom}
	h := newTestHandlers(&fakeStore{}, lg)

	reply, err := h.CreditTopUp(context.Background(), bus.Delivery{
		Payload: []byte(`{"name":"NTUA","amount":10}`),
	})
	if err == nil {
		t.Fatal("expected the ledger error to propagate")
	}
	if reply.Status != envelope.StatusError {
		t.Errorf("reply = %+v", reply)
	}
}

func TestCreditTopUpMalformedBodyRejected(t *testing.T) {
	h := newTestHandlers(&fakeStore{}, &fakeLedger{})

	_, err := h.CreditTopUp(context.Background(), bus.Delivery{Payload: []byte(`nope`)})
	if err == nil {
		t.Fatal("expected an unmarshal error")
	}
}
