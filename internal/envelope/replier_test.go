package envelope

import (
	"context"
	"errors"
	"strings"
	"testing"

	amqp091 "github.com/rabbitmq/amqp091-go"
)

type publishCall struct {
	exchange      string
	key           string
	correlationID string
	body          string
}

type fakeChannel struct {
	errs   []error // popped per publish, nil = success
	calls  []publishCall
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.calls = append(f.calls, publishCall{
		exchange:      exchange,
		key:           key,
		correlationID: msg.CorrelationId,
		body:          string(msg.Body),
	})
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestReplyPublishesToDefaultExchange(t *testing.T) {
	ch := &fakeChannel{}
	r := &AMQPReplier{ch: ch}

	if err := r.Reply(context.Background(), "amq.gen-reply", "corr-1", OK("done")); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if len(ch.calls) != 1 {
		t.Fatalf("published %d times, want 1", len(ch.calls))
	}
	call := ch.calls[0]
	if call.exchange != "" {
		t.Errorf("exchange = %q, want default", call.exchange)
	}
	if call.key != "amq.gen-reply" {
		t.Errorf("routing key = %q", call.key)
	}
	if call.correlationID != "corr-1" {
		t.Errorf("correlation id = %q", call.correlationID)
	}
	if !strings.Contains(call.body, `"status":"ok"`) {
		t.Errorf("body = %s", call.body)
	}
}

func TestReplyEmptyAddressIsNoOp(t *testing.T) {
	ch := &fakeChannel{}
	r := &AMQPReplier{ch: ch}

	if err := r.Reply(context.Background(), "", "corr-1", OK("done")); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if len(ch.calls) != 0 {
		t.Errorf("published %d times, want 0", len(ch.calls))
	}
}

func TestReplyRedialsOnClosedChannel(t *testing.T) {
	dead := &fakeChannel{errs: []error{amqp091.ErrClosed}}
	fresh := &fakeChannel{}
	redials := 0
	r := &AMQPReplier{
		ch: dead,
		redial: func() (*amqp091.Connection, replyChannel, error) {
			redials++
			return nil, fresh, nil
		},
	}

	if err := r.Reply(context.Background(), "amq.gen-reply", "corr-2", OK("done")); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if redials != 1 {
		t.Errorf("redialed %d times, want 1", redials)
	}
	if len(fresh.calls) != 1 {
		t.Errorf("fresh channel published %d times, want 1", len(fresh.calls))
	}
	if fresh.calls[0].correlationID != "corr-2" {
		t.Errorf("retried publish lost correlation id: %q", fresh.calls[0].correlationID)
	}
}

func TestReplyRedialFailurePropagates(t *testing.T) {
	dead := &fakeChannel{errs: []error{amqp091.ErrClosed}}
	redialErr := errors.New("broker unreachable")
	r := &AMQPReplier{
		ch: dead,
		redial: func() (*amqp091.Connection, replyChannel, error) {
			return nil, nil, redialErr
		},
	}

	err := r.Reply(context.Background(), "amq.gen-reply", "corr-3", OK("done"))
	if !errors.Is(err, redialErr) {
		t.Fatalf("Reply() error = %v, want %v", err, redialErr)
	}
}

func TestReplyOtherPublishErrorsDoNotRedial(t *testing.T) {
	publishErr := errors.New("frame too large")
	ch := &fakeChannel{errs: []error{publishErr}}
	redials := 0
	r := &AMQPReplier{
		ch: ch,
		redial: func() (*amqp091.Connection, replyChannel, error) {
			redials++
			return nil, ch, nil
		},
	}

	err := r.Reply(context.Background(), "amq.gen-reply", "corr-4", OK("done"))
	if !errors.Is(err, publishErr) {
		t.Fatalf("Reply() error = %v, want %v", err, publishErr)
	}
	if redials != 0 {
		t.Errorf("redialed %d times, want 0", redials)
	}
}
