package envelope

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/clearsky/gradeflow/internal/jsoncodec"
)

// Replier publishes a reply body to a delivery's reply address, echoing
// its correlation token.
type Replier interface {
	Reply(ctx context.Context, address, correlationID string, reply *Reply) error
}

// replyChannel is the slice of *amqp091.Channel the replier publishes on.
type replyChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQPReplier publishes replies on the broker's default exchange, so the
// routing key addresses the reply queue directly without any binding.
// A channel lost mid-flight is re-dialed once per publish attempt; the
// consumer side reconnects on its own, and replies must keep up.
type AMQPReplier struct {
	mu     sync.Mutex
	conn   *amqp091.Connection
	ch     replyChannel
	redial func() (*amqp091.Connection, replyChannel, error)
}

// DialReplier opens a dedicated connection and channel for reply traffic.
func DialReplier(amqpURL string) (*AMQPReplier, error) {
	conn, ch, err := dialReplyChannel(amqpURL)
	if err != nil {
		return nil, err
	}
	return &AMQPReplier{
		conn: conn,
		ch:   ch,
		redial: func() (*amqp091.Connection, replyChannel, error) {
			return dialReplyChannel(amqpURL)
		},
	}, nil
}

func dialReplyChannel(amqpURL string) (*amqp091.Connection, replyChannel, error) {
	conn, err := amqp091.Dial(amqpURL)
	if err != nil {
		return nil, nil, fmt.Errorf("envelope: dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("envelope: open channel: %w", err)
	}
	return conn, ch, nil
}

func (r *AMQPReplier) Reply(ctx context.Context, address, correlationID string, reply *Reply) error {
	if address == "" {
		return nil
	}
	body, err := jsoncodec.Marshal(reply)
	if err != nil {
		return fmt.Errorf("envelope: marshal reply: %w", err)
	}

	// amqp091 channels are not safe for concurrent publishes.
	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.publish(ctx, address, correlationID, body)
	if errors.Is(err, amqp091.ErrClosed) {
		if redialErr := r.reconnect(); redialErr != nil {
			return fmt.Errorf("envelope: reconnect for reply to %s: %w", address, redialErr)
		}
		err = r.publish(ctx, address, correlationID, body)
	}
	if err != nil {
		return fmt.Errorf("envelope: publish reply to %s: %w", address, err)
	}
	return nil
}

func (r *AMQPReplier) publish(ctx context.Context, address, correlationID string, body []byte) error {
	return r.ch.PublishWithContext(ctx,
		"",      // default exchange
		address, // routing key == reply queue name
		false,   // mandatory
		false,   // immediate
		amqp091.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			Body:          body,
		})
}

// reconnect replaces the dead connection and channel. Caller holds r.mu.
func (r *AMQPReplier) reconnect() error {
	if r.conn != nil {
		_ = r.conn.Close()
	}
	conn, ch, err := r.redial()
	if err != nil {
		return err
	}
	r.conn = conn
	r.ch = ch
	return nil
}

func (r *AMQPReplier) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ch.Close(); err != nil {
		if r.conn != nil {
			r.conn.Close()
		}
		return err
	}
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}
