// Package bus wires the AMQP transport, the message router, and the
// request/reply handler contract used by every consumer in the service.
package bus

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/clearsky/gradeflow/internal/config"
)

// ConnectionFactory allows overriding the connection creation for testing.
var ConnectionFactory = func(cfg amqp.ConnectionConfig, logger watermill.LoggerAdapter) (*amqp.ConnectionWrapper, error) {
	return amqp.NewConnection(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Subscriber, error) {
	return amqp.NewSubscriberWithConnection(cfg, logger, conn)
}

// Transport holds the two subscribers sharing one broker connection.
// Ingest consumes with a bounded prefetch window so spreadsheet batches
// cannot flood the process; Query consumes without one.
type Transport struct {
	Ingest message.Subscriber
	Query  message.Subscriber

	conn *amqp.ConnectionWrapper
}

// NewAMQPTransport dials the broker once and builds both subscribers on
// the shared connection.
func NewAMQPTransport(conf *config.Config, logger watermill.LoggerAdapter) (*Transport, error) {
	if conf == nil {
		return nil, ErrConfigRequired
	}

	conn, err := ConnectionFactory(amqp.ConnectionConfig{
		AmqpURI:   conf.AMQPURL,
		Reconnect: amqp.DefaultReconnectConfig(),
	}, logger)
	if err != nil {
		return nil, err
	}

	ingest, err := SubscriberFactory(queueConfig(conf.Exchange, conf.IngestPrefetch), logger, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	query, err := SubscriberFactory(queueConfig(conf.Exchange, 0), logger, conn)
	if err != nil {
		_ = ingest.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Transport{
		Ingest: ingest,
		Query:  query,
		conn:   conn,
	}, nil
}

// Close shuts down both subscribers and the shared connection.
func (t *Transport) Close() error {
	_ = t.Ingest.Close()
	_ = t.Query.Close()
	return t.conn.Close()
}

// queueConfig declares a durable queue per routing key, bound to a fixed
// durable direct exchange under the same key. NoRequeueOnNack keeps a
// handler error from bouncing the same poisoned message back forever.
func queueConfig(exchange string, prefetch int) amqp.Config {
	return amqp.Config{
		Marshaler: propertyMarshaler{},
		Exchange: amqp.ExchangeConfig{
			GenerateName: func(string) string { return exchange },
			Type:         "direct",
			Durable:      true,
		},
		Queue: amqp.QueueConfig{
			GenerateName: amqp.GenerateQueueNameTopicName,
			Durable:      true,
		},
		QueueBind: amqp.QueueBindConfig{
			GenerateRoutingKey: func(topic string) string { return topic },
		},
		Publish: amqp.PublishConfig{
			GenerateRoutingKey: func(topic string) string { return topic },
		},
		Consume: amqp.ConsumeConfig{
			NoRequeueOnNack: true,
			Qos: amqp.QosConfig{
				PrefetchCount: prefetch,
			},
		},
		TopologyBuilder: &amqp.DefaultTopologyBuilder{},
	}
}
