package bus

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/clearsky/gradeflow/internal/envelope"
)

// messageUUIDHeader carries the watermill message UUID across the broker.
const messageUUIDHeader = "_watermill_message_uuid"

// propertyMarshaler maps the AMQP basic properties that the reply protocol
// depends on (content type, reply-to, correlation id) between the wire and
// message metadata, instead of burying them in headers the way the stock
// marshaler does. Requesters outside this codebase set plain AMQP
// properties, so the consumer has to read them from there.
type propertyMarshaler struct{}

func (propertyMarshaler) Marshal(msg *message.Message) (amqp091.Publishing, error) {
	headers := make(amqp091.Table, len(msg.Metadata)+1)
	headers[messageUUIDHeader] = msg.UUID

	publishing := amqp091.Publishing{
		Body:         msg.Payload,
		DeliveryMode: amqp091.Persistent,
	}

	for key, value := range msg.Metadata {
		switch key {
		case envelope.KeyContentType:
			publishing.ContentType = value
		case envelope.KeyReplyTo:
			publishing.ReplyTo = value
		case envelope.KeyCorrelationID:
			publishing.CorrelationId = value
		case envelope.KeyRoutingKey:
			// Set by the subscriber side only.
		default:
			headers[key] = value
		}
	}
	publishing.Headers = headers

	return publishing, nil
}

func (propertyMarshaler) Unmarshal(amqpMsg amqp091.Delivery) (*message.Message, error) {
	msgUUID := watermill.NewUUID()
	if value, ok := amqpMsg.Headers[messageUUIDHeader].(string); ok {
		msgUUID = value
	}

	msg := message.NewMessage(msgUUID, amqpMsg.Body)
	msg.Metadata = make(message.Metadata, len(amqpMsg.Headers)+4)

	for key, value := range amqpMsg.Headers {
		if key == messageUUIDHeader {
			continue
		}
		if str, ok := value.(string); ok {
			msg.Metadata[key] = str
		}
	}

	if amqpMsg.ContentType != "" {
		msg.Metadata[envelope.KeyContentType] = amqpMsg.ContentType
	}
	if amqpMsg.ReplyTo != "" {
		msg.Metadata[envelope.KeyReplyTo] = amqpMsg.ReplyTo
	}
	if amqpMsg.CorrelationId != "" {
		msg.Metadata[envelope.KeyCorrelationID] = amqpMsg.CorrelationId
	}
	if amqpMsg.RoutingKey != "" {
		msg.Metadata[envelope.KeyRoutingKey] = amqpMsg.RoutingKey
	}

	return msg, nil
}
