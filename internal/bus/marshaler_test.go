package bus

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/clearsky/gradeflow/internal/envelope"
)

func TestUnmarshalLiftsAMQPProperties(t *testing.T) {
	delivery := amqp091.Delivery{
		Body:          []byte(`{"name":"NTUA"}`),
		ContentType:   "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		ReplyTo:       "amq.gen-xyz",
		CorrelationId: "corr-1",
		RoutingKey:    "postgrades.final",
		Headers: amqp091.Table{
			"tenant": "uni-a",
		},
	}

	msg, err := propertyMarshaler{}.Unmarshal(delivery)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := map[string]string{
		envelope.KeyContentType:   delivery.ContentType,
		envelope.KeyReplyTo:       "amq.gen-xyz",
		envelope.KeyCorrelationID: "corr-1",
		envelope.KeyRoutingKey:    "postgrades.final",
		"tenant":                  "uni-a",
	}
	for key, value := range want {
		if msg.Metadata[key] != value {
			t.Errorf("metadata[%q] = %q, want %q", key, msg.Metadata[key], value)
		}
	}
	if string(msg.Payload) != `{"name":"NTUA"}` {
		t.Errorf("payload = %s", msg.Payload)
	}
	if msg.UUID == "" {
		t.Error("expected a generated message UUID")
	}
}

func TestMarshalMapsMetadataToProperties(t *testing.T) {
	msg := message.NewMessage(watermill.NewUUID(), []byte(`payload`))
	msg.Metadata[envelope.KeyContentType] = "application/json"
	msg.Metadata[envelope.KeyReplyTo] = "amq.gen-abc"
	msg.Metadata[envelope.KeyCorrelationID] = "corr-2"
	msg.Metadata["tenant"] = "uni-b"

	publishing, err := propertyMarshaler{}.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	if publishing.ContentType != "application/json" {
		t.Errorf("ContentType = %q", publishing.ContentType)
	}
	if publishing.ReplyTo != "amq.gen-abc" {
		t.Errorf("ReplyTo = %q", publishing.ReplyTo)
	}
	if publishing.CorrelationId != "corr-2" {
		t.Errorf("CorrelationId = %q", publishing.CorrelationId)
	}
	if publishing.DeliveryMode != amqp091.Persistent {
		t.Errorf("DeliveryMode = %d, want persistent", publishing.DeliveryMode)
	}
	if publishing.Headers["tenant"] != "uni-b" {
		t.Errorf("headers[tenant] = %v", publishing.Headers["tenant"])
	}
	if publishing.Headers[messageUUIDHeader] != msg.UUID {
		t.Errorf("uuid header = %v, want %q", publishing.Headers[messageUUIDHeader], msg.UUID)
	}
}

func TestUnmarshalPreservesMessageUUID(t *testing.T) {
	original := message.NewMessage(watermill.NewUUID(), []byte(`x`))
	original.Metadata[envelope.KeyCorrelationID] = "corr-3"

	publishing, err := propertyMarshaler{}.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	restored, err := propertyMarshaler{}.Unmarshal(amqp091.Delivery{
		Body:          publishing.Body,
		CorrelationId: publishing.CorrelationId,
		Headers:       publishing.Headers,
	})
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if restored.UUID != original.UUID {
		t.Errorf("UUID = %q, want %q", restored.UUID, original.UUID)
	}
	if restored.Metadata[envelope.KeyCorrelationID] != "corr-3" {
		t.Errorf("correlation id = %q", restored.Metadata[envelope.KeyCorrelationID])
	}
}
