package bus

import (
	"net/http"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clearsky/gradeflow/internal/envelope"
	"github.com/clearsky/gradeflow/internal/ids"
	"github.com/clearsky/gradeflow/internal/logging"
)

func (s *Service) registerMiddlewares() {
	s.router.AddMiddleware(s.correlationIDMiddleware())
	s.router.AddMiddleware(s.logMessagesMiddleware())
	s.router.AddMiddleware(s.tracerMiddleware())
	if mw := s.metricsMiddleware(); mw != nil {
		s.router.AddMiddleware(mw)
	}
	s.router.AddMiddleware(middleware.Recoverer)
}

// correlationIDMiddleware assigns a correlation ID to deliveries that
// arrived without one, so replies and logs always carry an identifier.
func (s *Service) correlationIDMiddleware() message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			if msg.Metadata[envelope.KeyCorrelationID] == "" {
				msg.Metadata[envelope.KeyCorrelationID] = ids.NewCorrelationID()
			}
			return h(msg)
		}
	}
}

func (s *Service) logMessagesMiddleware() message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			s.logger.Debug("Processing message", logging.LogFields{
				"message_uuid":   msg.UUID,
				"routing_key":    msg.Metadata[envelope.KeyRoutingKey],
				"content_type":   msg.Metadata[envelope.KeyContentType],
				"correlation_id": msg.Metadata[envelope.KeyCorrelationID],
			})
			return h(msg)
		}
	}
}

// tracerMiddleware wraps message handling with an OpenTelemetry span.
func (s *Service) tracerMiddleware() message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			tracer := otel.Tracer("gradeflow-bus")
			ctx, span := tracer.Start(msg.Context(), "ProcessMessage")
			defer span.End()
			msg.SetContext(ctx)

			span.SetAttributes(
				attribute.String("message.uuid", msg.UUID),
				attribute.String("message.routing_key", msg.Metadata[envelope.KeyRoutingKey]),
				attribute.String("message.correlation_id", msg.Metadata[envelope.KeyCorrelationID]),
			)
			return h(msg)
		}
	}
}

// metricsMiddleware registers Prometheus router metrics and the
// /metrics endpoint. Returns nil when metrics are disabled.
func (s *Service) metricsMiddleware() message.HandlerMiddleware {
	if !s.conf.MetricsEnabled {
		return nil
	}

	metricsBuilder := metrics.NewPrometheusMetricsBuilder(
		prometheus.DefaultRegisterer,
		"gradeflow",
		"amqp",
	)
	metricsBuilder.AddPrometheusRouterMetrics(s.router)

	if s.conf.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		s.metricsMux = mux
	}

	return metricsBuilder.NewRouterMiddleware().Middleware
}
