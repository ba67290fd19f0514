package bus

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"

	"github.com/clearsky/gradeflow/internal/config"
	"github.com/clearsky/gradeflow/internal/envelope"
	"github.com/clearsky/gradeflow/internal/logging"
)

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

// Delivery is the handler-facing view of a consumed message.
type Delivery struct {
	Payload       []byte
	ContentType   string
	CorrelationID string
	ReplyTo       string
	RoutingKey    string
	Metadata      message.Metadata
}

// Handler processes one delivery. The returned reply, when non-nil, is
// sent to the requester's reply queue. The returned error decides the
// fate of the delivery: nil acknowledges it, non-nil rejects it without
// requeue. Both a reply and an error may be returned together, so a
// requester learns why its message was rejected.
type Handler func(ctx context.Context, d Delivery) (*envelope.Reply, error)

// Registration describes one consumer on the router. Bounded consumers
// share the prefetch-limited ingest subscriber.
type Registration struct {
	Name       string
	RoutingKey string
	Bounded    bool
	Handler    Handler
}

// Service owns the router and dispatches deliveries to handlers.
type Service struct {
	conf      *config.Config
	logger    logging.ServiceLogger
	transport *Transport
	replier   envelope.Replier
	router    *message.Router

	metricsMux *http.ServeMux
}

// NewService builds the router with the default middleware chain.
// Register handlers on the returned Service before calling Start.
func NewService(conf *config.Config, log logging.ServiceLogger, transport *Transport, replier envelope.Replier) (*Service, error) {
	if conf == nil {
		return nil, ErrConfigRequired
	}
	if transport == nil {
		return nil, ErrTransportRequired
	}
	if replier == nil {
		return nil, ErrReplierRequired
	}

	wmLogger := logging.NewWatermillAdapter(log)
	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, err
	}
	router.AddPlugin(plugin.SignalsHandler)

	s := &Service{
		conf:      conf,
		logger:    log,
		transport: transport,
		replier:   replier,
		router:    router,
	}
	s.registerMiddlewares()

	return s, nil
}

// Register attaches a consumer to the router.
func (s *Service) Register(reg Registration) error {
	if reg.Name == "" {
		return ErrHandlerNameRequired
	}
	if reg.RoutingKey == "" {
		return ErrRoutingKeyRequired
	}
	if reg.Handler == nil {
		return ErrHandlerRequired
	}

	subscriber := s.transport.Query
	if reg.Bounded {
		subscriber = s.transport.Ingest
	}

	s.router.AddNoPublisherHandler(
		reg.Name,
		reg.RoutingKey,
		subscriber,
		s.wrap(reg),
	)

	return nil
}

// Start runs the router until the context is cancelled. The metrics
// endpoint, when enabled, is served alongside it.
func (s *Service) Start(ctx context.Context) error {
	s.startMetricsServer()
	return routerRun(s.router, ctx)
}

// wrap adapts a Handler to the router contract. The reply is published
// before the delivery outcome is decided, and at most once; a failed
// reply publish is logged and never changes the ack decision.
func (s *Service) wrap(reg Registration) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		d := Delivery{
			Payload:       msg.Payload,
			ContentType:   msg.Metadata[envelope.KeyContentType],
			CorrelationID: msg.Metadata[envelope.KeyCorrelationID],
			ReplyTo:       msg.Metadata[envelope.KeyReplyTo],
			RoutingKey:    msg.Metadata[envelope.KeyRoutingKey],
			Metadata:      msg.Metadata,
		}

		reply, err := reg.Handler(msg.Context(), d)

		if reply != nil && d.ReplyTo != "" {
			if replyErr := s.replier.Reply(msg.Context(), d.ReplyTo, d.CorrelationID, reply); replyErr != nil {
				s.logger.Error("Failed to publish reply", replyErr, logging.LogFields{
					"handler":        reg.Name,
					"reply_to":       d.ReplyTo,
					"correlation_id": d.CorrelationID,
				})
			}
		}

		if err != nil {
			return fmt.Errorf("%s: %w", reg.Name, err)
		}
		return nil
	}
}

func (s *Service) startMetricsServer() {
	if s.metricsMux == nil {
		return
	}

	addr := fmt.Sprintf(":%d", s.conf.MetricsPort)
	s.logger.Info("Starting metrics server", logging.LogFields{"address": addr})
	go func() {
		if err := http.ListenAndServe(addr, s.metricsMux); err != nil {
			s.logger.Error("Metrics server stopped", err, logging.LogFields{"address": addr})
		}
	}()
}
