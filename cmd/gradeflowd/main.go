// Command gradeflowd runs the grade-management consumers: spreadsheet
// ingestion, submission log, histograms, credit top-ups, and per-student
// grade lookup, all served over AMQP request/reply.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/clearsky/gradeflow/internal/bus"
	"github.com/clearsky/gradeflow/internal/config"
	"github.com/clearsky/gradeflow/internal/envelope"
	"github.com/clearsky/gradeflow/internal/handlers"
	"github.com/clearsky/gradeflow/internal/ledger"
	"github.com/clearsky/gradeflow/internal/logging"
	"github.com/clearsky/gradeflow/internal/store"
)

func main() {
	ctx := context.Background()

	conf, err := config.Load(ctx)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	baseLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logging.ParseLevel(conf.LogLevel),
	}))
	logger := logging.NewSlogServiceLogger(baseLogger)
	logger.Info("Starting gradeflow", logging.LogFields{"config": conf.String()})

	db, err := gorm.Open(postgres.Open(conf.PostgresURL), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to database", err, nil)
		os.Exit(1)
	}

	gradeStore := store.NewGradeStore(db)
	if err := gradeStore.Migrate(); err != nil {
		logger.Error("Failed to migrate schema", err, nil)
		os.Exit(1)
	}

	transport, err := bus.NewAMQPTransport(conf, logging.NewWatermillAdapter(logger))
	if err != nil {
		logger.Error("Failed to connect to broker", err, nil)
		os.Exit(1)
	}
	defer transport.Close()

	replier, err := envelope.DialReplier(conf.AMQPURL)
	if err != nil {
		logger.Error("Failed to open reply channel", err, nil)
		os.Exit(1)
	}
	defer replier.Close()

	svc, err := bus.NewService(conf, logger, transport, replier)
	if err != nil {
		logger.Error("Failed to build service", err, nil)
		os.Exit(1)
	}

	h := handlers.New(gradeStore, ledger.New(db), logger)

	registrations := []bus.Registration{
		{Name: "ingest-grades", RoutingKey: conf.IngestKey, Bounded: true, Handler: h.Ingest},
		{Name: "submission-log", RoutingKey: conf.SubmissionLogKey, Handler: h.SubmissionLog},
		{Name: "grade-histograms", RoutingKey: conf.StatsKey, Handler: h.Histogram},
		{Name: "credit-topup", RoutingKey: conf.CreditTopUpKey, Handler: h.CreditTopUp},
		{Name: "student-grades", RoutingKey: conf.StudentGradesKey, Handler: h.StudentGrades},
	}
	for _, reg := range registrations {
		if err := svc.Register(reg); err != nil {
			logger.Error("Failed to register handler", err, logging.LogFields{"handler": reg.Name})
			os.Exit(1)
		}
	}

	if err := svc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Router stopped", err, nil)
		os.Exit(1)
	}
}
