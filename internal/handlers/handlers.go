// Package handlers implements the broker consumers: spreadsheet grade
// ingestion, the submission log, grade histograms, credit top-ups, and
// per-student grade lookup.
package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clearsky/gradeflow/internal/ledger"
	"github.com/clearsky/gradeflow/internal/logging"
	"github.com/clearsky/gradeflow/internal/store"
	"github.com/clearsky/gradeflow/internal/template"
)

// ErrMissingGrade rejects a row whose grade cell did not parse.
var ErrMissingGrade = errors.New("gradeflow: row has no parsable grade")

// GradeStore is the persistence surface the handlers depend on.
type GradeStore interface {
	UpsertGrade(ctx context.Context, g *store.Grade) error
	TouchSubmissionLog(ctx context.Context, period, class string, now time.Time) error
	ListSubmissionLogs(ctx context.Context) ([]store.SubmissionLog, error)
	GradesByStudent(ctx context.Context, am string) ([]store.StudentGrade, error)
	ScoresFor(ctx context.Context, class, period string) (map[string][]float64, error)
}

// CreditLedger mutates institution submission quotas.
type CreditLedger interface {
	Debit(ctx context.Context, name string) error
	TopUp(ctx context.Context, name string, amount int) error
}

var _ GradeStore = (*store.GradeStore)(nil)
var _ CreditLedger = (*ledger.Ledger)(nil)

// Handlers bundles the consumers' shared dependencies.
type Handlers struct {
	store  GradeStore
	ledger CreditLedger
	logger logging.ServiceLogger
	tpl    template.Template

	now func() time.Time
}

// New builds the handler set using the default workbook template.
func New(gradeStore GradeStore, creditLedger CreditLedger, log logging.ServiceLogger) *Handlers {
	return &Handlers{
		store:  gradeStore,
		ledger: creditLedger,
		logger: log,
		tpl:    template.Default(),
		now:    time.Now,
	}
}

// missingFields returns the names whose values are empty, preserving
// order, so a requester sees every missing field at once.
func missingFields(fields map[string]string, order ...string) []string {
	var missing []string
	for _, name := range order {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
