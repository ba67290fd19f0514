package handlers

import (
	"context"
	"fmt"

	"github.com/clearsky/gradeflow/internal/bus"
	"github.com/clearsky/gradeflow/internal/envelope"
	"github.com/clearsky/gradeflow/internal/ledger"
	"github.com/clearsky/gradeflow/internal/logging"
	"github.com/clearsky/gradeflow/internal/sheet"
	"github.com/clearsky/gradeflow/internal/store"
	"github.com/clearsky/gradeflow/internal/transform"
)

// Ingest consumes one grading workbook. Rows are written one at a time
// without a surrounding transaction: when row k fails, rows 1..k-1 stay
// committed, the reply names the failing row, and the delivery is
// rejected. Re-sending the corrected workbook is safe because every row
// write is an idempotent upsert.
func (h *Handlers) Ingest(ctx context.Context, d bus.Delivery) (*envelope.Reply, error) {
	rows, err := sheet.Decode(d.Payload, d.ContentType)
	if err != nil {
		return envelope.Errorf("unreadable workbook: %v", err), err
	}

	candidates, err := transform.Transform(rows, h.tpl)
	if err != nil {
		return envelope.Errorf("malformed workbook: %v", err), err
	}

	// One credit per submitted workbook, charged to the institution
	// inferred from the first student's registration number. Billing
	// problems are logged, never block grading.
	h.debitSubmission(ctx, candidates[0].AM)

	committed := 0
	now := h.now()
	for i, c := range candidates {
		record, rowErr := toRecord(c)
		if rowErr == nil {
			rowErr = h.store.UpsertGrade(ctx, record)
		}
		if rowErr != nil {
			reply := envelope.Errorf("stored %d of %d grades; row %d: %v",
				committed, len(candidates), i+1, rowErr)
			return reply, fmt.Errorf("row %d: %w", i+1, rowErr)
		}

		committed++
		if committed == 1 {
			if logErr := h.store.TouchSubmissionLog(ctx, c.DeclarationPeriod, c.ClassTitle, now); logErr != nil {
				h.logger.Error("Failed to record submission timestamp", logErr, logging.LogFields{
					"declaration_period": c.DeclarationPeriod,
					"class_title":        c.ClassTitle,
				})
			}
		}
	}

	return envelope.OK("Processed %d grades", committed), nil
}

func (h *Handlers) debitSubmission(ctx context.Context, am string) {
	org, ok := ledger.OrganizationFor(am)
	if !ok {
		h.logger.Info("No institution for student prefix, skipping credit debit", logging.LogFields{
			"am": am,
		})
		return
	}
	if err := h.ledger.Debit(ctx, org); err != nil {
		h.logger.Error("Failed to debit submission credit", err, logging.LogFields{
			"institution": org,
		})
	}
}

func toRecord(c transform.Candidate) (*store.Grade, error) {
	if c.Grade == nil {
		return nil, ErrMissingGrade
	}
	return &store.Grade{
		AM:                c.AM,
		ClassTitle:        c.ClassTitle,
		DeclarationPeriod: c.DeclarationPeriod,
		Name:              c.Name,
		Email:             c.Email,
		GradingScale:      c.GradingScale,
		Grade:             *c.Grade,
		Q1:                c.Qs[0],
		Q2:                c.Qs[1],
		Q3:                c.Qs[2],
		Q4:                c.Qs[3],
		Q5:                c.Qs[4],
		Q6:                c.Qs[5],
		Q7:                c.Qs[6],
		Q8:                c.Qs[7],
		Q9:                c.Qs[8],
		Q10:               c.Qs[9],
	}, nil
}
