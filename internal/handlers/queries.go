package handlers

import (
	"context"
	"strings"

	"github.com/clearsky/gradeflow/internal/bus"
	"github.com/clearsky/gradeflow/internal/envelope"
	"github.com/clearsky/gradeflow/internal/jsoncodec"
	"github.com/clearsky/gradeflow/internal/stats"
)

// SubmissionLog returns every recorded submission, oldest first. The
// request body carries no parameters.
func (h *Handlers) SubmissionLog(ctx context.Context, _ bus.Delivery) (*envelope.Reply, error) {
	logs, err := h.store.ListSubmissionLogs(ctx)
	if err != nil {
		return envelope.Errorf("failed to read submission log: %v", err), err
	}
	return envelope.OKData(logs), nil
}

type histogramRequest struct {
	ClassTitle        string `json:"classTitle"`
	DeclarationPeriod string `json:"declarationPeriod"`
}

// Histogram computes dense grade and sub-question distributions for one
// class in one declaration period. A request missing fields is answered
// with the full list of missing names and acknowledged, since resending
// it unchanged can never succeed.
func (h *Handlers) Histogram(ctx context.Context, d bus.Delivery) (*envelope.Reply, error) {
	var req histogramRequest
	if err := jsoncodec.Unmarshal(d.Payload, &req); err != nil {
		return envelope.Errorf("malformed request body: %v", err), err
	}

	missing := missingFields(map[string]string{
		"classTitle":        req.ClassTitle,
		"declarationPeriod": req.DeclarationPeriod,
	}, "declarationPeriod", "classTitle")
	if len(missing) > 0 {
		return envelope.Errorf("missing required fields: %s", strings.Join(missing, ", ")), nil
	}

	scores, err := h.store.ScoresFor(ctx, req.ClassTitle, req.DeclarationPeriod)
	if err != nil {
		return envelope.Errorf("failed to read grades: %v", err), err
	}

	return envelope.OKData(stats.Build(scores)), nil
}

type studentGradesRequest struct {
	AM        string `json:"AM"`
	StudentID string `json:"student_id"`
}

func (r studentGradesRequest) studentNumber() string {
	if strings.TrimSpace(r.AM) != "" {
		return strings.TrimSpace(r.AM)
	}
	return strings.TrimSpace(r.StudentID)
}

// StudentGrades lists every stored grade for one student. The student
// registration number is accepted under either the "AM" or the
// "student_id" key, since requesters disagree on the field name.
func (h *Handlers) StudentGrades(ctx context.Context, d bus.Delivery) (*envelope.Reply, error) {
	var req studentGradesRequest
	if err := jsoncodec.Unmarshal(d.Payload, &req); err != nil {
		return envelope.Errorf("malformed request body: %v", err), err
	}

	am := req.studentNumber()
	if am == "" {
		return envelope.Errorf("missing required fields: AM"), nil
	}

	grades, err := h.store.GradesByStudent(ctx, am)
	if err != nil {
		return envelope.Errorf("failed to read grades: %v", err), err
	}

	return envelope.OKData(grades), nil
}
