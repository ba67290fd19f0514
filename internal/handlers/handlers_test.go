package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/xuri/excelize/v2"

	"github.com/clearsky/gradeflow/internal/logging"
	"github.com/clearsky/gradeflow/internal/store"
)

type touchCall struct {
	period string
	class  string
	now    time.Time
}

type fakeStore struct {
	upserts     []*store.Grade
	failUpsert  int // 1-based call number that fails, 0 = never
	upsertErr   error
	touches     []touchCall
	touchErr    error
	logs        []store.SubmissionLog
	logsErr     error
	grades      []store.StudentGrade
	gradesErr   error
	lastStudent string
	scores      map[string][]float64
	scoresErr   error
	lastClass   string
	lastPeriod  string
}

func (f *fakeStore) UpsertGrade(_ context.Context, g *store.Grade) error {
	if f.failUpsert > 0 && len(f.upserts)+1 == f.failUpsert {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, g)
	return nil
}

func (f *fakeStore) TouchSubmissionLog(_ context.Context, period, class string, now time.Time) error {
	f.touches = append(f.touches, touchCall{period: period, class: class, now: now})
	return f.touchErr
}

func (f *fakeStore) ListSubmissionLogs(_ context.Context) ([]store.SubmissionLog, error) {
	return f.logs, f.logsErr
}

func (f *fakeStore) GradesByStudent(_ context.Context, am string) ([]store.StudentGrade, error) {
	f.lastStudent = am
	return f.grades, f.gradesErr
}

func (f *fakeStore) ScoresFor(_ context.Context, class, period string) (map[string][]float64, error) {
	f.lastClass = class
	f.lastPeriod = period
	return f.scores, f.scoresErr
}

type fakeLedger struct {
	debits   []string
	debitErr error
	topUps   map[string]int
	topUpErr error
}

func (f *fakeLedger) Debit(_ context.Context, name string) error {
	f.debits = append(f.debits, name)
	return f.debitErr
}

func (f *fakeLedger) TopUp(_ context.Context, name string, amount int) error {
	if f.topUpErr != nil {
		return f.topUpErr
	}
	if f.topUps == nil {
		f.topUps = make(map[string]int)
	}
	f.topUps[name] += amount
	return nil
}

func newTestHandlers(st *fakeStore, lg *fakeLedger) *Handlers {
	h := New(st, lg, logging.NewWatermillServiceLogger(watermill.NopLogger{}))
	h.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return h
}

// buildWorkbook renders the row grid into a real xlsx file.
func buildWorkbook(t *testing.T, rows [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheetName := f.GetSheetName(0)

	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// workbookRows assembles the fixed grid layout with default headers.
func workbookRows(data ...[]string) [][]string {
	rows := [][]string{
		{"Βαθμολόγιο Μαθήματος"},
		{"", "", "", "", "", "", "", "", "0.5", "1.0"},
		{
			"Αριθμός Μητρώου", "Ονοματεπώνυμο", "Ακαδημαϊκό E-mail",
			"Περίοδος δήλωσης", "Τμήμα Τάξης", "Κλίμακα βαθμολόγησης",
			"Βαθμολογία",
		},
	}
	return append(rows, data...)
}

func dataRow(am, grade string) []string {
	return []string{am, "Student " + am, fmt.Sprintf("%s@mail.ntua.gr", am), "2024-2025 Χειμερινό", "Λογισμικό", "0-10", grade}
}

var errBoom = errors.New("boom")
