package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrMissingStudentID rejects rows without a student registration number.
	ErrMissingStudentID = errors.New("store: student id is required")
	// ErrMissingIdentity rejects rows without class title or declaration period.
	ErrMissingIdentity = errors.New("store: class title and declaration period are required")
	// ErrMissingContact rejects rows without the student's name or email.
	ErrMissingContact = errors.New("store: student name and email are required")
)

// GradeStore runs idempotent row-at-a-time writes against the shared
// database connection. Batches are deliberately NOT wrapped in a
// transaction: if row k fails, rows 1..k-1 stay committed and the caller
// reports how many rows made it.
type GradeStore struct {
	db *gorm.DB
}

func NewGradeStore(db *gorm.DB) *GradeStore {
	return &GradeStore{db: db}
}

// Migrate creates the grade and submission-log tables.
func (s *GradeStore) Migrate() error {
	return s.db.AutoMigrate(&Grade{}, &SubmissionLog{})
}

// UpsertGrade inserts the record, or overwrites the mutable fields when
// the identity (am, class_title, declaration_period) already exists. An
// overwrite marks the record updated via grading_status.
func (s *GradeStore) UpsertGrade(ctx context.Context, g *Grade) error {
	if g.AM == "" {
		return ErrMissingStudentID
	}
	if g.ClassTitle == "" || g.DeclarationPeriod == "" {
		return ErrMissingIdentity
	}
	if g.Name == "" || g.Email == "" {
		return ErrMissingContact
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "am"}, {Name: "class_title"}, {Name: "declaration_period"},
		},
		DoUpdates: clause.Assignments(map[string]any{
			"name":           g.Name,
			"email":          g.Email,
			"grading_scale":  g.GradingScale,
			"grade":          g.Grade,
			"q1":             g.Q1,
			"q2":             g.Q2,
			"q3":             g.Q3,
			"q4":             g.Q4,
			"q5":             g.Q5,
			"q6":             g.Q6,
			"q7":             g.Q7,
			"q8":             g.Q8,
			"q9":             g.Q9,
			"q10":            g.Q10,
			"grading_status": 1,
		}),
	}).Create(g).Error
	if err != nil {
		return fmt.Errorf("store: upsert grade for %s/%s/%s: %w",
			g.AM, g.ClassTitle, g.DeclarationPeriod, err)
	}
	return nil
}

// TouchSubmissionLog creates the log entry with initial == final == now on
// the first ingestion for (period, class), and advances only the final
// timestamp afterwards.
func (s *GradeStore) TouchSubmissionLog(ctx context.Context, period, class string, now time.Time) error {
	var entry SubmissionLog
	err := s.db.WithContext(ctx).
		Where("declaration_period = ? AND class_title = ?", period, class).
		First(&entry).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		entry = SubmissionLog{
			DeclarationPeriod:     period,
			ClassTitle:            class,
			InitialSubmissionDate: now,
			FinalSubmissionDate:   now,
		}
		if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
			return fmt.Errorf("store: create submission log for %s/%s: %w", period, class, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("store: read submission log for %s/%s: %w", period, class, err)
	default:
		err := s.db.WithContext(ctx).Model(&SubmissionLog{}).
			Where("declaration_period = ? AND class_title = ?", period, class).
			UpdateColumn("final_submission_date", now).Error
		if err != nil {
			return fmt.Errorf("store: advance submission log for %s/%s: %w", period, class, err)
		}
		return nil
	}
}

// ListSubmissionLogs returns every submission-log entry.
func (s *GradeStore) ListSubmissionLogs(ctx context.Context) ([]SubmissionLog, error) {
	var logs []SubmissionLog
	if err := s.db.WithContext(ctx).Order("declaration_period, class_title").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("store: list submission logs: %w", err)
	}
	return logs, nil
}

// GradesByStudent returns the per-class grade rows for one student.
func (s *GradeStore) GradesByStudent(ctx context.Context, am string) ([]StudentGrade, error) {
	var rows []StudentGrade
	err := s.db.WithContext(ctx).Model(&Grade{}).
		Select("declaration_period, class_title, grading_status, grade").
		Where("am = ?", am).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: grades for %s: %w", am, err)
	}
	return rows, nil
}

// ScoresFor returns the stored numeric values per histogram dimension for
// one (class, period) pair. Absent sub-scores are skipped.
func (s *GradeStore) ScoresFor(ctx context.Context, class, period string) (map[string][]float64, error) {
	var grades []Grade
	err := s.db.WithContext(ctx).
		Where("class_title = ? AND declaration_period = ?", class, period).
		Find(&grades).Error
	if err != nil {
		return nil, fmt.Errorf("store: scores for %s/%s: %w", class, period, err)
	}

	scores := make(map[string][]float64, 11)
	for _, g := range grades {
		scores["grade"] = append(scores["grade"], g.Grade)
		for i, q := range g.subScores() {
			if q != nil {
				dim := fmt.Sprintf("Q%d", i+1)
				scores[dim] = append(scores[dim], *q)
			}
		}
	}
	return scores, nil
}

func (g *Grade) subScores() [10]*float64 {
	return [10]*float64{g.Q1, g.Q2, g.Q3, g.Q4, g.Q5, g.Q6, g.Q7, g.Q8, g.Q9, g.Q10}
}
