// Package store persists grade records and submission timestamps. Every
// write is a single-row idempotent operation; the unique identity index
// is the only concurrency-control boundary, so redelivered batches never
// duplicate records regardless of completion order.
package store

import "time"

// Grade is one student's grade for a class in a declaration period.
// Identity is (am, class_title, declaration_period); re-ingestion of the
// same identity overwrites the mutable fields and flips GradingStatus.
type Grade struct {
	ID                uint   `gorm:"primaryKey"`
	AM                string `gorm:"column:am;uniqueIndex:idx_grade_identity;not null"`
	ClassTitle        string `gorm:"uniqueIndex:idx_grade_identity;not null"`
	DeclarationPeriod string `gorm:"uniqueIndex:idx_grade_identity;not null"`
	Name              string
	Email             string
	GradingScale      string
	Grade             float64
	Q1                *float64 `gorm:"column:q1"`
	Q2                *float64 `gorm:"column:q2"`
	Q3                *float64 `gorm:"column:q3"`
	Q4                *float64 `gorm:"column:q4"`
	Q5                *float64 `gorm:"column:q5"`
	Q6                *float64 `gorm:"column:q6"`
	Q7                *float64 `gorm:"column:q7"`
	Q8                *float64 `gorm:"column:q8"`
	Q9                *float64 `gorm:"column:q9"`
	Q10               *float64 `gorm:"column:q10"`
	GradingStatus     int      `gorm:"not null;default:0"`
}

func (Grade) TableName() string { return "grading" }

// SubmissionLog records when grades for (declaration period, class) were
// first and last submitted. Created once with initial == final; later
// ingestions only advance the final timestamp.
type SubmissionLog struct {
	ID                    uint      `gorm:"primaryKey" json:"-"`
	DeclarationPeriod     string    `gorm:"uniqueIndex:idx_submission_identity;not null" json:"declarationPeriod"`
	ClassTitle            string    `gorm:"uniqueIndex:idx_submission_identity;not null" json:"classTitle"`
	InitialSubmissionDate time.Time `json:"initialSubmissionDate"`
	FinalSubmissionDate   time.Time `json:"finalSubmissionDate"`
}

func (SubmissionLog) TableName() string { return "submission_log" }

// StudentGrade is the projection returned by the per-student lookup.
type StudentGrade struct {
	DeclarationPeriod string  `json:"declarationPeriod"`
	ClassTitle        string  `json:"classTitle"`
	GradingStatus     int     `json:"gradingStatus"`
	Grade             float64 `json:"grade"`
}
