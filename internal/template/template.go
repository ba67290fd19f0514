// Package template describes the fixed spreadsheet layout a grade
// submission must follow. The descriptor is explicit and versioned so the
// layout can evolve without touching the transformer.
package template

import "strings"

// Fixed row layout of a grade submission workbook.
const (
	TitleRow  = 0
	WeightRow = 1
	HeaderRow = 2
	DataStart = 3

	// MinRows is the smallest workbook that carries any data rows.
	MinRows = 4
)

// Field identifies the grade-record attribute a column maps to.
type Field string

const (
	FieldAM           Field = "am"
	FieldName         Field = "name"
	FieldEmail        Field = "email"
	FieldPeriod       Field = "declaration_period"
	FieldClass        Field = "class_title"
	FieldGradingScale Field = "grading_scale"
	FieldGrade        Field = "grade"
)

// Kind tells the transformer how to parse a mapped cell.
type Kind int

const (
	KindString Kind = iota
	KindFloat
)

// ColumnSpec binds a header label to a target field.
type ColumnSpec struct {
	Label string
	Field Field
	Kind  Kind
}

// Template is a versioned descriptor of the submission layout: the labeled
// columns plus the fixed offsets of the weighted sub-score columns.
type Template struct {
	Version       int
	Columns       []ColumnSpec
	SubScoreBase  int
	SubScoreCount int
}

// Default returns descriptor version 1: the seven known header labels and
// sub-score columns I..R (offsets 8..17).
func Default() Template {
	return Template{
		Version: 1,
		Columns: []ColumnSpec{
			{Label: "Αριθμός Μητρώου", Field: FieldAM, Kind: KindString},
			{Label: "Ονοματεπώνυμο", Field: FieldName, Kind: KindString},
			{Label: "Ακαδημαϊκό E-mail", Field: FieldEmail, Kind: KindString},
			{Label: "Περίοδος δήλωσης", Field: FieldPeriod, Kind: KindString},
			{Label: "Τμήμα Τάξης", Field: FieldClass, Kind: KindString},
			{Label: "Κλίμακα βαθμολόγησης", Field: FieldGradingScale, Kind: KindString},
			{Label: "Βαθμολογία", Field: FieldGrade, Kind: KindFloat},
		},
		SubScoreBase:  8,
		SubScoreCount: 10,
	}
}

// Normalize canonicalizes a header label for matching: lowercased with
// runs of whitespace collapsed to single spaces.
func Normalize(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}

// ColumnFor resolves a header label against the descriptor. Unknown labels
// return ok=false and are ignored by the transformer.
func (t Template) ColumnFor(label string) (ColumnSpec, bool) {
	want := Normalize(label)
	for _, col := range t.Columns {
		if Normalize(col.Label) == want {
			return col, true
		}
	}
	return ColumnSpec{}, false
}
