// Package transform converts decoded workbook rows into normalized grade
// candidates according to a template descriptor.
package transform

import (
	"errors"
	"strconv"
	"strings"

	"github.com/clearsky/gradeflow/internal/template"
)

// SubScoreCount fixes the number of weighted sub-scores a record can carry.
const SubScoreCount = 10

// ErrTemplateTooShort rejects workbooks that cannot contain a data row.
var ErrTemplateTooShort = errors.New("transform: template too short")

// Candidate is one normalized grade record candidate. String fields are
// trimmed; Grade and the sub-scores are nil when the source cell was
// absent or not numeric. Candidates without a student id are still
// produced; rejecting them is the store's responsibility.
type Candidate struct {
	AM                string
	Name              string
	Email             string
	DeclarationPeriod string
	ClassTitle        string
	GradingScale      string
	Grade             *float64
	Qs                [SubScoreCount]*float64
}

// Transform maps every data row of the workbook onto a Candidate. The
// weight row supplies the per-column multiplier for the sub-scores:
// Q_i = raw * weight iff both cells parse as numbers, otherwise absent.
func Transform(rows [][]string, tpl template.Template) ([]Candidate, error) {
	if len(rows) < template.MinRows {
		return nil, ErrTemplateTooShort
	}

	weightRow := rows[template.WeightRow]
	headerRow := rows[template.HeaderRow]
	dataRows := rows[template.DataStart:]

	candidates := make([]Candidate, 0, len(dataRows))
	for _, row := range dataRows {
		var c Candidate

		for i, label := range headerRow {
			col, ok := tpl.ColumnFor(label)
			if !ok {
				continue
			}
			cell := strings.TrimSpace(cellAt(row, i))
			if cell == "" {
				continue
			}
			switch col.Kind {
			case template.KindFloat:
				if v, err := strconv.ParseFloat(cell, 64); err == nil {
					c.setFloat(col.Field, v)
				}
			default:
				c.setString(col.Field, cell)
			}
		}

		count := tpl.SubScoreCount
		if count > SubScoreCount {
			count = SubScoreCount
		}
		for i := 0; i < count; i++ {
			idx := tpl.SubScoreBase + i
			raw, rawOK := parseCell(row, idx)
			weight, weightOK := parseCell(weightRow, idx)
			if rawOK && weightOK {
				v := raw * weight
				c.Qs[i] = &v
			}
		}

		candidates = append(candidates, c)
	}
	return candidates, nil
}

func (c *Candidate) setString(f template.Field, v string) {
	switch f {
	case template.FieldAM:
		c.AM = v
	case template.FieldName:
		c.Name = v
	case template.FieldEmail:
		c.Email = v
	case template.FieldPeriod:
		c.DeclarationPeriod = v
	case template.FieldClass:
		c.ClassTitle = v
	case template.FieldGradingScale:
		c.GradingScale = v
	}
}

func (c *Candidate) setFloat(f template.Field, v float64) {
	if f == template.FieldGrade {
		c.Grade = &v
	}
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func parseCell(row []string, i int) (float64, bool) {
	cell := strings.TrimSpace(cellAt(row, i))
	if cell == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
