// Package stats computes dense score-distribution histograms at query
// time. Every integer category inside the axis is present, with a zero
// count where no value fell, so the output axis has no gaps.
package stats

import (
	"fmt"
	"math"
)

// GradeDimension is the overall-grade dimension with its fixed 0..10 axis.
// Sub-question axes extend only to the highest observed rounded value.
const GradeDimension = "grade"

const (
	gradeAxisMax  = 10
	subScoreCount = 10
)

// Histogram pairs an ordered, contiguous integer category axis with the
// per-category counts.
type Histogram struct {
	Categories []int `json:"categories"`
	Data       []int `json:"data"`
}

// Dimensions lists every histogram dimension in reply order.
func Dimensions() []string {
	dims := make([]string, 0, 1+subScoreCount)
	dims = append(dims, GradeDimension)
	for i := 1; i <= subScoreCount; i++ {
		dims = append(dims, fmt.Sprintf("Q%d", i))
	}
	return dims
}

// Build produces one dense histogram per dimension. Dimensions missing
// from scores still appear, with an all-zero (grade) or single-zero
// (sub-question) axis.
func Build(scores map[string][]float64) map[string]Histogram {
	out := make(map[string]Histogram, 1+subScoreCount)
	for _, dim := range Dimensions() {
		out[dim] = buildOne(dim, scores[dim])
	}
	return out
}

// buildOne drops values that round outside the axis: negatives always,
// and anything above 10 on the grade axis. They never show up as an
// inflated edge bin.
func buildOne(dim string, values []float64) Histogram {
	counts := make(map[int]int, len(values))
	maxSeen := 0
	for _, v := range values {
		r := int(math.Round(v))
		if r < 0 {
			continue
		}
		if dim == GradeDimension && r > gradeAxisMax {
			continue
		}
		counts[r]++
		if r > maxSeen {
			maxSeen = r
		}
	}

	axisMax := maxSeen
	if dim == GradeDimension {
		axisMax = gradeAxisMax
	}

	h := Histogram{
		Categories: make([]int, axisMax+1),
		Data:       make([]int, axisMax+1),
	}
	for v := 0; v <= axisMax; v++ {
		h.Categories[v] = v
		h.Data[v] = counts[v]
	}
	return h
}
