package models

import (
	"fmt"
	"maps"
	"strings"
)

// GradeKeys are the accepted keys of Enrollment.Grades.
var GradeKeys = []string{
	"kinder",
	"grade_1", "grade_2", "grade_3", "grade_4", "grade_5", "grade_6",
	"grade_7", "grade_8", "grade_9", "grade_10",
	"grade_11", "grade_12",
}

// Strands are the senior high school tracks counted per grade.
var Strands = []string{
	"abm", "stem", "humss", "gas",
	"tvl_ict", "tvl_he", "tvl_ia", "tvl_afa",
	"arts", "sports",
}

// IsGradeKey reports whether k names a grade level.
func IsGradeKey(k string) bool {
	for _, g := range GradeKeys {
		if g == k {
			return true
		}
	}
	return false
}

// IsStrandKey reports whether k is a strand count key such as "grade_11_stem".
func IsStrandKey(k string) bool {
	for _, grade := range []string{"grade_11_", "grade_12_"} {
		if rest, ok := strings.CutPrefix(k, grade); ok {
			for _, s := range Strands {
				if s == rest {
					return true
				}
			}
		}
	}
	return false
}

// Enrollment is the dependent enrollment record of a school. Nil fields are
// unset; when used as a patch, nil fields are left unchanged.
type Enrollment struct {
	CurricularOffering *string        `json:"curricular_offering,omitempty" validate:"omitempty,max=128"`
	ESTotal            *int           `json:"es_total,omitempty" validate:"omitempty,gte=0"`
	JHSTotal           *int           `json:"jhs_total,omitempty" validate:"omitempty,gte=0"`
	SHSTotal           *int           `json:"shs_total,omitempty" validate:"omitempty,gte=0"`
	GrandTotal         *int           `json:"grand_total,omitempty" validate:"omitempty,gte=0"`
	Grades             map[string]int `json:"grades,omitempty" validate:"omitempty,dive,keys,gradekey,endkeys,gte=0"`
	Strands            map[string]int `json:"strands,omitempty" validate:"omitempty,dive,keys,strandkey,endkeys,gte=0"`
}

// IsEmpty reports whether no field is set.
func (e Enrollment) IsEmpty() bool {
	return e.CurricularOffering == nil && e.ESTotal == nil && e.JHSTotal == nil &&
		e.SHSTotal == nil && e.GrandTotal == nil && len(e.Grades) == 0 && len(e.Strands) == 0
}

// Merge returns a copy of e with every field set in patch applied on top.
func (e Enrollment) Merge(patch Enrollment) Enrollment {
	out := e
	if patch.CurricularOffering != nil {
		out.CurricularOffering = patch.CurricularOffering
	}
	if patch.ESTotal != nil {
		out.ESTotal = patch.ESTotal
	}
	if patch.JHSTotal != nil {
		out.JHSTotal = patch.JHSTotal
	}
	if patch.SHSTotal != nil {
		out.SHSTotal = patch.SHSTotal
	}
	if patch.GrandTotal != nil {
		out.GrandTotal = patch.GrandTotal
	}
	out.Grades = mergeCounts(e.Grades, patch.Grades)
	out.Strands = mergeCounts(e.Strands, patch.Strands)
	return out
}

func mergeCounts(base, patch map[string]int) map[string]int {
	if len(base) == 0 && len(patch) == 0 {
		return nil
	}
	out := make(map[string]int, len(base)+len(patch))
	maps.Copy(out, base)
	maps.Copy(out, patch)
	return out
}

// Total is the grand total when recorded, otherwise the sum of the level totals.
func (e Enrollment) Total() int {
	if e.GrandTotal != nil {
		return *e.GrandTotal
	}
	total := 0
	for _, v := range []*int{e.ESTotal, e.JHSTotal, e.SHSTotal} {
		if v != nil {
			total += *v
		}
	}
	return total
}

// Describe summarizes the fields set in e, for use as an audit detail.
func (e Enrollment) Describe() string {
	var parts []string
	if e.CurricularOffering != nil {
		parts = append(parts, "Curricular offering: "+*e.CurricularOffering)
	}
	for _, f := range []struct {
		label string
		v     *int
	}{
		{"ES total", e.ESTotal},
		{"JHS total", e.JHSTotal},
		{"SHS total", e.SHSTotal},
		{"Grand total", e.GrandTotal},
	} {
		if f.v != nil {
			parts = append(parts, fmt.Sprintf("%s: %d", f.label, *f.v))
		}
	}
	if n := len(e.Grades); n > 0 {
		parts = append(parts, fmt.Sprintf("%d grade counts", n))
	}
	if n := len(e.Strands); n > 0 {
		parts = append(parts, fmt.Sprintf("%d strand counts", n))
	}
	if len(parts) == 0 {
		return "No changes"
	}
	return strings.Join(parts, "; ")
}
