package models

import (
	"fmt"

	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

// Grade is the closed set of letter grades a student can hold for a course.
type Grade int

const (
	GradeA Grade = iota + 1
	GradeB
	GradeC
	GradeD
	GradeE
	GradeF
)

var gradeTokens = map[Grade]string{
	GradeA: "A",
	GradeB: "B",
	GradeC: "C",
	GradeD: "D",
	GradeE: "E",
	GradeF: "F",
}

var gradesByToken = map[string]Grade{
	"A": GradeA,
	"B": GradeB,
	"C": GradeC,
	"D": GradeD,
	"E": GradeE,
	"F": GradeF,
}

// ParseGrade resolves an exact, case-sensitive token into a Grade.
func ParseGrade(token string) (Grade, error) {
	if g, ok := gradesByToken[token]; ok {
		return g, nil
	}
	return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade is incorrect: '%s'", token))
}

// Valid reports whether g belongs to the closed set.
func (g Grade) Valid() bool {
	_, ok := gradeTokens[g]
	return ok
}

func (g Grade) String() string {
	if token, ok := gradeTokens[g]; ok {
		return token
	}
	return fmt.Sprintf("Grade(%d)", int(g))
}
