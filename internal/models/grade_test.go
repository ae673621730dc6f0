package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

func TestParseGradeRoundTrip(t *testing.T) {
	for _, token := range []string{"A", "B", "C", "D", "E", "F"} {
		g, err := ParseGrade(token)
		require.NoError(t, err, token)
		assert.True(t, g.Valid())
		assert.Equal(t, token, g.String())
	}
}

func TestParseGradeRejectsUnknownTokens(t *testing.T) {
	for _, token := range []string{"Z", "Q", "G", "e", "a", " A", "A ", ""} {
		_, err := ParseGrade(token)
		require.Error(t, err, token)
		assert.True(t, errors.Is(err, appErrors.ErrValidation))
		assert.Equal(t, "grade is incorrect: '"+token+"'", err.Error())
	}
}

func TestGradeStringOutsideSet(t *testing.T) {
	assert.False(t, Grade(0).Valid())
	assert.Equal(t, "Grade(9)", Grade(9).String())
}

func TestGradeOrdinals(t *testing.T) {
	e, err := ParseGrade("E")
	require.NoError(t, err)
	assert.Equal(t, GradeE, e)
	assert.Equal(t, GradeD+1, GradeE)
	assert.Equal(t, Grade(6), GradeF)
	assert.False(t, Grade(7).Valid())
}
