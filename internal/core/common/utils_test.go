package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Score int    `json:"score"`
	Note  string `json:"note"`
}

func TestParseJSON(t *testing.T) {
	got, err := ParseJSON[sample]("Here you go:\n```json\n{\"score\": 7, \"note\": \"ok {fine}\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, sample{Score: 7, Note: "ok {fine}"}, got)

	_, err = ParseJSON[sample]("no object here")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ParseJSON[sample]("{\"score\": \"seven\"}")
	assert.Error(t, err)
}
