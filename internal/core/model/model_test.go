package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseStage(t *testing.T) {
	st, err := ParseStage("closed won")
	assert.NoError(t, err)
	assert.Equal(t, StageClosedWon, st)

	st, err = ParseStage(" Meeting ")
	assert.NoError(t, err)
	assert.Equal(t, StageMeeting, st)

	_, err = ParseStage("Ghosted")
	assert.Error(t, err)
}

func TestLead_IsScored(t *testing.T) {
	now := time.Now()
	assert.False(t, (&Lead{}).IsScored())
	assert.False(t, (&Lead{Score: 40}).IsScored())
	assert.True(t, (&Lead{Score: 40, LastScoredAt: &now}).IsScored())
	assert.True(t, (&Lead{Score: 40, ScoreReasoning: &ScoreReasoning{}}).IsScored())
	assert.False(t, (&Lead{Score: 0, LastScoredAt: &now}).IsScored())
}

func TestCampaignName(t *testing.T) {
	assert.Equal(t, "plumbers in Leeds", CampaignName(" plumbers ", "Leeds "))
}
