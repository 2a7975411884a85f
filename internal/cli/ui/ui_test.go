package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"uniTrack/internal/attendance"
	"uniTrack/internal/database"
)

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", ProgressBar(50, 10))
	assert.Equal(t, "░░░░░░░░░░", ProgressBar(-5, 10))
	assert.Equal(t, "██████████", ProgressBar(140, 10))
	assert.Equal(t, "", ProgressBar(50, 0))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "✓ SAFE", StatusLabel(attendance.StatusSafe, false))
	assert.Equal(t, ColorRed+"✗ LOW"+ColorReset, StatusLabel(attendance.StatusLow, true))
}

func TestAgo(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "никогда", Ago(time.Time{}, now))
	assert.Equal(t, "только что", Ago(now.Add(-10*time.Second), now))
	assert.Equal(t, "15 мин назад", Ago(now.Add(-15*time.Minute), now))
	assert.Equal(t, "3 ч назад", Ago(now.Add(-3*time.Hour), now))
	assert.Equal(t, "5 дн назад", Ago(now.Add(-5*24*time.Hour), now))
}

func TestRenderSubjects(t *testing.T) {
	analysis := attendance.AnalyzeAll([]attendance.SubjectRecord{
		attendance.NewSubjectRecord("Data Structures", "CS201", 70, 20, "", "Sem 3"),
	}, attendance.DefaultThresholds())

	var buf bytes.Buffer
	RenderSubjects(&buf, analysis.Subjects, analysis.Summary, false)

	out := buf.String()
	assert.Contains(t, out, "Data Structures")
	assert.Contains(t, out, "70/90")
	assert.Contains(t, out, "Critical! Can only miss 3 class(es)")
	assert.NotContains(t, out, "\033[")
}

func TestRenderHistory(t *testing.T) {
	var buf bytes.Buffer
	RenderHistory(&buf, []database.FetchRun{{
		ID:                7,
		Institution:       "CMRIT",
		SubjectCount:      6,
		OverallPercentage: 81.5,
		OverallStatus:     string(attendance.StatusCritical),
		CreatedAt:         time.Now(),
	}}, false)

	assert.Contains(t, buf.String(), "CMRIT")
	assert.Contains(t, buf.String(), "81.50")
	assert.Contains(t, buf.String(), "CRITICAL")
}
