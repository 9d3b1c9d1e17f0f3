package repository

import (
	"strings"
	"testing"
	"time"

	"AstroPull/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChartEventInserts(t *testing.T) {
	ts := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	events := []*models.ChartEvent{
		{
			EventID: "e1", Kind: models.ChartKindNatal, Subject: "Ada", City: "Tehran", Timestamp: ts, BodyCount: 10,
			Elements: models.ElementSummary{Fire: 20, Earth: 20, Air: 30, Water: 30},
			Aspects: []models.AspectRecord{
				{BodyA: "Sun", BodyB: "Moon", Aspect: "Square", Angle: 90},
				{BodyA: "Sun", BodyB: "Mars", Aspect: "Trine", Angle: 118.5},
			},
		},
		nil,
		{EventID: "", Kind: models.ChartKindToday},
		{EventID: "e2", Kind: models.ChartKindToday, Timestamp: ts},
	}

	evQ, evArgs, asQ, asArgs := buildChartEventInserts("astro", events)

	require.NotEmpty(t, evQ)
	assert.True(t, strings.HasPrefix(evQ, "INSERT INTO astro.chart_events"))
	assert.Equal(t, 2, strings.Count(evQ, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"))
	assert.Len(t, evArgs, 20)
	assert.Equal(t, uint8(10), evArgs[5])

	assert.True(t, strings.HasPrefix(asQ, "INSERT INTO astro.chart_aspects"))
	assert.Len(t, asArgs, 14)
	assert.Equal(t, "Trine", asArgs[12])
}

func TestBuildChartEventInsertsNoAspects(t *testing.T) {
	evQ, _, asQ, asArgs := buildChartEventInserts("astro", []*models.ChartEvent{{EventID: "e"}})
	assert.NotEmpty(t, evQ)
	assert.Empty(t, asQ)
	assert.Nil(t, asArgs)

	evQ, _, _, _ = buildChartEventInserts("astro", nil)
	assert.Empty(t, evQ)
}

func TestStatsFilter(t *testing.T) {
	from := time.Unix(0, 0)
	to := time.Unix(100, 0)

	where, args := statsFilter(from, to, "")
	assert.Equal(t, "ts >= ? AND ts <= ?", where)
	assert.Len(t, args, 2)

	where, args = statsFilter(from, to, "natal")
	assert.Contains(t, where, "kind = ?")
	assert.Equal(t, "natal", args[2])
}

func TestChartEventSchema(t *testing.T) {
	stmts := ChartEventSchema("astro")
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[1], "astro.chart_events")
	assert.Contains(t, stmts[2], "astro.chart_aspects")
}
