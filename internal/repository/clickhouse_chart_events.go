package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"AstroPull/internal/domain/models"
	domrepo "AstroPull/internal/domain/repository"
	pkgch "AstroPull/pkg/clickhouse"
	applogger "AstroPull/pkg/logger"
)

// ChartEventSchema returns idempotent DDL for the chart event tables in database db.
func ChartEventSchema(db string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.chart_events (
            event_id   String,
            ts         DateTime64(3, 'UTC'),
            kind       LowCardinality(String),
            subject    String,
            city       String,
            body_count UInt8,
            fire       Float64,
            earth      Float64,
            air        Float64,
            water      Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (kind, ts, event_id)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.chart_aspects (
            event_id String,
            ts       DateTime64(3, 'UTC'),
            kind     LowCardinality(String),
            planet1  LowCardinality(String),
            planet2  LowCardinality(String),
            aspect   LowCardinality(String),
            angle    Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (kind, aspect, ts, event_id, planet1, planet2)`, db),
	}
}

// CHChartEvents stores chart events in ClickHouse and serves the stats queries.
type CHChartEvents struct {
	client *pkgch.Client
	db     *sql.DB
	schema string
	l      *applogger.Logger
}

// NewCHChartEvents creates the store for database schema.
func NewCHChartEvents(ch *pkgch.Client, schema string, l *applogger.Logger) *CHChartEvents {
	if schema == "" {
		schema = "astro"
	}
	return &CHChartEvents{client: ch, db: ch.DB(), schema: schema, l: l}
}

var (
	_ domrepo.Storage          = (*CHChartEvents)(nil)
	_ domrepo.ChartStatsReader = (*CHChartEvents)(nil)
)

func (s *CHChartEvents) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, ChartEventSchema(s.schema))
}

func (s *CHChartEvents) Store(ctx context.Context, e *models.ChartEvent) error {
	return s.StoreBatch(ctx, []*models.ChartEvent{e})
}

// StoreBatch writes events and their aspects as two multi-row inserts per chunk.
func (s *CHChartEvents) StoreBatch(ctx context.Context, events []*models.ChartEvent) error {
	if len(events) == 0 {
		return nil
	}
	const chunkSize = 1000
	for start := 0; start < len(events); start += chunkSize {
		end := start + chunkSize
		if end > len(events) {
			end = len(events)
		}
		evQ, evArgs, asQ, asArgs := buildChartEventInserts(s.schema, events[start:end])
		if evQ == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, evQ, evArgs...); err != nil {
			return fmt.Errorf("insert chart events: %w", err)
		}
		if asQ == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, asQ, asArgs...); err != nil {
			return fmt.Errorf("insert chart aspects: %w", err)
		}
	}
	return nil
}

func buildChartEventInserts(schema string, events []*models.ChartEvent) (string, []interface{}, string, []interface{}) {
	evValues := make([]string, 0, len(events))
	evArgs := make([]interface{}, 0, len(events)*10)
	asValues := make([]string, 0, len(events)*4)
	asArgs := make([]interface{}, 0, len(events)*4*7)

	for _, e := range events {
		if e == nil || e.EventID == "" {
			continue
		}
		ts := e.Timestamp.UTC()
		evValues = append(evValues, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		evArgs = append(evArgs,
			e.EventID, ts, e.Kind, e.Subject, e.City, uint8(e.BodyCount),
			e.Elements.Fire, e.Elements.Earth, e.Elements.Air, e.Elements.Water,
		)
		for _, a := range e.Aspects {
			asValues = append(asValues, "(?, ?, ?, ?, ?, ?, ?)")
			asArgs = append(asArgs, e.EventID, ts, e.Kind, a.BodyA, a.BodyB, a.Aspect, a.Angle)
		}
	}
	if len(evValues) == 0 {
		return "", nil, "", nil
	}

	evQ := fmt.Sprintf(
		"INSERT INTO %s.chart_events (event_id, ts, kind, subject, city, body_count, fire, earth, air, water) VALUES %s",
		schema, strings.Join(evValues, ","))
	if len(asValues) == 0 {
		return evQ, evArgs, "", nil
	}
	asQ := fmt.Sprintf(
		"INSERT INTO %s.chart_aspects (event_id, ts, kind, planet1, planet2, aspect, angle) VALUES %s",
		schema, strings.Join(asValues, ","))
	return evQ, evArgs, asQ, asArgs
}

// AspectFrequencies counts aspects per name over [from, to], most frequent first.
func (s *CHChartEvents) AspectFrequencies(ctx context.Context, from, to time.Time, kind string, limit int) ([]models.AspectFrequency, error) {
	start := time.Now()
	where, args := statsFilter(from, to, kind)
	q := fmt.Sprintf(`
        SELECT aspect, count() AS n, avg(angle) AS avg_angle
        FROM %s.chart_aspects FINAL
        WHERE %s
        GROUP BY aspect
        ORDER BY n DESC, aspect ASC
        LIMIT ?`, s.schema, where)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.logError("aspect_frequencies query error", kind, err)
		return nil, fmt.Errorf("aspect frequencies: %w", err)
	}
	defer rows.Close()

	out := make([]models.AspectFrequency, 0, 5)
	for rows.Next() {
		var f models.AspectFrequency
		if err := rows.Scan(&f.Aspect, &f.Count, &f.AvgAngle); err != nil {
			s.logError("aspect_frequencies scan error", kind, err)
			return nil, fmt.Errorf("scan aspect frequency: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse aspect_frequencies ok",
			applogger.String("kind", kind),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// ElementAverages returns mean element percentages over [from, to].
func (s *CHChartEvents) ElementAverages(ctx context.Context, from, to time.Time, kind string) (models.ElementAverages, error) {
	where, args := statsFilter(from, to, kind)
	q := fmt.Sprintf(`
        SELECT count() AS n, avg(fire), avg(earth), avg(air), avg(water)
        FROM %s.chart_events FINAL
        WHERE %s`, s.schema, where)

	var out models.ElementAverages
	var fire, earth, air, water sql.NullFloat64
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&out.Charts, &fire, &earth, &air, &water)
	if err != nil {
		s.logError("element_averages query error", kind, err)
		return out, fmt.Errorf("element averages: %w", err)
	}
	if out.Charts == 0 {
		return out, nil
	}
	out.Mean = models.ElementSummary{
		Fire:  roundStat(fire.Float64),
		Earth: roundStat(earth.Float64),
		Air:   roundStat(air.Float64),
		Water: roundStat(water.Float64),
	}
	return out, nil
}

func (s *CHChartEvents) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *CHChartEvents) Close() error {
	return nil // client owned by DI
}

func (s *CHChartEvents) logError(msg, kind string, err error) {
	if s.l != nil {
		s.l.Error("clickhouse "+msg, applogger.String("kind", kind), applogger.Error(err))
	}
}

func statsFilter(from, to time.Time, kind string) (string, []interface{}) {
	where := "ts >= ? AND ts <= ?"
	args := []interface{}{from.UTC(), to.UTC()}
	if kind != "" {
		where += " AND kind = ?"
		args = append(args, kind)
	}
	return where, args
}

func roundStat(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
