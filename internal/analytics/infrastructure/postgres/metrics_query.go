package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"plant-monitor/internal/analytics/domain/metrics"
	masterdata "plant-monitor/internal/masterdata/domain"
)

// MetricsQuery sums categorized readings from logs and daq_logs.
type MetricsQuery struct {
	db     *sql.DB
	tables queryTables
}

type queryTables struct {
	logs     string
	daqLogs  string
	tags     string
	tagTypes string
	machines string
}

// NewMetricsQuery creates a metrics query over the default tables.
func NewMetricsQuery(db *sql.DB) (*MetricsQuery, error) {
	if db == nil {
		return nil, errors.New("metrics query: nil db")
	}
	tables := queryTables{
		logs:     "logs",
		daqLogs:  "daq_logs",
		tags:     "sensor_tags",
		tagTypes: "sensor_tag_types",
		machines: "machines",
	}
	return &MetricsQuery{db: db, tables: tables}, nil
}

// LineSums aggregates readings of a line over the inclusive window. Line-scoped logs
// and machine-scoped daq logs on the line's machines are both counted.
func (q *MetricsQuery) LineSums(ctx context.Context, lineID int64, window metrics.Window, class metrics.Classification) (metrics.Sums, error) {
	if lineID <= 0 {
		return metrics.Sums{}, errors.New("metrics query: line id is required")
	}
	production, _ := masterdata.LegacyKeyword(masterdata.CategoryProduction)
	downtime, _ := masterdata.LegacyKeyword(masterdata.CategoryDowntime)
	quality, _ := masterdata.LegacyKeyword(masterdata.CategoryQuality)

	query := fmt.Sprintf(`
WITH readings AS (
	SELECT l.tag_id, l.value
	FROM %s l
	WHERE l.line_id = $1 AND l.inactive = FALSE AND l.timestamp BETWEEN $2 AND $3
	UNION ALL
	SELECT d.tag_id, d.value
	FROM %s d
	JOIN %s dt ON dt.id = d.tag_id
	JOIN %s m ON m.id = dt.machine_id
	WHERE m.line_id = $1 AND d.inactive = FALSE AND d.timestamp BETWEEN $2 AND $3
), classified AS (
	SELECT r.value,
		(tt.category = 'production' OR ($4::boolean AND tt.category = '' AND t.name ILIKE '%%' || $6 || '%%')) AS is_production,
		(tt.category = 'downtime' OR ($4::boolean AND tt.category = '' AND t.name ILIKE '%%' || $7 || '%%')) AS is_downtime,
		(tt.category = 'quality' OR ($4::boolean AND tt.category = '' AND t.name ILIKE '%%' || $8 || '%%')) AS is_quality
	FROM readings r
	JOIN %s t ON t.id = r.tag_id
	JOIN %s tt ON tt.id = t.tag_type_id
)
SELECT
	COALESCE(SUM(value) FILTER (WHERE is_production), 0),
	COALESCE(SUM(value) FILTER (WHERE is_downtime), 0),
	COALESCE(SUM(value) FILTER (WHERE is_quality AND value >= $5::double precision), 0),
	COALESCE(SUM(value) FILTER (WHERE is_quality), 0)
FROM classified`,
		q.tables.logs, q.tables.daqLogs, q.tables.tags, q.tables.machines, q.tables.tags, q.tables.tagTypes)

	var sums metrics.Sums
	err := q.db.QueryRowContext(ctx, query,
		lineID,
		window.Start.UTC(),
		window.End.UTC(),
		class.LegacyTagMatching,
		class.QualityThreshold,
		production,
		downtime,
		quality,
	).Scan(&sums.Production, &sums.Downtime, &sums.QualityNumerator, &sums.QualityDenominator)
	if err != nil {
		return metrics.Sums{}, err
	}
	return sums, nil
}
