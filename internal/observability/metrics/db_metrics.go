package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "active_sensor_tags",
			Help: "Active sensor tags on active machines",
		},
		func() float64 {
			return queryCount(db, logger, `
SELECT COUNT(*) FROM sensor_tags t
JOIN machines m ON m.id = t.machine_id
WHERE t.inactive = FALSE AND m.inactive = FALSE`)
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "open_incidents",
			Help: "Open, active incidents",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM incidents WHERE open = TRUE AND inactive = FALSE")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
