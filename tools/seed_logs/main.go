package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	masterdatarepo "plant-monitor/internal/masterdata/infrastructure/postgres"
	telemetryapp "plant-monitor/internal/telemetry/application"
	telemetryrepo "plant-monitor/internal/telemetry/infrastructure/postgres"
)

type config struct {
	dsn      string
	days     int
	interval time.Duration
	scope    string
	endDate  string
}

// panelRanges are plausible readings for the default control-panel channels.
var panelRanges = map[string][2]float64{
	"Vry":   {395, 425},
	"Vyb":   {395, 425},
	"Vbr":   {395, 425},
	"Cr":    {8, 32},
	"Cy":    {8, 32},
	"Cb":    {8, 32},
	"Freq":  {49.5, 50.5},
	"Temp":  {22, 78},
	"Watts": {1500, 9000},
}

func main() {
	cfg := parseConfig()
	if cfg.dsn == "" {
		log.Fatal("PG_DSN or DATABASE_URL is required")
	}
	if cfg.days <= 0 {
		log.Fatal("days must be > 0")
	}
	if cfg.interval <= 0 {
		log.Fatal("interval must be > 0")
	}
	scope, err := telemetryapp.ParseScope(cfg.scope)
	if err != nil {
		log.Fatalf("invalid scope: %v", err)
	}
	end, err := parseEndDate(cfg.endDate)
	if err != nil {
		log.Fatalf("invalid end-date: %v", err)
	}
	start := end.AddDate(0, 0, -cfg.days)

	db, err := sql.Open("pgx", cfg.dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	clock := &steppingClock{now: start}
	sim, err := telemetryapp.NewControlPanelSimulator(
		masterdatarepo.NewSensorTagRepository(db),
		masterdatarepo.NewLineRepository(db),
		telemetryrepo.NewLogRepository(db),
		telemetryrepo.NewDaqLogRepository(db),
		telemetryapp.WithClock(clock),
		telemetryapp.WithLocation(time.UTC),
	)
	if err != nil {
		log.Fatalf("simulator init: %v", err)
	}

	ctx := context.Background()
	log.Printf("seeding %s readings: from=%s to=%s interval=%s", scope, start.Format(time.RFC3339), end.Format(time.RFC3339), cfg.interval)
	captures, rows := 0, 0
	for ts := start; ts.Before(end); ts = ts.Add(cfg.interval) {
		clock.now = ts
		result, err := sim.Capture(ctx, randomPayload(), scope)
		if err != nil {
			log.Fatalf("capture at %s: %v", ts.Format(time.RFC3339), err)
		}
		captures++
		rows += result.Inserted
		if captures%96 == 0 {
			log.Printf("seeded through %s (%d rows)", ts.Format("2006-01-02"), rows)
		}
	}
	log.Printf("seed completed: captures=%d rows=%d", captures, rows)
}

func parseConfig() config {
	cfg := config{}
	flag.StringVar(&cfg.dsn, "pg-dsn", envOrDefault("PG_DSN", envOrDefault("DATABASE_URL", "")), "Postgres DSN")
	flag.IntVar(&cfg.days, "days", envOrInt("DAYS", 7), "number of days to seed back from end-date")
	flag.DurationVar(&cfg.interval, "interval", 15*time.Minute, "capture interval")
	flag.StringVar(&cfg.scope, "scope", envOrDefault("SIMULATOR_SCOPE", "line"), "capture scope (line or machine)")
	flag.StringVar(&cfg.endDate, "end-date", envOrDefault("END_DATE", ""), "end date (YYYY-MM-DD or RFC3339), default now")
	flag.Parse()
	return cfg
}

func parseEndDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Now().UTC().Truncate(15 * time.Minute), nil
	}
	if strings.Contains(value, "T") {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, err
		}
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

func randomPayload() map[string]float64 {
	payload := make(map[string]float64, len(panelRanges))
	for name, bounds := range panelRanges {
		payload[name] = bounds[0] + rand.Float64()*(bounds[1]-bounds[0])
	}
	return payload
}

type steppingClock struct {
	now time.Time
}

func (c *steppingClock) Now() time.Time { return c.now }

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
