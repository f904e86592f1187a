package integration_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	alerts "plant-monitor/internal/alerts/domain"
	alertrepo "plant-monitor/internal/alerts/infrastructure/postgres"
	"plant-monitor/internal/incidents/application"
	incidentrepo "plant-monitor/internal/incidents/infrastructure/postgres"
	masterdataapp "plant-monitor/internal/masterdata/application"
	masterdatarepo "plant-monitor/internal/masterdata/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestEscalateAlert_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if !tableExists(db, "incidents") || !tableExists(db, "incident_transactions") {
		t.Skip("incident tables missing; run migrations")
	}

	ctx := context.Background()
	var plantID, blockID, lineID, machineID, typeID, tagID, roleID, userID int64
	mustScan(t, db.QueryRowContext(ctx, `INSERT INTO plants (name) VALUES ('esc-plant') RETURNING id`), &plantID)
	mustScan(t, db.QueryRowContext(ctx, `INSERT INTO blocks (plant_id, name) VALUES ($1, 'esc-block') RETURNING id`, plantID), &blockID)
	mustScan(t, db.QueryRowContext(ctx, `INSERT INTO lines (block_id, name) VALUES ($1, 'esc-line') RETURNING id`, blockID), &lineID)
	mustScan(t, db.QueryRowContext(ctx, `INSERT INTO machines (line_id, name) VALUES ($1, 'esc-machine') RETURNING id`, lineID), &machineID)
	mustScan(t, db.QueryRowContext(ctx, `INSERT INTO sensor_tag_types (name) VALUES ('Temperature') RETURNING id`), &typeID)
	mustScan(t, db.QueryRowContext(ctx, `INSERT INTO sensor_tags (machine_id, tag_type_id, name, min_val, max_val) VALUES ($1, $2, 'Temp', 0, 120) RETURNING id`, machineID, typeID), &tagID)
	mustScan(t, db.QueryRowContext(ctx, `INSERT INTO auth_roles (name) VALUES ('esc-role-' || md5(random()::text)) RETURNING id`), &roleID)
	mustScan(t, db.QueryRowContext(ctx, `INSERT INTO auth_users (role_id, name, email, password) VALUES ($1, 'esc', md5(random()::text) || '@example.com', 'x') RETURNING id`, roleID), &userID)

	alertRepo := alertrepo.NewAlertRepository(db)
	alert := alerts.Alert{LineID: lineID, TagID: tagID, Timestamp: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), Name: "Overheat"}
	if err := alertRepo.Create(ctx, &alert); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	hierarchy, err := masterdataapp.NewHierarchyService(masterdatarepo.NewLineRepository(db))
	if err != nil {
		t.Fatalf("hierarchy: %v", err)
	}
	store, err := incidentrepo.NewTxStore(db)
	if err != nil {
		t.Fatalf("tx store: %v", err)
	}
	svc, err := application.NewEscalationService(alertRepo, hierarchy, store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := svc.Escalate(ctx, application.EscalateRequest{AlertID: alert.ID, IssuedBy: userID})
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if result.Incident.LocationID != blockID {
		t.Fatalf("expected block %d, got %d", blockID, result.Incident.LocationID)
	}

	loaded, err := incidentrepo.NewIncidentRepository(db).Get(ctx, result.Incident.ID)
	if err != nil || loaded == nil {
		t.Fatalf("load incident: %v", err)
	}
	if !loaded.Open || loaded.Date.Format("2006-01-02") != "2024-03-01" {
		t.Fatalf("unexpected incident %+v", loaded)
	}
	txns, err := incidentrepo.NewTransactionRepository(db).ListByIncident(ctx, loaded.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txns) != 1 || txns[0].IssuedBy != userID || txns[0].Msg != nil {
		t.Fatalf("unexpected transactions %+v", txns)
	}

	var before int
	mustScanInt(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incidents WHERE alert_id = $1`, alert.ID), &before)
	if _, err := svc.Escalate(ctx, application.EscalateRequest{AlertID: alert.ID, IssuedBy: 1 << 40}); err == nil {
		t.Fatalf("expected foreign key failure for unknown issuer")
	}
	var after int
	mustScanInt(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incidents WHERE alert_id = $1`, alert.ID), &after)
	if after != before {
		t.Fatalf("failed escalation left an incident behind")
	}
}

func mustScan(t *testing.T, row *sql.Row, dest *int64) {
	t.Helper()
	if err := row.Scan(dest); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func mustScanInt(t *testing.T, row *sql.Row, dest *int) {
	t.Helper()
	if err := row.Scan(dest); err != nil {
		t.Fatalf("count: %v", err)
	}
}

func tableExists(db *sql.DB, table string) bool {
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
	return err == nil && exists
}
