package main

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	alertapp "plant-monitor/internal/alerts/application"
	alerts "plant-monitor/internal/alerts/domain"
	alertrepo "plant-monitor/internal/alerts/infrastructure/postgres"
	alertshttp "plant-monitor/internal/alerts/interfaces/http"
	alertnotify "plant-monitor/internal/alerts/notify"
	analyticsapp "plant-monitor/internal/analytics/application"
	analyticsrepo "plant-monitor/internal/analytics/infrastructure/postgres"
	analyticshttp "plant-monitor/internal/analytics/interfaces/http"
	apihttp "plant-monitor/internal/api/http"
	"plant-monitor/internal/audit"
	"plant-monitor/internal/auth"
	identityapp "plant-monitor/internal/identity/application"
	identity "plant-monitor/internal/identity/domain"
	identityrepo "plant-monitor/internal/identity/infrastructure/postgres"
	identityhttp "plant-monitor/internal/identity/interfaces/http"
	incidentapp "plant-monitor/internal/incidents/application"
	incidents "plant-monitor/internal/incidents/domain"
	incidentrepo "plant-monitor/internal/incidents/infrastructure/postgres"
	incidentshttp "plant-monitor/internal/incidents/interfaces/http"
	masterdataapp "plant-monitor/internal/masterdata/application"
	masterdata "plant-monitor/internal/masterdata/domain"
	masterdatarepo "plant-monitor/internal/masterdata/infrastructure/postgres"
	"plant-monitor/internal/observability/metrics"
	telemetryapp "plant-monitor/internal/telemetry/application"
	telemetryrepo "plant-monitor/internal/telemetry/infrastructure/postgres"
	telemetryhttp "plant-monitor/internal/telemetry/interfaces/http"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("ping db: %v", err)
	}
	metrics.Init(db, logger)

	auditRepo := audit.NewRepository(db)

	plantRepo := masterdatarepo.NewPlantRepository(db)
	blockRepo := masterdatarepo.NewBlockRepository(db)
	lineRepo := masterdatarepo.NewLineRepository(db)
	machineRepo := masterdatarepo.NewMachineRepository(db)
	tagRepo := masterdatarepo.NewSensorTagRepository(db)
	tagTypeRepo := masterdatarepo.NewSensorTagTypeRepository(db)

	hierarchy, err := masterdataapp.NewHierarchyService(lineRepo)
	if err != nil {
		logger.Fatalf("hierarchy service init: %v", err)
	}

	userService, err := identityapp.NewUserService(identityrepo.NewUserRepository(db))
	if err != nil {
		logger.Fatalf("user service init: %v", err)
	}
	roleRepo := identityrepo.NewRoleRepository(db)

	logRepo := telemetryrepo.NewLogRepository(db)
	daqLogRepo := telemetryrepo.NewDaqLogRepository(db)

	scope, err := telemetryapp.ParseScope(cfg.SimulatorScope)
	if err != nil {
		logger.Fatalf("simulator scope: %v", err)
	}
	simulator, err := telemetryapp.NewControlPanelSimulator(tagRepo, lineRepo, logRepo, daqLogRepo,
		telemetryapp.WithChannels(cfg.Channels),
	)
	if err != nil {
		logger.Fatalf("simulator init: %v", err)
	}

	metricsQuery, err := analyticsrepo.NewMetricsQuery(db)
	if err != nil {
		logger.Fatalf("metrics query init: %v", err)
	}
	metricsService, err := analyticsapp.NewMetricsService(lineRepo, metricsQuery,
		analyticsapp.WithClassification(cfg.Classification),
	)
	if err != nil {
		logger.Fatalf("metrics service init: %v", err)
	}

	alertRepo := alertrepo.NewAlertRepository(db)
	broker := alertshttp.NewSSEBroker()
	notifiers := []alertapp.AlertNotifier{broker}
	if cfg.AlertWebhookURL != "" {
		webhook, err := buildWebhookNotifier(cfg, lineRepo, tagRepo, logger)
		if err != nil {
			logger.Fatalf("alert webhook init: %v", err)
		}
		notifiers = append(notifiers, webhook)
	}
	alertService, err := alertapp.NewService(alertRepo,
		alertapp.WithNotifier(alertnotify.NewMultiNotifier(notifiers...)),
		alertapp.WithRecentLimit(cfg.RecentAlertsLimit),
	)
	if err != nil {
		logger.Fatalf("alert service init: %v", err)
	}

	incidentRepo := incidentrepo.NewIncidentRepository(db)
	transactionRepo := incidentrepo.NewTransactionRepository(db)
	txStore, err := incidentrepo.NewTxStore(db)
	if err != nil {
		logger.Fatalf("incident tx store init: %v", err)
	}
	escalation, err := incidentapp.NewEscalationService(alertRepo, hierarchy, txStore)
	if err != nil {
		logger.Fatalf("escalation service init: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mustResource[masterdata.Plant](mux, logger, "plants", "/plants/", plantRepo, auditRepo)
	mustResource[masterdata.Block](mux, logger, "blocks", "/blocks/", blockRepo, auditRepo)
	mustResource[masterdata.Line](mux, logger, "lines", "/lines/", lineRepo, auditRepo)
	mustResource[masterdata.Machine](mux, logger, "machines", "/machines/", machineRepo, auditRepo)
	mustResource[masterdata.SensorTag](mux, logger, "sensor-tags", "/sensor-tags/", tagRepo, auditRepo)
	mustResource[masterdata.SensorTagType](mux, logger, "sensor-tag-types", "/sensor-tag-types/", tagTypeRepo, auditRepo)
	mustResource[identity.User](mux, logger, "auth-users", "/auth-users/", userService, auditRepo)
	mustResource[identity.Role](mux, logger, "auth-roles", "/auth-roles/", roleRepo, auditRepo)
	mustResource[incidents.Transaction](mux, logger, "incident-transactions", "/incident-transactions/", transactionRepo, auditRepo)
	mustResource[incidents.Incident](mux, logger, "incidents", "/incidents/", incidentRepo, auditRepo,
		apihttp.WithSubresource[incidents.Incident]("transactions",
			incidentshttp.TransactionsSubresource(incidentRepo, transactionRepo, systemClock{}, logger)),
	)

	alertResource, err := apihttp.NewResource[alerts.Alert]("alerts", "/alerts/", alertService,
		apihttp.WithAudit[alerts.Alert](auditRepo),
		apihttp.WithLogger[alerts.Alert](logger),
	)
	if err != nil {
		logger.Fatalf("alerts resource init: %v", err)
	}
	alertHandler, err := alertshttp.NewHandler(alertService, alertResource, logger)
	if err != nil {
		logger.Fatalf("alerts handler init: %v", err)
	}
	mux.Handle("/alerts/", alertHandler)
	mux.Handle("/alerts/stream", alertshttp.NewStreamHandler(broker))

	escalateHandler, err := incidentshttp.NewEscalateHandler(escalation, logger)
	if err != nil {
		logger.Fatalf("escalate handler init: %v", err)
	}
	mux.Handle("/incidents/escalate", escalateHandler)

	panelHandler, err := telemetryhttp.NewControlPanelHandler(simulator, scope, logger)
	if err != nil {
		logger.Fatalf("control panel handler init: %v", err)
	}
	panelGuard := auth.NewPanelSignatureMiddleware([]byte(cfg.PanelSecret), time.Duration(cfg.PanelSkewSeconds)*time.Second)
	mux.Handle("/control-panel-data/", panelGuard.Wrap(panelHandler))

	logsHandler, err := telemetryhttp.NewLogsHandler(logRepo, logger)
	if err != nil {
		logger.Fatalf("logs handler init: %v", err)
	}
	mux.Handle("/logs/", logsHandler)

	daqLogsHandler, err := telemetryhttp.NewDaqLogsHandler(daqLogRepo, logger)
	if err != nil {
		logger.Fatalf("daq logs handler init: %v", err)
	}
	mux.Handle("/daqlogs/", daqLogsHandler)

	exportHandler, err := telemetryhttp.NewDaqLogExportHandler(daqLogRepo, logger)
	if err != nil {
		logger.Fatalf("daq log export handler init: %v", err)
	}
	mux.Handle("/daqlogs/export.xlsx", exportHandler)

	productionHandler, err := analyticshttp.NewProductionMetricsHandler(metricsService, logger)
	if err != nil {
		logger.Fatalf("production metrics handler init: %v", err)
	}
	mux.Handle("/production-metrics/", productionHandler)

	reportHandler, err := analyticshttp.NewReportPDFHandler(metricsService, logger)
	if err != nil {
		logger.Fatalf("production report handler init: %v", err)
	}
	mux.Handle("/production-metrics/report.pdf", reportHandler)

	performanceHandler, err := analyticshttp.NewMachinePerformanceHandler(metricsService, logger)
	if err != nil {
		logger.Fatalf("machine performance handler init: %v", err)
	}
	mux.Handle("/machine-performance/", performanceHandler)

	auditHandler, err := apihttp.NewAuditHandler(auditRepo, logger)
	if err != nil {
		logger.Fatalf("audit handler init: %v", err)
	}
	mux.Handle("/audit-logs/", auditHandler)

	tokenHandler, err := identityhttp.NewTokenHandler(userService, []byte(cfg.JWTSecret), cfg.TokenTTL, logger)
	if err != nil {
		logger.Fatalf("token handler init: %v", err)
	}
	mux.Handle("/auth/token", tokenHandler)

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics", "/auth/token"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	if cfg.JWTSecret == "" {
		logger.Printf("auth: AUTH_JWT_SECRET not set, bearer guard disabled")
	}
	handler := loggingMiddleware(authMiddleware.Wrap(mux), logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	logger.Printf("plant-monitor listening on %s (simulator scope %s)", cfg.HTTPAddr, scope)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server: %v", err)
	}
}

func mustResource[T any](mux *http.ServeMux, logger *log.Logger, name, prefix string, store apihttp.Store[T], auditLogger audit.Logger, opts ...apihttp.ResourceOption[T]) {
	opts = append([]apihttp.ResourceOption[T]{
		apihttp.WithAudit[T](auditLogger),
		apihttp.WithLogger[T](logger),
	}, opts...)
	resource, err := apihttp.NewResource[T](name, prefix, store, opts...)
	if err != nil {
		logger.Fatalf("%s resource init: %v", name, err)
	}
	mux.Handle(prefix, resource)
}

func buildWebhookNotifier(cfg config, lines alertnotify.LineReader, tags alertnotify.TagReader, logger *log.Logger) (*alertnotify.Notifier, error) {
	channel, err := alertnotify.NewWebhookChannel(cfg.AlertWebhookURL, alertnotify.WithFormat(cfg.AlertWebhookFormat))
	if err != nil {
		return nil, err
	}
	tpl, err := alertnotify.NewTemplate(cfg.AlertTemplate)
	if err != nil {
		return nil, err
	}
	return alertnotify.NewNotifier(lines, tags, channel, tpl,
		alertnotify.WithLogger(logger),
		alertnotify.WithDedupeWindow(cfg.AlertDedupeWindow),
		alertnotify.WithRequestTimeout(cfg.AlertNotifyTimeout),
	)
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		metrics.IncHTTPRequest(routeLabel(r.URL.Path), r.Method, resp.status)
		logger.Printf("http %s %s %d %s id=%s", r.Method, r.URL.Path, resp.status, time.Since(start), requestID)
	})
}

// routeLabel keeps the metric cardinality to the first path segment.
func routeLabel(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "/"
	}
	if idx := strings.Index(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return "/" + trimmed + "/"
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
