package telemetryhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	apihttp "plant-monitor/internal/api/http"
	"plant-monitor/internal/apperrors"
	"plant-monitor/internal/telemetry/application"
)

// Capturer stores a control-panel capture.
type Capturer interface {
	Capture(ctx context.Context, payload map[string]float64, scope application.Scope) (application.CaptureResult, error)
}

// ControlPanelHandler handles POST /control-panel-data/.
type ControlPanelHandler struct {
	sim          Capturer
	defaultScope application.Scope
	logger       *log.Logger
}

// NewControlPanelHandler constructs a control panel handler.
func NewControlPanelHandler(sim Capturer, defaultScope application.Scope, logger *log.Logger) (*ControlPanelHandler, error) {
	if sim == nil {
		return nil, errors.New("control panel handler: nil simulator")
	}
	if defaultScope == "" {
		defaultScope = application.ScopeMachine
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ControlPanelHandler{sim: sim, defaultScope: defaultScope, logger: logger}, nil
}

type captureResponse struct {
	Message   string    `json:"message"`
	Inserted  int       `json:"inserted"`
	Scope     string    `json:"scope"`
	Timestamp time.Time `json:"timestamp"`
}

// ServeHTTP captures one panel reading.
func (h *ControlPanelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	scope := h.defaultScope
	if raw := r.URL.Query().Get("scope"); raw != "" {
		parsed, err := application.ParseScope(raw)
		if err != nil {
			apihttp.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		scope = parsed
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.logger.Printf("control panel: read body error: %v", err)
		apihttp.WriteError(w, http.StatusBadRequest, "read body error")
		return
	}
	defer r.Body.Close()

	payload, err := decodePanelPayload(body)
	if err != nil {
		apihttp.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.sim.Capture(r.Context(), payload, scope)
	if err != nil {
		apihttp.RespondError(w, h.logger, "control panel: capture", err)
		return
	}

	apihttp.WriteJSON(w, http.StatusCreated, captureResponse{
		Message:   fmt.Sprintf("Captured %d readings", result.Inserted),
		Inserted:  result.Inserted,
		Scope:     string(result.Scope),
		Timestamp: result.Timestamp,
	})
}

// decodePanelPayload accepts a JSON object whose values are numbers or numeric strings.
func decodePanelPayload(body []byte) (map[string]float64, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, apperrors.Invalid("payload must be a JSON object of channel values")
	}
	if raw == nil {
		return nil, apperrors.Invalid("payload must be a JSON object of channel values")
	}

	payload := make(map[string]float64, len(raw))
	for channel, value := range raw {
		var (
			parsed float64
			err    error
		)
		switch v := value.(type) {
		case json.Number:
			parsed, err = v.Float64()
		case string:
			parsed, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
		default:
			err = errors.New("not a number")
		}
		if err != nil {
			return nil, apperrors.Invalidf("channel %s: value must be numeric", channel)
		}
		if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return nil, apperrors.Invalidf("channel %s: value must be finite", channel)
		}
		payload[channel] = parsed
	}
	return payload, nil
}
