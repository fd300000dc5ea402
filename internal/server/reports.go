package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/benmeehan/proximity-agent/internal/models"
	"github.com/benmeehan/proximity-agent/pkg/location"
	"github.com/benmeehan/proximity-agent/pkg/mqtt"
	"github.com/rs/zerolog"
)

// maxSubmissionBytes bounds the request body of a report submission.
const maxSubmissionBytes = 64 << 10

type reportHandler struct {
	view        ReportView
	mqttClient  mqtt.MQTTClient
	submitTopic string
	submitQOS   int
	logger      zerolog.Logger
	now         func() time.Time
}

func newReportHandler(view ReportView, mqttClient mqtt.MQTTClient, submitTopic string, submitQOS int, logger zerolog.Logger) *reportHandler {
	return &reportHandler{
		view:        view,
		mqttClient:  mqttClient,
		submitTopic: submitTopic,
		submitQOS:   submitQOS,
		logger:      logger,
		now:         time.Now,
	}
}

// reportView is a report annotated with its live distance from the device.
type reportView struct {
	models.Report
	DistanceMiles *float64 `json:"distance_miles"`
	WithinRadius  bool     `json:"within_radius"`
	Alerted       bool     `json:"alerted"`
}

type listResponse struct {
	Position *location.Coordinate `json:"position"`
	Reports  []reportView         `json:"reports"`
}

// ListReports returns the latest snapshot with distances from the current position.
func (h *reportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	resp := listResponse{Reports: []reportView{}}
	if pos, ok := h.view.Position(); ok && pos.IsFinite() {
		resp.Position = &pos
	}

	radius := h.view.AlertRadius()
	for _, report := range h.view.Reports() {
		item := reportView{Report: report, Alerted: h.view.Alerted(report.ID)}
		if meters, ok := h.view.DistanceTo(report.Position); ok && !math.IsNaN(meters) && !math.IsInf(meters, 0) {
			miles := location.RoundTo(location.MetersToMiles(meters), 1)
			item.DistanceMiles = &miles
			item.WithinRadius = meters <= radius
		}
		resp.Reports = append(resp.Reports, item)
	}

	h.respondWithJSON(w, http.StatusOK, resp)
}

// SubmitReport validates a new report and publishes it to the submission topic.
func (h *reportHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	if h.submitTopic == "" {
		h.respondWithError(w, http.StatusServiceUnavailable, "Report submission is disabled", nil)
		return
	}

	var sub models.ReportSubmission
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmissionBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&sub); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	report, err := models.NewReport(sub, h.now())
	if err != nil {
		if errors.Is(err, models.ErrInvalidReport) {
			h.respondWithError(w, http.StatusUnprocessableEntity, err.Error(), nil)
			return
		}
		h.respondWithError(w, http.StatusInternalServerError, "Failed to create report", err)
		return
	}

	payload, err := json.Marshal(report)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "Failed to encode report", err)
		return
	}

	token := h.mqttClient.Publish(h.submitTopic, byte(h.submitQOS), false, payload)
	if !token.WaitTimeout(10 * time.Second) {
		h.respondWithError(w, http.StatusGatewayTimeout, "Timed out publishing report", nil)
		return
	}
	if err := token.Error(); err != nil {
		h.logger.Error().Err(err).Str("report_id", report.ID).Msg("Failed to publish report")
		h.respondWithError(w, http.StatusBadGateway, "Failed to publish report", err)
		return
	}

	h.logger.Info().
		Str("report_id", report.ID).
		Str("category", string(report.Category)).
		Msg("Report submitted")
	h.respondWithJSON(w, http.StatusCreated, report)
}

// ClearAlerts resets the alerted set.
func (h *reportHandler) ClearAlerts(w http.ResponseWriter, r *http.Request) {
	if err := h.view.RequestClear(); err != nil {
		h.respondWithError(w, http.StatusServiceUnavailable, "Pipeline is not running", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// respondWithJSON encodes body before writing the header so an encoding
// failure can still be reported as a 500.
func (h *reportHandler) respondWithJSON(w http.ResponseWriter, status int, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		h.logger.Error().Err(err).Int("status", status).Msg("Failed to encode response")
		payload = []byte(`{"error":"Failed to encode response"}`)
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(payload, '\n')); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to write response")
	}
}

func (h *reportHandler) respondWithError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]string{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	h.respondWithJSON(w, status, body)
}
