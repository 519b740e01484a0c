package analyzer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Bahjat/link-audit/internal/linkaudit"
	"github.com/Bahjat/link-audit/internal/model"
	"github.com/Bahjat/link-audit/internal/platform/errs"
)

const maxRequestBody = 1 << 20 // 1 MB

var errURLRequired = errors.New("the \"url\" field is required")

// Transport handles HTTP requests for link audits.
type Transport struct {
	service *Service
	logger  *slog.Logger
}

// NewTransport creates an HTTP transport backed by the given service.
func NewTransport(service *Service, logger *slog.Logger) *Transport {
	return &Transport{service: service, logger: logger}
}

// RegisterRoutes attaches the transport's handlers to the given mux.
func (t *Transport) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /extract", t.handleExtract)
	mux.HandleFunc("POST /audit", t.handleAudit)
	mux.HandleFunc("POST /audit/batch", t.handleAuditBatch)
	mux.HandleFunc("GET /healthz", t.handleHealth)
}

type urlRequest struct {
	URL string `json:"url"`
}

func (r *urlRequest) validate() error {
	if r.URL == "" {
		return errURLRequired
	}
	return nil
}

type batchRequest struct {
	URLs []string `json:"urls"`
}

func (r *batchRequest) validate() error {
	return linkaudit.ValidateBatch(r.URLs)
}

func (t *Transport) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !t.decode(w, r, &req, req.validate) {
		return
	}

	result, err := t.service.Extract(r.Context(), req.URL)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}
	t.renderJSON(w, http.StatusOK, result)
}

func (t *Transport) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !t.decode(w, r, &req, req.validate) {
		return
	}

	result, err := t.service.Audit(r.Context(), req.URL)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}
	t.renderJSON(w, http.StatusOK, result)
}

// handleAuditBatch always answers 200 once the batch is accepted; per-URL
// failures are embedded in the body.
func (t *Transport) handleAuditBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !t.decode(w, r, &req, req.validate) {
		return
	}

	result, err := t.service.AuditBatch(r.Context(), req.URLs)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}
	t.renderJSON(w, http.StatusOK, result)
}

func (t *Transport) handleHealth(w http.ResponseWriter, _ *http.Request) {
	t.renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a JSON body into dst and runs validate on it. It renders a
// 400 and returns false on any failure. validate is evaluated after
// decoding, so callers pass a method value bound to a pointer receiver.
func (t *Transport) decode(w http.ResponseWriter, r *http.Request, dst any, validate func() error) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		t.renderError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}

	if err := validate(); err != nil {
		var appErr *errs.AppError
		if errors.As(err, &appErr) {
			t.renderError(w, http.StatusBadRequest, appErr.Message)
			return false
		}
		t.renderError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (t *Transport) handleServiceError(w http.ResponseWriter, err error) {
	var appErr *errs.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch appErr.Kind {
		case errs.InvalidInput:
			status = http.StatusBadRequest
		case errs.Unreachable:
			status = http.StatusBadGateway
		case errs.NotFound:
			status = http.StatusNotFound
		case errs.Timeout:
			status = http.StatusGatewayTimeout
		case errs.ParsingFailed, errs.Unknown:
			// 500 Internal Server Error
		}
		t.renderError(w, status, appErr.Message)
		return
	}

	t.renderError(w, http.StatusInternalServerError, "An unexpected error occurred.")
}

func (t *Transport) renderJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		t.logger.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (t *Transport) renderError(w http.ResponseWriter, status int, message string) {
	t.renderJSON(w, status, model.ErrorResponse{
		Error:      http.StatusText(status),
		StatusCode: status,
		Message:    message,
	})
}
