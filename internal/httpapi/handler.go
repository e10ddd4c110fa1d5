// Package httpapi exposes an enhance.Enhancer over HTTP: the POST
// /api/enhance endpoint, health checks, and the middleware shared by the
// Lambda and standalone server entry points.
package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fpang/banana-enhance/internal/enhance"
)

// MaxBodyBytes caps inbound request bodies.
const MaxBodyBytes = 50 << 20 // 50 MiB

// Client-facing error strings.
const (
	msgMethodNotAllowed = "Method not allowed"
	msgBodyTooLarge     = "Request body too large"
	msgTimeout          = "Request timeout"
	msgSubmission       = "Failed to create task"
	msgInternal         = "Internal server error"
)

// Handler serves enhancement requests.
type Handler struct {
	enhancer enhance.Enhancer

	demo      enhance.Enhancer
	forceDemo bool
	allowDemo bool

	now func() time.Time
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithDemo installs the demo enhancer. force routes every request to it;
// allowRequests honours "demo_mode":"true" in individual payloads.
func WithDemo(demo enhance.Enhancer, force, allowRequests bool) HandlerOption {
	return func(h *Handler) {
		h.demo = demo
		h.forceDemo = force
		h.allowDemo = allowRequests
	}
}

// NewHandler creates a Handler backed by enhancer. enhancer may be nil for
// demo-only deployments.
func NewHandler(enhancer enhance.Enhancer, opts ...HandlerOption) *Handler {
	h := &Handler{enhancer: enhancer, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/enhance", h.handleEnhance)
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/api/health", h.handleHealth)
}

func (h *Handler) handleEnhance(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		httpError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed, "")
		return
	}

	logger := log.With().Str("requestId", RequestID(r.Context())).Logger()

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn().Int64("limit", tooLarge.Limit).Msg("Request body too large")
			httpError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge, "")
			return
		}
		logger.Warn().Err(err).Msg("Failed to read request body")
		httpError(w, http.StatusBadRequest, enhance.ValidationMessage, "")
		return
	}

	enhancer := h.enhancer
	var req enhance.Request
	if h.demo != nil && (h.forceDemo || (h.allowDemo && enhance.IsDemo(raw))) {
		enhancer = h.demo
		logger.Info().Bool("forced", h.forceDemo).Msg("Demo mode request")
	} else {
		req, err = enhance.DecodeRequest(raw)
		if err != nil {
			logger.Info().Err(err).Msg("Rejected enhancement request")
			httpError(w, http.StatusBadRequest, enhance.ValidationMessage, "")
			return
		}
	}

	if enhancer == nil {
		logger.Error().Msg("No enhancer configured")
		httpError(w, http.StatusInternalServerError, msgInternal, "enhancer not configured")
		return
	}

	logger.Info().Str("request", req.String()).Msg("Enhancement request received")
	result, err := enhancer.Enhance(r.Context(), req)
	if err != nil {
		writeEnhanceError(w, logger, err)
		return
	}

	logger.Info().Str("taskId", result.TaskID).Str("imageUrl", result.ImageURL).Msg("Enhancement complete")
	respondJSON(w, http.StatusOK, result)
}

// writeEnhanceError maps an enhancement failure to its status and body.
func writeEnhanceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := enhance.HTTPStatus(err)

	evt := logger.Error().Err(err).Int("status", status).Str("errorType", enhance.TypeOf(err).String())
	var enhErr *enhance.Error
	if errors.As(err, &enhErr) && enhErr.TaskID != "" {
		evt = evt.Str("taskId", enhErr.TaskID)
	}
	evt.Msg("Enhancement failed")

	switch {
	case enhance.TypeOf(err) == enhance.ErrTypeValidation:
		httpError(w, status, enhance.ValidationMessage, "")
	case status == http.StatusRequestTimeout:
		httpError(w, status, msgTimeout, err.Error())
	case enhance.TypeOf(err) == enhance.ErrTypeSubmission:
		httpError(w, status, msgSubmission, err.Error())
	default:
		httpError(w, http.StatusInternalServerError, msgInternal, err.Error())
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httpError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed, "")
		return
	}
	respondJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}
