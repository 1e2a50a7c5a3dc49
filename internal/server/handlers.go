package server

import (
	"net/http"
	"runtime"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/logpipe-io/logpipe/internal/auth"
	"github.com/logpipe-io/logpipe/internal/model"
	"github.com/logpipe-io/logpipe/internal/response"
	"github.com/logpipe-io/logpipe/internal/store"
)

// Handler serves the pipeline's HTTP surface over the entry store.
type Handler struct {
	Store  *store.Store
	Issuer *auth.Issuer
	Logger zerolog.Logger
}

type tokenResponse struct {
	Token string `json:"token"`
}

// ingestRequest is the POST /logs body. Message is optional — a submission
// without one is accepted — and unknown fields are ignored.
type ingestRequest struct {
	Message *string `json:"message"`
}

type ingestResponse struct {
	CorrelationID string `json:"correlationId"`
}

type logResponse struct {
	Status  model.Status `json:"status"`
	Message *string      `json:"message,omitempty"`
	Reason  string       `json:"reason,omitempty"`
}

type metricsResponse struct {
	Queued        int     `json:"queued"`
	Processed     int     `json:"processed"`
	MemoryUsageMB float64 `json:"memoryUsageMB"`
}

// IssueToken mints a capability token (POST /auth/token). The route sits
// behind the same admission control as everything else.
func (h *Handler) IssueToken(c echo.Context) error {
	token, err := h.Issuer.Issue()
	if err != nil {
		return response.Error(c, http.StatusInternalServerError, "Internal server error")
	}
	return response.OK(c, tokenResponse{Token: token})
}

// IngestLog accepts a log submission and queues it (POST /logs). The entry
// is acknowledged before any processing happens; oversized content is a
// worker concern, not a request-time rejection.
func (h *Handler) IngestLog(c echo.Context) error {
	var req ingestRequest
	// A malformed or empty body counts as a submission without a
	// message, not a validation error.
	_ = c.Bind(&req)

	entry := h.Store.Insert(req.Message)
	h.Logger.Debug().
		Str("correlation_id", entry.CorrelationID.String()).
		Str("subject", auth.Subject(c)).
		Msg("entry queued")
	return response.Accepted(c, ingestResponse{CorrelationID: entry.CorrelationID.String()})
}

// GetLog reports the current state of one entry (GET /logs/:correlationId).
// No auth. Malformed and unknown identifiers get the same generic 404.
func (h *Handler) GetLog(c echo.Context) error {
	id, err := uuid.Parse(c.Param("correlationId"))
	if err != nil {
		return response.NotFound(c)
	}
	entry, err := h.Store.Get(id)
	if err != nil {
		return response.NotFound(c)
	}
	return response.OK(c, logResponse{
		Status:  entry.Status,
		Message: entry.Message,
		Reason:  entry.Reason,
	})
}

// Metrics reports aggregate pipeline counts (GET /metrics). No auth.
func (h *Handler) Metrics(c echo.Context) error {
	queued, processed := h.Store.Snapshot()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return response.OK(c, metricsResponse{
		Queued:        queued,
		Processed:     processed,
		MemoryUsageMB: float64(ms.Alloc) / (1 << 20),
	})
}
