// Package api serves the anchor HTTP API. Errors are RFC 7807 Problem Details.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Reason codes carried in ProblemDetail.ReasonCode.
const (
	ReasonInvalidIncident   = "invalid_incident_id"
	ReasonInvalidArtifact   = "invalid_artifact"
	ReasonNotAnchored       = "not_anchored"
	ReasonNoPacket          = "no_packet"
	ReasonCorruptRecord     = "corrupt_record"
	ReasonLedgerUnavailable = "ledger_unavailable"
	ReasonPacketStore       = "packet_store_error"
	ReasonRateLimited       = "rate_limited"
	ReasonInternal          = "internal"
)

// ProblemDetail implements RFC 7807 (Problem Details for HTTP APIs).
// All API error responses use this format.
type ProblemDetail struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail,omitempty"`
	Instance   string `json:"instance,omitempty"`
	ReasonCode string `json:"reason_code,omitempty"`
	// TraceID echoes the request id so clients can quote it.
	TraceID string `json:"trace_id,omitempty"`
}

func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

// WriteError writes a Problem Detail response enriched with the request path
// and request id.
func WriteError(w http.ResponseWriter, r *http.Request, status int, reason, detail string) {
	problem := &ProblemDetail{
		Type:       fmt.Sprintf("https://sator.ops/errors/%s", reason),
		Title:      http.StatusText(status),
		Status:     status,
		Detail:     detail,
		ReasonCode: reason,
		TraceID:    w.Header().Get(RequestIDHeader),
	}
	if r != nil {
		problem.Instance = r.URL.Path
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteInternal writes a 500 response. err is logged, never sent.
func WriteInternal(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error", "error", err, "path", r.URL.Path)
	WriteError(w, r, http.StatusInternalServerError, ReasonInternal, "An unexpected error occurred. Please try again later.")
}

// WriteTooManyRequests writes a 429 response with a Retry-After header.
func WriteTooManyRequests(w http.ResponseWriter, r *http.Request, retryAfterSecs int) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
	WriteError(w, r, http.StatusTooManyRequests, ReasonRateLimited, "Rate limit exceeded. Retry after the specified interval.")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
