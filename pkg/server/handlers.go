package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/polisai/omnis/pkg/domain"
	"github.com/polisai/omnis/pkg/engine"
	"github.com/polisai/omnis/pkg/intent"
	"go.opentelemetry.io/otel/trace"
)

// IdentityHeader carries the caller identity on every session-scoped request.
const IdentityHeader = "X-Caller-Identity"

const maxBodyBytes = 1 << 20

// Service is the engine surface the HTTP layer depends on.
type Service interface {
	ListAgents() []domain.Agent
	GetAgent(id string) (domain.Agent, error)
	Classify(text string) intent.Decision
	Workflows() ([]engine.WorkflowSummary, error)
	Submit(ctx context.Context, req engine.SubmitRequest) (*engine.SubmitResult, error)
	GetSession(ctx context.Context, identity string) (domain.Session, bool)
	ResetSession(ctx context.Context, identity string, resetView bool) error
	SetPreferredView(ctx context.Context, identity string, view domain.View) (domain.Session, error)
}

// Limiter decides whether a caller may submit another request.
type Limiter interface {
	Allow(key string) bool
}

// Option configures optional handler behaviour.
type Option func(*Handlers)

// WithSubmitLimiter throttles POST /v1/submit per caller identity.
func WithSubmitLimiter(l Limiter) Option {
	return func(h *Handlers) { h.limiter = l }
}

// Handlers serves the JSON API.
type Handlers struct {
	svc     Service
	metrics *Metrics
	limiter Limiter
	logger  *slog.Logger
}

// NewHandlers creates the API handlers. metrics may be nil.
func NewHandlers(svc Service, metrics *Metrics, logger *slog.Logger, opts ...Option) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{svc: svc, metrics: metrics, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds every API route to mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /v1/agents", h.handleListAgents)
	mux.HandleFunc("GET /v1/agents/{id}", h.handleGetAgent)
	mux.HandleFunc("GET /v1/workflows", h.handleListWorkflows)
	mux.HandleFunc("POST /v1/classify", h.handleClassify)
	mux.HandleFunc("POST /v1/submit", h.handleSubmit)
	mux.HandleFunc("GET /v1/session", h.handleGetSession)
	mux.HandleFunc("DELETE /v1/session", h.handleResetSession)
	mux.HandleFunc("PUT /v1/session/view", h.handleSetView)
}

type classifyRequest struct {
	Text string `json:"text"`
}

type viewRequest struct {
	View domain.View `json:"view"`
}

type agentsResponse struct {
	Agents []domain.Agent `json:"agents"`
}

type workflowsResponse struct {
	Workflows []engine.WorkflowSummary `json:"workflows"`
}

type workflowEvent struct {
	RequestID string          `json:"requestId"`
	Category  domain.Category `json:"category"`
	Variant   domain.Variant  `json:"variant,omitempty"`
	DAG       domain.DAG      `json:"dag"`
}

type doneEvent struct {
	RequestID               string              `json:"requestId"`
	Attachments             []domain.Attachment `json:"attachments"`
	RejectedAttachmentCount int                 `json:"rejectedAttachmentCount"`
	StartedAt               time.Time           `json:"startedAt"`
	CompletedAt             time.Time           `json:"completedAt"`
}

func (h *Handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleListAgents lists the catalog, optionally narrowed with ?capability=.
func (h *Handlers) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents := h.svc.ListAgents()
	if capability := strings.TrimSpace(r.URL.Query().Get("capability")); capability != "" {
		kept := agents[:0]
		for _, a := range agents {
			if a.HasCapability(capability) {
				kept = append(kept, a)
			}
		}
		agents = kept
	}
	h.writeJSON(r.Context(), w, http.StatusOK, agentsResponse{Agents: agents})
}

func (h *Handlers) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.svc.Workflows()
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, workflowsResponse{Workflows: workflows})
}

func (h *Handlers) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := h.svc.GetAgent(r.PathValue("id"))
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, agent)
}

func (h *Handlers) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, h.svc.Classify(req.Text))
}

func (h *Handlers) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req engine.SubmitRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	req.Identity = r.Header.Get(IdentityHeader)

	if key := strings.TrimSpace(req.Identity); h.limiter != nil && key != "" && !h.limiter.Allow(key) {
		h.recordSubmission("", domain.CodeRateLimited)
		w.Header().Set("Retry-After", "1")
		h.writeError(r.Context(), w, domain.ErrRateLimited)
		return
	}

	result, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		h.recordSubmission("", domain.ErrorCode(err))
		h.writeError(r.Context(), w, err)
		return
	}
	h.recordSubmission(result.Category.String(), "")

	if wantsEventStream(r) {
		h.streamResult(w, result)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, result)
}

func (h *Handlers) streamResult(w http.ResponseWriter, result *engine.SubmitResult) {
	stream := newSSEStream(w, result.RequestID)

	err := stream.send(EventWorkflow, workflowEvent{
		RequestID: result.RequestID,
		Category:  result.Category,
		Variant:   result.Variant,
		DAG:       result.DAG,
	})
	for _, segment := range result.NarrativeSegments {
		if err != nil {
			break
		}
		err = stream.send(EventSegment, segment)
	}
	if err == nil {
		err = stream.send(EventDone, doneEvent{
			RequestID:               result.RequestID,
			Attachments:             result.Attachments,
			RejectedAttachmentCount: result.RejectedAttachmentCount,
			StartedAt:               result.StartedAt,
			CompletedAt:             result.CompletedAt,
		})
	}
	if err != nil {
		// The client went away; the submission itself already completed.
		h.logger.Debug("Event stream aborted", "request_id", result.RequestID, "error", err)
	}
}

func (h *Handlers) handleGetSession(w http.ResponseWriter, r *http.Request) {
	identity, err := callerIdentity(r)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	session, ok := h.svc.GetSession(r.Context(), identity)
	if !ok {
		h.writeError(r.Context(), w, &domain.NotFoundError{Kind: "session", ID: identity})
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, session)
}

func (h *Handlers) handleResetSession(w http.ResponseWriter, r *http.Request) {
	identity, err := callerIdentity(r)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	resetView := false
	if raw := r.URL.Query().Get("view"); raw != "" {
		resetView, err = strconv.ParseBool(raw)
		if err != nil {
			h.writeError(r.Context(), w, &domain.ValidationError{Field: "view", Reason: "must be a boolean"})
			return
		}
	}

	if err := h.svc.ResetSession(r.Context(), identity, resetView); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleSetView(w http.ResponseWriter, r *http.Request) {
	identity, err := callerIdentity(r)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	var req viewRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	session, err := h.svc.SetPreferredView(r.Context(), identity, req.View)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, session)
}

func (h *Handlers) recordSubmission(category, code string) {
	if h.metrics != nil {
		h.metrics.RecordSubmission(category, code)
	}
}

func (h *Handlers) writeJSON(_ context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes the standard error envelope with the status mapped from err.
func (h *Handlers) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	code := domain.ErrorCode(err)
	status := statusForCode(code)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "code", code, "error", err)
		message = "internal error"
	}

	var traceID string
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		traceID = sc.TraceID().String()
	}

	h.writeJSON(ctx, w, status, domain.ErrorResponse{
		Code:    code,
		Message: message,
		TraceID: traceID,
	})
}

func statusForCode(code string) int {
	switch code {
	case domain.CodeEmptyPrompt, domain.CodeValidationFailed:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func callerIdentity(r *http.Request) (string, error) {
	identity := strings.TrimSpace(r.Header.Get(IdentityHeader))
	if identity == "" {
		return "", &domain.ValidationError{Field: "identity", Reason: IdentityHeader + " header is required"}
	}
	return identity, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &domain.ValidationError{Field: "body", Reason: "must not be empty"}
		}
		return &domain.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func wantsEventStream(r *http.Request) bool {
	for _, accept := range r.Header.Values("Accept") {
		if strings.Contains(accept, "text/event-stream") {
			return true
		}
	}
	return false
}
