package httptransport

//go:generate mockgen -source=handlers.go -destination=mocks/mocks.go -package=mocks Service,AuditReader

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"verity/internal/verification"
	dErrors "verity/pkg/domain-errors"
	audit "verity/pkg/platform/audit"
)

// Service is the slice of the verification orchestrator the transport needs.
type Service interface {
	Initiate(ctx context.Context, documentType, documentNumber string, consent verification.Consent, contact verification.ContactInput) (string, verification.Status, error)
	SubmitOtp(ctx context.Context, referenceID, code string) (verification.Status, error)
	Resend(ctx context.Context, referenceID, documentNumber string) (verification.Status, error)
	GetStatus(ctx context.Context, referenceID string) (verification.Status, error)
}

// AuditReader exposes the per-reference audit trail for operators.
type AuditReader interface {
	ListByReference(ctx context.Context, referenceID string) ([]audit.Entry, error)
}

// Handler is the thin HTTP layer. It delegates to the orchestrator without
// embedding business logic so transport concerns remain isolated.
type Handler struct {
	service Service
	auditor AuditReader
	logger  *slog.Logger
}

// NewHandler creates the verification handler. The audit reader may be nil;
// the audit endpoint then returns 404 for every reference.
func NewHandler(service Service, auditor AuditReader, logger *slog.Logger) *Handler {
	return &Handler{service: service, auditor: auditor, logger: logger}
}

// Register wires the verification routes onto the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/ekyc/initiate", h.handleInitiate)
	r.Post("/ekyc/verify-otp", h.handleVerifyOtp)
	r.Post("/ekyc/resend-otp", h.handleResendOtp)
	r.Get("/ekyc/{referenceID}/status", h.handleStatus)
	r.Get("/ekyc/{referenceID}/audit", h.handleAuditTrail)
}

func (h *Handler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	referenceID, status, err := h.service.Initiate(r.Context(), req.DocumentType, req.DocumentNumber,
		verification.Consent{
			IdentityVerification: req.Consent.IdentityVerification,
			ContactUse:           req.Consent.ContactUse,
		},
		verification.ContactInput{Phone: req.Contact.Phone, Email: req.Contact.Email},
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, statusResponse{ReferenceID: referenceID, Status: string(status)})
}

func (h *Handler) handleVerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req verifyOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.ReferenceID == "" || req.Otp == "" {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "referenceId and otp are required"))
		return
	}

	status, err := h.service.SubmitOtp(r.Context(), req.ReferenceID, req.Otp)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{ReferenceID: req.ReferenceID, Status: string(status)})
}

func (h *Handler) handleResendOtp(w http.ResponseWriter, r *http.Request) {
	var req resendOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.ReferenceID == "" || req.DocumentNumber == "" {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "referenceId and documentNumber are required"))
		return
	}

	status, err := h.service.Resend(r.Context(), req.ReferenceID, req.DocumentNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{ReferenceID: req.ReferenceID, Status: string(status)})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	referenceID := chi.URLParam(r, "referenceID")
	status, err := h.service.GetStatus(r.Context(), referenceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{ReferenceID: referenceID, Status: string(status)})
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	if h.auditor == nil {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "audit trail not available"))
		return
	}
	referenceID := chi.URLParam(r, "referenceID")
	entries, err := h.auditor.ListByReference(r.Context(), referenceID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "audit trail lookup failed",
			"reference_id", referenceID, "error", err)
		writeError(w, dErrors.New(dErrors.CodeInternal, "audit trail lookup failed"))
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			Operation: string(e.Operation),
			Outcome:   string(e.Outcome),
			Payload:   e.MaskedPayload,
			Channel:   e.Channel,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
