// mock-authority is a standalone stand-in for the external identity
// authority, for local development and end-to-end testing. Behavior is
// deterministic: document numbers ending in "00" are rejected, numbers
// ending in "99" stall long enough to trip client timeouts, and the only
// accepted OTP is the fixed development code.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"verity/internal/platform/httpserver"
	"verity/internal/platform/logger"
)

// DevOtp is the only code the mock accepts.
const DevOtp = "123456"

type initiateRequest struct {
	DocumentType   string `json:"documentType"`
	DocumentNumber string `json:"documentNumber"`
}

type initiateResponse struct {
	Accepted  bool   `json:"accepted"`
	ErrorCode string `json:"errorCode,omitempty"`
}

type verifyRequest struct {
	ReferenceID string `json:"referenceId"`
	Otp         string `json:"otp"`
}

type verifyResponse struct {
	Verified  bool   `json:"verified"`
	ErrorCode string `json:"errorCode,omitempty"`
}

func main() {
	log := logger.New()
	addr := os.Getenv("MOCK_AUTHORITY_ADDR")
	if addr == "" {
		addr = ":9090"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /otp/initiate", withTrace(handleInitiate))
	mux.HandleFunc("POST /otp/verify", withTrace(handleVerify))

	log.Info("starting mock identity authority", "addr", addr, "dev_otp", DevOtp)
	srv := httpserver.New(addr, mux)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// withTrace echoes the caller's X-Trace-Id so end-to-end traces line up.
func withTrace(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if traceID := r.Header.Get("X-Trace-Id"); traceID != "" {
			w.Header().Set("X-Trace-Id", traceID)
		}
		next(w, r)
	}
}

func handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	switch {
	case strings.HasSuffix(req.DocumentNumber, "99"):
		// Simulate an unresponsive authority.
		select {
		case <-r.Context().Done():
		case <-time.After(30 * time.Second):
		}
		http.Error(w, "timeout", http.StatusGatewayTimeout)
	case strings.HasSuffix(req.DocumentNumber, "00"):
		writeJSON(w, initiateResponse{Accepted: false, ErrorCode: "INVALID_DOCUMENT"})
	default:
		writeJSON(w, initiateResponse{Accepted: true})
	}
}

func handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Otp == DevOtp {
		writeJSON(w, verifyResponse{Verified: true})
		return
	}
	writeJSON(w, verifyResponse{Verified: false, ErrorCode: "OTP_MISMATCH"})
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
