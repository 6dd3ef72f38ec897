// Package postgres persists verification requests in PostgreSQL. Request rows
// never carry OTP secrets; challenge state lives in the composed challenge
// store (Redis in production) keyed by reference id.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"verity/internal/identity"
	"verity/internal/otp"
	"verity/internal/verification"
	"verity/pkg/platform/sentinel"
)

// Store implements verification.Store on database/sql with the pgx stdlib
// driver.
type Store struct {
	db         *sql.DB
	challenges otp.ChallengeStore
}

// New creates a PostgreSQL request store. The challenge store may be nil for
// deployments that keep challenges purely in memory.
func New(db *sql.DB, challenges otp.ChallengeStore) *Store {
	return &Store{db: db, challenges: challenges}
}

// Save upserts the request row, then synchronizes challenge state: an active
// challenge is saved (hash only, by the challenge store), a cleared one is
// deleted.
func (s *Store) Save(ctx context.Context, request *verification.Request) error {
	const q = `
		INSERT INTO verification_requests (
			reference_id, document_type, document_number_masked,
			consent_identity, consent_contact, phone_masked, email_masked,
			status, failure_reason, created_at, last_transition_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (reference_id) DO UPDATE SET
			document_number_masked = EXCLUDED.document_number_masked,
			consent_identity = EXCLUDED.consent_identity,
			consent_contact = EXCLUDED.consent_contact,
			phone_masked = EXCLUDED.phone_masked,
			email_masked = EXCLUDED.email_masked,
			status = EXCLUDED.status,
			failure_reason = EXCLUDED.failure_reason,
			last_transition_at = EXCLUDED.last_transition_at`
	_, err := s.db.ExecContext(ctx, q,
		request.ReferenceID,
		string(request.DocumentType),
		request.DocumentNumberMasked,
		request.Consent.IdentityVerification,
		request.Consent.ContactUse,
		request.Contact.PhoneMasked,
		request.Contact.EmailMasked,
		string(request.Status),
		request.FailureReason,
		request.CreatedAt.UTC(),
		request.LastTransitionAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save verification request: %w", err)
	}

	if s.challenges == nil {
		return nil
	}
	if request.Challenge != nil {
		return s.challenges.Save(ctx, request.Challenge)
	}
	return s.challenges.Delete(ctx, request.ReferenceID)
}

// FindByReference loads one request and, when the request is awaiting an OTP,
// its challenge. A missing challenge for an AWAITING_OTP row means the Redis
// TTL already reaped it; the orchestrator treats that as expiry.
func (s *Store) FindByReference(ctx context.Context, referenceID string) (*verification.Request, error) {
	const q = `
		SELECT reference_id, document_type, document_number_masked,
		       consent_identity, consent_contact, phone_masked, email_masked,
		       status, failure_reason, created_at, last_transition_at
		FROM verification_requests
		WHERE reference_id = $1`
	req, err := scanRequest(s.db.QueryRowContext(ctx, q, referenceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("request %q: %w", referenceID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find verification request: %w", err)
	}

	if s.challenges != nil && req.Status == verification.StatusAwaitingOtp {
		challenge, err := s.challenges.Find(ctx, referenceID)
		switch {
		case err == nil:
			req.Challenge = challenge
		case errors.Is(err, sentinel.ErrNotFound):
			req.Challenge = &otp.Challenge{
				ReferenceID: referenceID,
				ExpiresAt:   time.Unix(0, 0),
			}
		default:
			return nil, err
		}
	}
	return req, nil
}

// FindExpired returns terminal, not yet archived requests whose last
// transition predates the cutoff. Challenges are not loaded; retention only
// needs identity of the rows.
func (s *Store) FindExpired(ctx context.Context, before time.Time) ([]*verification.Request, error) {
	const q = `
		SELECT reference_id, document_type, document_number_masked,
		       consent_identity, consent_contact, phone_masked, email_masked,
		       status, failure_reason, created_at, last_transition_at
		FROM verification_requests
		WHERE status IN ('VERIFIED', 'FAILED', 'EXPIRED')
		  AND last_transition_at < $1`
	rows, err := s.db.QueryContext(ctx, q, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("find expired verification requests: %w", err)
	}
	defer rows.Close()

	var out []*verification.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verification request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*verification.Request, error) {
	var (
		req           verification.Request
		documentType  string
		status        string
		failureReason sql.NullString
	)
	err := row.Scan(
		&req.ReferenceID,
		&documentType,
		&req.DocumentNumberMasked,
		&req.Consent.IdentityVerification,
		&req.Consent.ContactUse,
		&req.Contact.PhoneMasked,
		&req.Contact.EmailMasked,
		&status,
		&failureReason,
		&req.CreatedAt,
		&req.LastTransitionAt,
	)
	if err != nil {
		return nil, err
	}
	req.DocumentType = identity.DocumentType(documentType)
	req.Status = verification.Status(status)
	req.FailureReason = failureReason.String
	return &req, nil
}
