package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "verity/pkg/platform/audit"
)

// Store implements audit.Store using the transactional outbox pattern.
// Entries are written to the outbox table and relayed to Kafka by the outbox
// relay; Kafka is the downstream source of truth for audit consumers.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// outboxPayload is the JSON structure relayed to Kafka. Field names match
// audit.Entry for deserialization by consumers.
type outboxPayload struct {
	ID            string `json:"ID"`
	TraceID       string `json:"TraceID,omitempty"`
	ReferenceID   string `json:"ReferenceID"`
	Operation     string `json:"Operation"`
	Outcome       string `json:"Outcome"`
	MaskedPayload string `json:"MaskedPayload,omitempty"`
	Channel       string `json:"Channel,omitempty"`
	Timestamp     string `json:"Timestamp"`
}

// Append writes an audit entry to the outbox table.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	payload, err := json.Marshal(outboxPayload{
		ID:            entry.ID.String(),
		TraceID:       entry.TraceID,
		ReferenceID:   entry.ReferenceID,
		Operation:     string(entry.Operation),
		Outcome:       string(entry.Outcome),
		MaskedPayload: entry.MaskedPayload,
		Channel:       entry.Channel,
		Timestamp:     entry.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	const q = `
		INSERT INTO audit_outbox (id, reference_id, operation, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.db.ExecContext(ctx, q, entry.ID, entry.ReferenceID, string(entry.Operation), payload, entry.Timestamp.UTC()); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByReference reads back entries for one reference, oldest first.
func (s *Store) ListByReference(ctx context.Context, referenceID string) ([]audit.Entry, error) {
	const q = `
		SELECT payload FROM audit_outbox
		WHERE reference_id = $1
		ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, q, referenceID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry, err := decodePayload(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// PendingBatch returns up to limit unrelayed outbox rows, oldest first.
// The relay marks rows published after a successful Kafka produce.
func (s *Store) PendingBatch(ctx context.Context, limit int) ([]audit.Entry, error) {
	const q = `
		SELECT payload FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending audit batch: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan pending audit entry: %w", err)
		}
		entry, err := decodePayload(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// MarkPublished records that the relay delivered the entry downstream.
func (s *Store) MarkPublished(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE audit_outbox SET published_at = NOW() WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("mark audit entry published: %w", err)
	}
	return nil
}

func decodePayload(raw []byte) (audit.Entry, error) {
	var p outboxPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return audit.Entry{}, fmt.Errorf("unmarshal audit payload: %w", err)
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("parse audit entry id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("parse audit entry timestamp: %w", err)
	}
	return audit.Entry{
		ID:            id,
		TraceID:       p.TraceID,
		ReferenceID:   p.ReferenceID,
		Operation:     audit.Operation(p.Operation),
		Outcome:       audit.Outcome(p.Outcome),
		MaskedPayload: p.MaskedPayload,
		Channel:       p.Channel,
		Timestamp:     ts,
	}, nil
}
