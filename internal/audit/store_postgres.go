package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"officiating-platform/pkg/utils"
)

// PostgresStore persists audit records in the audit_logs table.
// Payload maps are stored as bounded TEXT: truncation can leave partial
// JSON, which JSONB would reject.
type PostgresStore struct {
	DB *sql.DB
	// MaxPayloadBytes caps serialized old/new/additional payloads.
	MaxPayloadBytes int
}

func NewPostgresStore(db *sql.DB, maxPayloadBytes int) *PostgresStore {
	if maxPayloadBytes <= 0 {
		maxPayloadBytes = 64 * 1024
	}
	return &PostgresStore{DB: db, MaxPayloadBytes: maxPayloadBytes}
}

var provisionStatements = []string{
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY,
		event_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		actor_id TEXT,
		actor_email TEXT,
		ip_address TEXT,
		user_agent TEXT,
		resource_type TEXT,
		resource_id TEXT,
		old_values TEXT,
		new_values TEXT,
		additional_data TEXT,
		success BOOLEAN NOT NULL DEFAULT TRUE,
		error_message TEXT,
		request_path TEXT,
		request_method TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_event_type ON audit_logs (event_type)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_actor_id ON audit_logs (actor_id)`,
}

// Provision creates the audit schema. Idempotent; run once at startup.
func (s *PostgresStore) Provision(ctx context.Context) error {
	for _, stmt := range provisionStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("audit: provision schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO audit_logs (
			id, event_type, severity, actor_id, actor_email, ip_address, user_agent,
			resource_type, resource_id, old_values, new_values, additional_data,
			success, error_message, request_path, request_method, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		rec.ID,
		rec.EventType,
		string(rec.Severity),
		nullable(rec.ActorID),
		nullable(rec.ActorEmail),
		nullable(rec.IPAddress),
		nullable(rec.UserAgent),
		nullable(rec.ResourceType),
		nullable(rec.ResourceID),
		nullable(BoundedJSON(rec.OldValues, s.MaxPayloadBytes)),
		nullable(BoundedJSON(rec.NewValues, s.MaxPayloadBytes)),
		nullable(BoundedJSON(rec.AdditionalData, s.MaxPayloadBytes)),
		rec.Success,
		nullable(rec.ErrorMessage),
		nullable(rec.RequestPath),
		nullable(rec.RequestMethod),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: insert record: %w", err)
	}
	return nil
}

// FetchExpired pages records older than cutoff, oldest first. JSON-encoded
// payload columns are decoded back into maps so archives carry structured
// data, not doubly-encoded strings.
func (s *PostgresStore) FetchExpired(ctx context.Context, cutoff time.Time, limit, offset int) ([]Record, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, event_type, severity, actor_id, actor_email, ip_address, user_agent,
			resource_type, resource_id, old_values, new_values, additional_data,
			success, error_message, request_path, request_method, created_at
		FROM audit_logs
		WHERE created_at < $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`, cutoff, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("audit: fetch expired: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var actorID, actorEmail, ip, ua, resType, resID sql.NullString
		var oldVals, newVals, addData, errMsg, reqPath, reqMethod sql.NullString
		var sev string
		if err := rows.Scan(
			&rec.ID, &rec.EventType, &sev, &actorID, &actorEmail, &ip, &ua,
			&resType, &resID, &oldVals, &newVals, &addData,
			&rec.Success, &errMsg, &reqPath, &reqMethod, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("audit: scan expired row: %w", err)
		}
		rec.Severity = Severity(sev)
		rec.ActorID = actorID.String
		rec.ActorEmail = actorEmail.String
		rec.IPAddress = ip.String
		rec.UserAgent = ua.String
		rec.ResourceType = resType.String
		rec.ResourceID = resID.String
		rec.OldValues = decodePayload(oldVals.String)
		rec.NewValues = decodePayload(newVals.String)
		rec.AdditionalData = decodePayload(addData.String)
		rec.ErrorMessage = errMsg.String
		rec.RequestPath = reqPath.String
		rec.RequestMethod = reqMethod.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate expired rows: %w", err)
	}
	return out, nil
}

// DeleteExpired removes records older than cutoff in fixed-size batches
// inside a single transaction, pausing between batches to bound load.
func (s *PostgresStore) DeleteExpired(ctx context.Context, cutoff time.Time, batchSize int, pause time.Duration) (int64, error) {
	var total int64
	err := utils.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx *sql.Tx) error {
		for {
			res, err := tx.ExecContext(ctx,
				`DELETE FROM audit_logs
				WHERE id IN (
					SELECT id FROM audit_logs WHERE created_at < $1 ORDER BY created_at, id LIMIT $2
				)`, cutoff, batchSize)
			if err != nil {
				return fmt.Errorf("delete batch: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			total += n
			if n < int64(batchSize) {
				return nil
			}
			if pause > 0 {
				select {
				case <-time.After(pause):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	})
	if err != nil {
		return 0, fmt.Errorf("audit: delete expired: %w", err)
	}
	return total, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// decodePayload tolerates truncated JSON left by BoundedJSON: if it no
// longer parses, the raw text is preserved under a marker key.
func decodePayload(s string) map[string]any {
	if s == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return map[string]any{"_raw": s}
	}
	return m
}
